// Package metrics provides constants used across metric definitions.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Undo operation label values.
const (
	// OpExecute represents a command executed through the undo manager.
	OpExecute = "execute"
	// OpUndo represents an undo operation.
	OpUndo = "undo"
	// OpRedo represents a redo operation.
	OpRedo = "redo"
	// OpTransactionEnd represents a committed transaction.
	OpTransactionEnd = "transaction_end"
	// OpTransactionCancel represents a cancelled transaction.
	OpTransactionCancel = "transaction_cancel"
)

// Cleanup phase and item label values.
const (
	PhaseMark        = "mark"
	PhaseSweepMedia  = "sweep_media"
	PhaseSweepData   = "sweep_providers"
	ItemMedia        = "media"
	ItemProvider     = "provider"
	ActionDeleted    = "deleted"
	ActionDefragment = "defragmented"
	ActionFailed     = "failed"
)

// Histogram bucket configuration.
const (
	BucketStart1ms   = 0.001
	BucketStart100ms = 0.1
	BucketFactor2    = 2
	BucketCount10    = 10
)
