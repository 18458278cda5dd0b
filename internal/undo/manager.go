package undo

import (
	"fmt"
	"iter"
	"slices"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/observability/metrics"
)

const component = "undo"

// Sentinel errors for caller misuse. They are returned wrapped in a
// state-category error; match them with errors.Is.
var (
	ErrCannotUndo                    = errors.NewStd("nothing to undo")
	ErrCannotRedo                    = errors.NewStd("nothing to redo")
	ErrCannotExecute                 = errors.NewStd("command cannot be executed")
	ErrTransactionNotStarted         = errors.NewStd("no transaction is active")
	ErrTransactionStillActive        = errors.NewStd("a transaction is still active")
	ErrIrreversibleDuringTransaction = errors.NewStd("irreversible command executed during a transaction")
)

// Manager owns the undo stack, the redo stack, the stack of open
// transactions and the dirty marker. It is not safe for concurrent use;
// callers serialize access.
type Manager struct {
	undoStack []Command
	redoStack []Command
	tx        []*CompositeCommand

	// dirty marker: the undo-stack top at the last save, nil for an empty stack
	marker      Command
	markerValid bool

	listeners []listener
	nextID    int

	log     logger.Logger
	metrics *metrics.UndoMetrics
}

type listener struct {
	id int
	fn func(Event)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics records manager operations in Prometheus collectors.
func WithMetrics(um *metrics.UndoMetrics) Option {
	return func(m *Manager) { m.metrics = um }
}

// NewManager returns an empty manager. A fresh manager is on its dirty
// marker, i.e. it has no unsaved changes.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		markerValid: true,
		log:         logger.Global().Module(component),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs cmd. Outside a transaction a reversible command is pushed
// onto the undo stack and the redo stack is cleared; an irreversible
// command flushes both stacks. Inside a transaction the command must be
// reversible; it runs immediately and joins the innermost transaction.
func (m *Manager) Execute(cmd Command) error {
	if cmd == nil {
		return errors.ArgumentDomain(component, "command must not be nil")
	}
	if !cmd.CanExecute() {
		return m.fail(metrics.OpExecute, errors.State(component, fmt.Errorf("%w: %s", ErrCannotExecute, cmd.ShortDescription())))
	}

	if len(m.tx) > 0 {
		if !cmd.CanUnExecute() {
			return m.fail(metrics.OpExecute, errors.State(component, fmt.Errorf("%w: %s", ErrIrreversibleDuringTransaction, cmd.ShortDescription())))
		}
		if err := cmd.Execute(); err != nil {
			return m.fail(metrics.OpExecute, err)
		}
		m.tx[len(m.tx)-1].Append(cmd)
		m.done(EventDone, metrics.OpExecute, cmd)
		return nil
	}

	if err := cmd.Execute(); err != nil {
		return m.fail(metrics.OpExecute, err)
	}

	if cmd.CanUnExecute() {
		m.pushUndo(cmd)
	} else {
		m.log.Debug("irreversible command flushed undo history",
			logger.String("command", cmd.ShortDescription()))
		m.flush()
	}
	m.done(EventDone, metrics.OpExecute, cmd)
	return nil
}

// pushUndo records a new top-level change, discarding the redo history.
func (m *Manager) pushUndo(cmd Command) {
	if m.markerValid && m.marker != nil && slices.Contains(m.redoStack, m.marker) {
		m.markerValid = false
	}
	m.redoStack = nil
	m.undoStack = append(m.undoStack, cmd)
}

func (m *Manager) flush() {
	m.undoStack = nil
	m.redoStack = nil
	m.markerValid = false
}

// Undo un-executes the most recent command and moves it to the redo stack.
// If the command fails it stays on the undo stack and the error is returned.
func (m *Manager) Undo() error {
	if len(m.tx) > 0 {
		return m.fail(metrics.OpUndo, errors.State(component, ErrTransactionStillActive))
	}
	if len(m.undoStack) == 0 {
		return m.fail(metrics.OpUndo, errors.State(component, ErrCannotUndo))
	}

	cmd := m.undoStack[len(m.undoStack)-1]
	if err := cmd.UnExecute(); err != nil {
		return m.fail(metrics.OpUndo, err)
	}
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.redoStack = append(m.redoStack, cmd)

	m.done(EventUnDone, metrics.OpUndo, cmd)
	return nil
}

// Redo re-executes the most recently undone command and moves it back to
// the undo stack.
func (m *Manager) Redo() error {
	if len(m.tx) > 0 {
		return m.fail(metrics.OpRedo, errors.State(component, ErrTransactionStillActive))
	}
	if len(m.redoStack) == 0 {
		return m.fail(metrics.OpRedo, errors.State(component, ErrCannotRedo))
	}

	cmd := m.redoStack[len(m.redoStack)-1]
	if err := cmd.Execute(); err != nil {
		return m.fail(metrics.OpRedo, err)
	}
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.undoStack = append(m.undoStack, cmd)

	m.done(EventReDone, metrics.OpRedo, cmd)
	return nil
}

// StartTransaction opens a (possibly nested) transaction. Commands executed
// until the matching End or Cancel are grouped into one composite.
func (m *Manager) StartTransaction(short, long string) {
	comp := NewCompositeCommand(short, long)
	m.tx = append(m.tx, comp)
	m.log.Debug("transaction started",
		logger.String("transaction", short),
		logger.Int("depth", len(m.tx)))
	m.emit(Event{Kind: EventTransactionStarted, Command: comp, Depth: len(m.tx)})
	m.metrics.UpdateStacks(len(m.undoStack), len(m.redoStack), len(m.tx))
}

// EndTransaction closes the innermost transaction. A nested transaction is
// appended to its parent; an outermost one is pushed onto the undo stack.
// Ending a transaction with no commands records nothing.
func (m *Manager) EndTransaction() error {
	if len(m.tx) == 0 {
		return m.fail(metrics.OpTransactionEnd, errors.State(component, ErrTransactionNotStarted))
	}

	comp := m.popTransaction()
	if comp.Len() == 0 {
		m.log.Debug("empty transaction ended",
			logger.String("transaction", comp.ShortDescription()),
			logger.Int("depth", len(m.tx)))
		m.emit(Event{Kind: EventTransactionEnded, Command: comp, Depth: len(m.tx), Empty: true})
		m.metrics.UpdateStacks(len(m.undoStack), len(m.redoStack), len(m.tx))
		return nil
	}

	if len(m.tx) > 0 {
		m.tx[len(m.tx)-1].Append(comp)
	} else {
		m.pushUndo(comp)
	}

	m.done(EventTransactionEnded, metrics.OpTransactionEnd, comp)
	return nil
}

// CancelTransaction closes the innermost transaction and un-executes
// everything it accumulated. The undo stack is never touched.
func (m *Manager) CancelTransaction() error {
	if len(m.tx) == 0 {
		return m.fail(metrics.OpTransactionCancel, errors.State(component, ErrTransactionNotStarted))
	}

	comp := m.popTransaction()
	if err := comp.UnExecute(); err != nil {
		return m.fail(metrics.OpTransactionCancel, err)
	}

	m.done(EventTransactionCancelled, metrics.OpTransactionCancel, comp)
	return nil
}

func (m *Manager) popTransaction() *CompositeCommand {
	comp := m.tx[len(m.tx)-1]
	m.tx[len(m.tx)-1] = nil
	m.tx = m.tx[:len(m.tx)-1]
	return comp
}

// SetDirtyMarker records the current state as saved.
func (m *Manager) SetDirtyMarker() {
	m.marker = m.top()
	m.markerValid = true
}

// IsOnDirtyMarker reports whether the document is in its last saved state.
func (m *Manager) IsOnDirtyMarker() bool {
	return m.markerValid && m.top() == m.marker
}

func (m *Manager) top() Command {
	if len(m.undoStack) == 0 {
		return nil
	}
	return m.undoStack[len(m.undoStack)-1]
}

// FlushCommands discards both stacks. The dirty marker becomes unreachable.
func (m *Manager) FlushCommands() {
	m.flush()
	m.metrics.UpdateStacks(0, 0, len(m.tx))
}

// CanUndo reports whether Undo would succeed on its preconditions.
func (m *Manager) CanUndo() bool {
	return len(m.tx) == 0 && len(m.undoStack) > 0
}

// CanRedo reports whether Redo would succeed on its preconditions.
func (m *Manager) CanRedo() bool {
	return len(m.tx) == 0 && len(m.redoStack) > 0
}

// IsTransactionActive reports whether a transaction is open.
func (m *Manager) IsTransactionActive() bool { return len(m.tx) > 0 }

// TransactionDepth returns the number of open transactions.
func (m *Manager) TransactionDepth() int { return len(m.tx) }

// UndoShortDescription describes the command Undo would reverse, or "".
func (m *Manager) UndoShortDescription() string {
	if len(m.undoStack) == 0 {
		return ""
	}
	return m.undoStack[len(m.undoStack)-1].ShortDescription()
}

// RedoShortDescription describes the command Redo would re-apply, or "".
func (m *Manager) RedoShortDescription() string {
	if len(m.redoStack) == 0 {
		return ""
	}
	return m.redoStack[len(m.redoStack)-1].ShortDescription()
}

// UndoCommands returns the undo stack, bottom first.
func (m *Manager) UndoCommands() []Command { return slices.Clone(m.undoStack) }

// RedoCommands returns the redo stack, bottom first.
func (m *Manager) RedoCommands() []Command { return slices.Clone(m.redoStack) }

// UsedMediaData yields every MediaData referenced by the undo stack, the
// redo stack and every open transaction. Duplicates are not removed.
func (m *Manager) UsedMediaData() iter.Seq[media.MediaData] {
	return func(yield func(media.MediaData) bool) {
		groups := [][]Command{m.undoStack, m.redoStack}
		for _, comp := range m.tx {
			groups = append(groups, []Command{comp})
		}
		for _, cmds := range groups {
			for _, cmd := range cmds {
				for _, md := range cmd.UsedMediaData() {
					if !yield(md) {
						return
					}
				}
			}
		}
	}
}

// done emits a notification and records metrics for a successful operation.
func (m *Manager) done(kind EventKind, op string, cmd Command) {
	leaves := Flatten(cmd)
	if kind == EventUnDone || kind == EventTransactionCancelled {
		slices.Reverse(leaves)
	}

	m.log.Debug("undo manager operation",
		logger.String("operation", op),
		logger.String("command", cmd.ShortDescription()),
		logger.Int("leaves", len(leaves)),
		logger.Int("undo_depth", len(m.undoStack)),
		logger.Int("redo_depth", len(m.redoStack)))

	m.metrics.RecordOperation(op, metrics.StatusSuccess, len(leaves))
	m.metrics.UpdateStacks(len(m.undoStack), len(m.redoStack), len(m.tx))
	m.emit(Event{Kind: kind, Command: cmd, Leaves: leaves, Depth: len(m.tx)})
}

func (m *Manager) fail(op string, err error) error {
	m.metrics.RecordOperation(op, metrics.StatusError, 0)
	return err
}
