package undo

import "slices"

// EventKind identifies a manager notification.
type EventKind int

const (
	EventDone EventKind = iota
	EventUnDone
	EventReDone
	EventTransactionStarted
	EventTransactionEnded
	EventTransactionCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventDone:
		return "done"
	case EventUnDone:
		return "undone"
	case EventReDone:
		return "redone"
	case EventTransactionStarted:
		return "transaction-started"
	case EventTransactionEnded:
		return "transaction-ended"
	case EventTransactionCancelled:
		return "transaction-cancelled"
	default:
		return "unknown"
	}
}

// Event is delivered once per logical operation. For a transaction, the
// boundary event carries the whole composite and its flattened leaves, so
// subscribers never see one notification per nested composite.
type Event struct {
	Kind EventKind
	// Command is the top-level command of the operation.
	Command Command
	// Leaves lists the affected leaf commands in the order they were
	// applied: reverse execution order for undo and cancel.
	Leaves []Command
	// Depth is the number of transactions open after the operation.
	Depth int
	// Empty marks a transaction that ended with no commands.
	Empty bool
}

// Subscribe registers fn for every notification. The returned function
// removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		m.listeners = slices.DeleteFunc(m.listeners, func(l listener) bool { return l.id == id })
	}
}

func (m *Manager) emit(ev Event) {
	for _, l := range slices.Clone(m.listeners) {
		l.fn(ev)
	}
}
