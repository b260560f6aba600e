package domain

// JobContext is the work-order-derived metadata attached to every
// outbound exchange. Empty fields mean "no selection" and must be
// passed through as absent, never defaulted: reply quality depends on
// not fabricating context.
type JobContext struct {
	Model string // equipment model identifier, e.g. "CS-X400D2"
	Step  string // current procedural step label
}

// ContextBinder supplies the job context for outbound exchanges.
// Implementations are read-only views over whatever selection
// mechanism is current.
type ContextBinder interface {
	Context() JobContext
}
