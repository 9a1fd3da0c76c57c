package pipeline

// LogEntry is one per-record or per-batch outcome produced by a worker,
// relayed to the logging collaborator on the orchestrating side. Level is
// one of DEBUG, INFO, WARNING, ERROR, CRITICAL.
type LogEntry struct {
	Level   string
	Message string
}

// BatchResult is the outcome of one batch: counts plus the log entries the
// worker collected. Results arrive at the orchestrator in no particular
// cross-worker order.
type BatchResult struct {
	Batch   BatchID
	Records int
	Written int
	Skipped int
	Entries []LogEntry
	// Err is a write failure that aborted the batch's remaining writes.
	// The pool survives it; the orchestrator reports it.
	Err error
}
