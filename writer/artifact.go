package writer

// Artifact is one transformed output unit ready for persistence. The
// pipeline is oblivious to its internal structure beyond the partition key
// and its serialized form.
type Artifact interface {
	// PartitionField returns the raw field the year partition derives
	// from (e.g. a YYYYMMDD date of birth). May be empty.
	PartitionField() string
	// Serialize renders the artifact as text. Internal line breaks may use
	// any convention; the writer normalizes them.
	Serialize() (string, error)
}
