// Package hl7 builds HL7 v2.4 ADT messages from normalized patients and
// serializes them as ER7. The Transformer adapts the build to the pipeline's
// per-record contract; Message satisfies the writer's artifact contract so
// finished messages flow straight to disk.
package hl7
