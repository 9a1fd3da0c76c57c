// Package patient validates and normalizes one raw extract record into a
// Patient. Field-level problems (overlong identifiers, non-numeric NHS
// numbers, invalid dates) are logged for the data quality team and the
// offending value is truncated or dropped; they never fail the record.
// Exclusion rules decide whether a normalized patient should produce an
// HL7 message at all.
package patient
