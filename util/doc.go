// Package util provides small parsing and string helpers shared across the
// converter: human-readable size strings for configuration, and the
// truncation/whitespace/digit rules used when normalizing patient fields.
package util
