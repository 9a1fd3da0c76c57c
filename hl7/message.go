package hl7

import (
	"strings"
	"time"
)

// ER7 delimiters for HL7 v2.x.
const (
	fieldSeparator     = "|"
	componentSeparator = "^"
	segmentTerminator  = "\r"
	encodingCharacters = `^~\&`
)

// Field is one field value. Components beyond the first are joined with the
// component separator; a field with no components renders empty.
type Field struct {
	components []string
}

// Value makes a single-component field.
func Value(s string) Field { return Field{components: []string{s}} }

// Components makes a multi-component field. Trailing empty components are
// kept as given so positional components stay addressable.
func Components(parts ...string) Field { return Field{components: parts} }

func (f Field) er7() string {
	s := strings.Join(f.components, componentSeparator)
	// Trailing empty components carry no information on the wire.
	return strings.TrimRight(s, componentSeparator)
}

// Segment is one named segment with positional fields. Field indices are
// 1-based as in the standard; index 0 is the segment name.
type Segment struct {
	Name   string
	fields map[int]Field
	max    int
}

// NewSegment creates an empty segment.
func NewSegment(name string) *Segment {
	return &Segment{Name: name, fields: make(map[int]Field)}
}

// Set assigns a field at a 1-based index. Empty single-component values are
// ignored so absent patient data never produces explicit empty fields beyond
// the positions later fields force.
func (s *Segment) Set(index int, f Field) *Segment {
	if len(f.components) == 1 && f.components[0] == "" {
		return s
	}
	s.fields[index] = f
	if index > s.max {
		s.max = index
	}
	return s
}

// SetValue is Set with a single-component string.
func (s *Segment) SetValue(index int, value string) *Segment {
	return s.Set(index, Value(value))
}

// ER7 renders the segment. MSH is special: MSH-1 is the field separator
// itself and MSH-2 the encoding characters, so rendering starts at MSH-3
// after the literal "MSH|^~\&".
func (s *Segment) ER7() string {
	var b strings.Builder
	b.WriteString(s.Name)

	start := 1
	if s.Name == "MSH" {
		b.WriteString(fieldSeparator)
		b.WriteString(encodingCharacters)
		start = 3
	}
	for i := start; i <= s.max; i++ {
		b.WriteString(fieldSeparator)
		b.WriteString(s.fields[i].er7())
	}
	return b.String()
}

// Message is an ordered list of segments plus the partition key the writer
// needs.
type Message struct {
	segments []*Segment
	// dateOfBirth drives the output partition; empty lands in the fallback.
	dateOfBirth string
}

// Append adds a segment in order.
func (m *Message) Append(s *Segment) { m.segments = append(m.segments, s) }

// PartitionField returns the patient's date of birth (YYYYMMDD or empty).
func (m *Message) PartitionField() string { return m.dateOfBirth }

// Serialize renders the whole message as ER7, each segment terminated with a
// carriage return.
func (m *Message) Serialize() (string, error) {
	var b strings.Builder
	for _, seg := range m.segments {
		b.WriteString(seg.ER7())
		b.WriteString(segmentTerminator)
	}
	return b.String(), nil
}

// controlID derives the MSH-10 control identifier from the wall clock. The
// sub-second digits keep IDs distinct across messages built in the same
// second; uniqueness across the run additionally rests on the writer's
// sequence number.
func controlID(now time.Time) string {
	return now.Format("20060102150405") + now.Format(".000000")[1:]
}
