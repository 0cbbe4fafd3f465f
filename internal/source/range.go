// Package source holds position types shared by every stage of the extraction pipeline.
package source

import "fmt"

// Range is a half-open byte span [StartOffset, EndOffset) with the 1-indexed lines it covers.
type Range struct {
	Unit        string `json:"unit,omitempty"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Join returns the smallest range covering both r and other.
// Unit is taken from r.
func (r Range) Join(other Range) Range {
	out := r
	if other.StartOffset < out.StartOffset {
		out.StartOffset = other.StartOffset
		out.StartLine = other.StartLine
	}
	if other.EndOffset > out.EndOffset {
		out.EndOffset = other.EndOffset
		out.EndLine = other.EndLine
	}
	return out
}

// Contains reports whether other lies entirely inside r.
func (r Range) Contains(other Range) bool {
	return other.StartOffset >= r.StartOffset && other.EndOffset <= r.EndOffset
}

// WithUnit returns a copy of r stamped with the given unit ID.
func (r Range) WithUnit(unit string) Range {
	r.Unit = unit
	return r
}

func (r Range) String() string {
	lines := fmt.Sprintf("%d", r.StartLine)
	if r.EndLine != r.StartLine {
		lines = fmt.Sprintf("%d-%d", r.StartLine, r.EndLine)
	}
	if r.Unit == "" {
		return lines
	}
	return r.Unit + ":" + lines
}
