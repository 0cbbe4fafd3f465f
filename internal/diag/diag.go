// Package diag collects the diagnostics produced while extracting symbols.
//
// Nothing in the pipeline aborts on malformed input. Each stage records what it
// could not understand as a Diagnostic and keeps going; the front-end decides how
// to surface them.
package diag

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/symdex/internal/source"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ErrUnknownSeverity is returned by ParseSeverity for unrecognised names.
var ErrUnknownSeverity = errors.New("unknown severity")

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SevInfo, nil
	case "warning":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Code identifies the kind of problem a diagnostic reports.
type Code string

const (
	// LexError: unterminated block comment or string literal.
	LexError Code = "LexError"
	// MalformedItem: a declaration the parser skipped.
	MalformedItem Code = "MalformedItem"
	// OrphanDocComment: a doc block attached to nothing.
	OrphanDocComment Code = "OrphanDocComment"
	// UnresolvedReExport: a public re-export whose target is not in the analyzed units.
	UnresolvedReExport Code = "UnresolvedReExport"
	// DuplicateModule: two units mapped to the same module path.
	DuplicateModule Code = "DuplicateModule"
)

// DefaultSeverity returns the severity a code is reported with.
func (c Code) DefaultSeverity() Severity {
	switch c {
	case LexError, MalformedItem:
		return SevError
	case UnresolvedReExport, DuplicateModule:
		return SevWarning
	default:
		return SevInfo
	}
}

// Diagnostic is a single finding tied to a source range.
type Diagnostic struct {
	Severity Severity     `json:"severity"`
	Code     Code         `json:"code"`
	Range    source.Range `json:"range"`
	Message  string       `json:"message"`
}

// New builds a diagnostic with the code's default severity.
func New(code Code, rng source.Range, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: code.DefaultSeverity(),
		Code:     code,
		Range:    rng,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Range, d.Severity, d.Code, d.Message)
}

// WithUnit stamps every diagnostic in ds with the unit ID, in place.
func WithUnit(ds []Diagnostic, unit string) []Diagnostic {
	for i := range ds {
		ds[i].Range.Unit = unit
	}
	return ds
}
