package symbols

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/symdex/internal/source"
)

// Render formats s as hover text: the qualified name, the declaration header
// and the documentation.
func Render(s *Symbol) string {
	var b strings.Builder

	name := s.QualifiedName()
	if name == "" {
		name = "crate"
	}
	fmt.Fprintf(&b, "%s (%s, %s)\n", name, s.Kind, s.Visibility)

	switch {
	case s.Signature != "":
		b.WriteString(s.Signature)
		b.WriteString("\n")
	case s.Text != "":
		b.WriteString(s.Text)
		b.WriteString("\n")
	}

	if len(s.Doc()) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(s.Doc(), "\n"))
		b.WriteString("\n")
	}
	if len(s.InnerDoc) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(s.InnerDoc, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// View is the serialisable form of a symbol used by the CLI and MCP tools.
type View struct {
	Path       string       `json:"path"`
	Kind       Kind         `json:"kind"`
	Name       string       `json:"name"`
	Visibility Visibility   `json:"visibility"`
	Generics   string       `json:"generics,omitempty"`
	Signature  string       `json:"signature,omitempty"`
	Attributes []string     `json:"attributes,omitempty"`
	Doc        []string     `json:"doc,omitempty"`
	InnerDoc   []string     `json:"inner_doc,omitempty"`
	Text       string       `json:"text,omitempty"`
	Patterns   []string     `json:"patterns,omitempty"`
	Range      source.Range `json:"range"`
	Children   int          `json:"children"`
}

// ViewOf builds the View for s.
func ViewOf(s *Symbol) View {
	return View{
		Path:       s.QualifiedName(),
		Kind:       s.Kind,
		Name:       s.Name,
		Visibility: s.Visibility,
		Generics:   s.Generics,
		Signature:  s.Signature,
		Attributes: s.Attributes,
		Doc:        s.Doc(),
		InnerDoc:   s.InnerDoc,
		Text:       s.Text,
		Patterns:   s.Patterns,
		Range:      s.Range,
		Children:   len(s.Children),
	}
}
