package symbols

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by ParseKind for names that match no Kind.
var ErrUnknownKind = errors.New("unknown symbol kind")

// Kind is the declaration form a Symbol was recorded from.
type Kind uint8

const (
	Module Kind = iota
	Struct
	Enum
	Trait
	Impl
	Function
	Const
	Static
	TypeAlias
	MacroDef
	MacroInvocation
	ExternBlock
	Field
	Variant
	Method
	AssocConst
	AssocType
)

var kindNames = [...]string{
	Module:          "module",
	Struct:          "struct",
	Enum:            "enum",
	Trait:           "trait",
	Impl:            "impl",
	Function:        "function",
	Const:           "const",
	Static:          "static",
	TypeAlias:       "type_alias",
	MacroDef:        "macro_def",
	MacroInvocation: "macro_invocation",
	ExternBlock:     "extern_block",
	Field:           "field",
	Variant:         "variant",
	Method:          "method",
	AssocConst:      "assoc_const",
	AssocType:       "assoc_type",
}

// Kinds lists every Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind accepts the String form of a Kind, case-insensitively and with or
// without separators ("type_alias", "TypeAlias", "type-alias").
func ParseKind(s string) (Kind, error) {
	want := normalizeKind(s)
	for i, name := range kindNames {
		if normalizeKind(name) == want {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func normalizeKind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Visibility is the four-level reach of a declaration.
type Visibility uint8

const (
	Private Visibility = iota
	Public
	CratePublic
	SelfPublic
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "pub"
	case CratePublic:
		return "pub(crate)"
	case SelfPublic:
		return "pub(self)"
	}
	return "private"
}

// ParseVisibility maps a textual qualifier to a Visibility. pub(super) and
// pub(in path) are crate-restricted and map to CratePublic.
func ParseVisibility(qualifier string) Visibility {
	q := strings.Join(strings.Fields(qualifier), "")
	switch {
	case q == "":
		return Private
	case q == "pub":
		return Public
	case q == "pub(self)":
		return SelfPublic
	case q == "pub(crate)", q == "pub(super)", strings.HasPrefix(q, "pub(in"):
		return CratePublic
	case q == "crate":
		// Legacy `crate fn` qualifier.
		return CratePublic
	}
	return Private
}

func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Visibility) UnmarshalText(b []byte) error {
	*v = ParseVisibility(string(b))
	return nil
}
