package datablock

import (
	"fmt"
	"strings"
)

// Ref is the textual address of a datablock: "kind/name" for local blocks
// and "kind/name@unit" for linked ones.
type Ref struct {
	Kind Kind
	Name string
	Unit string
}

// String serializes the Ref into its canonical representation.
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.Kind))
	sb.WriteRune('/')
	sb.WriteString(r.Name)
	if r.Unit != "" {
		sb.WriteRune('@')
		sb.WriteString(r.Unit)
	}
	return sb.String()
}

// IsLinked reports whether the reference points into a unit.
func (r Ref) IsLinked() bool {
	return r.Unit != ""
}

// Matches reports whether the reference addresses b.
func (r Ref) Matches(b *Block) bool {
	return b != nil && b.Ref() == r
}

// ParseRef creates a Ref from its canonical string representation. The name
// may contain any character except '/' and '@'; the unit part is taken
// verbatim after the first '@'.
func ParseRef(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("reference cannot be empty")
	}

	body, unit, hasUnit := strings.Cut(raw, "@")
	if hasUnit && unit == "" {
		return Ref{}, fmt.Errorf("reference %q has an empty unit path", raw)
	}

	kindStr, name, ok := strings.Cut(body, "/")
	if !ok {
		return Ref{}, fmt.Errorf("invalid reference format %q: expected kind/name", raw)
	}
	if name == "" || strings.Contains(name, "/") {
		return Ref{}, fmt.Errorf("invalid datablock name in reference %q", raw)
	}

	kind, err := ParseKind(kindStr)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid reference %q: %w", raw, err)
	}

	return Ref{Kind: kind, Name: name, Unit: unit}, nil
}
