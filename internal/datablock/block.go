package datablock

import (
	"cmp"
	"fmt"
	"slices"
)

// Unit is the library record of an external unit that owns linked blocks.
type Unit struct {
	// Path is the unit path as written into link references, e.g.
	// "//_meshes/M1.hcl".
	Path string
	// Name is a display name for diagnostics. The extractor sets it to
	// "<kind>-<name>" of the block the unit was written for.
	Name string
}

// Block is a handle to one datablock in the host store.
type Block struct {
	Kind Kind
	Name string
	// SubType refines the kind, e.g. "ARMATURE" or "EMPTY" for objects.
	SubType string
	// KeepIfUnused keeps the block when nothing references it.
	KeepIfUnused bool
	// Unit is nil for local blocks. Once set, the block is owned by an
	// external unit and is never extracted again.
	Unit *Unit

	uses []*Block
}

// New creates a local block.
func New(kind Kind, name string) *Block {
	return &Block{Kind: kind, Name: name}
}

// IsLinked reports whether the block is owned by an external unit.
func (b *Block) IsLinked() bool {
	return b.Unit != nil
}

// Ref returns the textual address of the block.
func (b *Block) Ref() Ref {
	r := Ref{Kind: b.Kind, Name: b.Name}
	if b.Unit != nil {
		r.Unit = b.Unit.Path
	}
	return r
}

// String implements fmt.Stringer.
func (b *Block) String() string {
	if b == nil {
		return "<nil>"
	}
	return b.Ref().String()
}

// GoString keeps %#v output readable in test failures.
func (b *Block) GoString() string {
	return fmt.Sprintf("datablock.Block(%s)", b)
}

// Uses returns the blocks this block depends on, in insertion order. The
// returned slice is a copy.
func (b *Block) Uses() []*Block {
	return slices.Clone(b.uses)
}

// AddUse records that b depends on dep. Adding the same dependency twice is a
// no-op.
func (b *Block) AddUse(dep *Block) {
	if dep == nil || slices.Contains(b.uses, dep) {
		return
	}
	b.uses = append(b.uses, dep)
}

// ReplaceUse rewrites a dependency on from into a dependency on to. It
// reports whether b referenced from at all.
func (b *Block) ReplaceUse(from, to *Block) bool {
	idx := slices.Index(b.uses, from)
	if idx < 0 {
		return false
	}
	if slices.Contains(b.uses, to) {
		b.uses = slices.Delete(b.uses, idx, idx+1)
	} else {
		b.uses[idx] = to
	}
	return true
}

// Compare orders blocks by kind, name and unit path. Local blocks sort before
// linked blocks with the same kind and name.
func Compare(a, b *Block) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	var ua, ub string
	if a.Unit != nil {
		ua = "@" + a.Unit.Path
	}
	if b.Unit != nil {
		ub = "@" + b.Unit.Path
	}
	return cmp.Compare(ua, ub)
}

// Sort sorts blocks in place using Compare.
func Sort(blocks []*Block) {
	slices.SortFunc(blocks, Compare)
}
