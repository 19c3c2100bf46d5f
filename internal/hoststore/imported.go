package hoststore

import (
	"slices"

	"github.com/vk/splode/internal/datablock"
)

// Imported is the set of linked handles produced by one Persistence.Link
// call, kept in unit order and grouped by kind.
type Imported struct {
	Unit   *datablock.Unit
	blocks []*datablock.Block
	byKind map[datablock.Kind][]*datablock.Block
}

// NewImported builds an Imported set for the given unit.
func NewImported(unit *datablock.Unit, blocks ...*datablock.Block) *Imported {
	imp := &Imported{
		Unit:   unit,
		byKind: make(map[datablock.Kind][]*datablock.Block),
	}
	for _, b := range blocks {
		imp.Add(b)
	}
	return imp
}

// Add appends a handle to the set.
func (i *Imported) Add(b *datablock.Block) {
	i.blocks = append(i.blocks, b)
	i.byKind[b.Kind] = append(i.byKind[b.Kind], b)
}

// All returns every imported handle in unit order.
func (i *Imported) All() []*datablock.Block {
	return slices.Clone(i.blocks)
}

// Len returns the number of imported handles.
func (i *Imported) Len() int {
	return len(i.blocks)
}

// OfKind returns the imported handles of one kind in unit order.
func (i *Imported) OfKind(kind datablock.Kind) []*datablock.Block {
	return slices.Clone(i.byKind[kind])
}

// Find returns the imported handle with the given kind and name.
func (i *Imported) Find(kind datablock.Kind, name string) (*datablock.Block, bool) {
	for _, b := range i.byKind[kind] {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}
