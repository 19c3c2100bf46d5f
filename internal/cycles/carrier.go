package cycles

import (
	"strings"

	"github.com/vk/splode/internal/datablock"
)

// Priority maps a type key to its carrier priority. Lower values are
// preferred; unlisted keys have priority 0.
//
// Keys are upper-case kind keys ("OBJECT", "MESH"). Objects can be refined
// by sub-type: "OBJECT_ARMATURE" is consulted before "OBJECT".
type Priority map[string]int

// DefaultPriority prefers armature objects, then other objects, then empties,
// over every other kind.
func DefaultPriority() Priority {
	return Priority{
		"OBJECT_ARMATURE": -20,
		"OBJECT":          -10,
		"OBJECT_EMPTY":    -5,
	}
}

// Key returns the priority key used for b.
func (p Priority) Key(b *datablock.Block) string {
	key := b.Kind.Key()
	if b.Kind == datablock.Object && b.SubType != "" {
		refined := key + "_" + strings.ToUpper(b.SubType)
		if _, ok := p[refined]; ok {
			return refined
		}
	}
	return key
}

// Of returns the priority of b.
func (p Priority) Of(b *datablock.Block) int {
	return p[p.Key(b)]
}

// Partition is the carrier assignment of one group.
type Partition struct {
	Group    *Group
	Carrier  *datablock.Block
	Embedded []*datablock.Block
}

// Assignment is the result of SelectCarriers.
type Assignment struct {
	Partitions []Partition
	carriers   map[*datablock.Block]int
	embedded   map[*datablock.Block]int
}

// SelectCarriers picks one carrier per group: the member with the lowest
// priority, ties going to the first member in stable order. All other
// members are embedded.
func SelectCarriers(groups []*Group, p Priority) *Assignment {
	a := &Assignment{
		Partitions: make([]Partition, 0, len(groups)),
		carriers:   make(map[*datablock.Block]int, len(groups)),
		embedded:   make(map[*datablock.Block]int),
	}
	for _, g := range groups {
		members := g.Members()
		if len(members) == 0 {
			continue
		}
		carrier := members[0]
		best := p.Of(carrier)
		for _, m := range members[1:] {
			if prio := p.Of(m); prio < best {
				carrier, best = m, prio
			}
		}

		i := len(a.Partitions)
		part := Partition{Group: g, Carrier: carrier}
		for _, m := range members {
			if m != carrier {
				part.Embedded = append(part.Embedded, m)
				a.embedded[m] = i
			}
		}
		a.carriers[carrier] = i
		a.Partitions = append(a.Partitions, part)
	}
	return a
}

// Carriers returns every carrier in group order.
func (a *Assignment) Carriers() []*datablock.Block {
	out := make([]*datablock.Block, 0, len(a.Partitions))
	for _, part := range a.Partitions {
		out = append(out, part.Carrier)
	}
	return out
}

// Embedded returns every embedded block in group order.
func (a *Assignment) Embedded() []*datablock.Block {
	var out []*datablock.Block
	for _, part := range a.Partitions {
		out = append(out, part.Embedded...)
	}
	return out
}

// IsCarrier reports whether b carries a group.
func (a *Assignment) IsCarrier(b *datablock.Block) bool {
	_, ok := a.carriers[b]
	return ok
}

// IsEmbedded reports whether b travels inside another block's unit.
func (a *Assignment) IsEmbedded(b *datablock.Block) bool {
	_, ok := a.embedded[b]
	return ok
}

// PartitionOf returns the partition b is a member of.
func (a *Assignment) PartitionOf(b *datablock.Block) (Partition, bool) {
	if i, ok := a.carriers[b]; ok {
		return a.Partitions[i], true
	}
	if i, ok := a.embedded[b]; ok {
		return a.Partitions[i], true
	}
	return Partition{}, false
}
