package cycles

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vk/splode/internal/datablock"
)

// ErrNotDisjoint is returned by AssertDisjoint when two groups share a block.
var ErrNotDisjoint = errors.New("cycle groups are not disjoint")

// Group is an unordered set of blocks that are persisted together. Members
// are kept sorted with datablock.Compare.
type Group struct {
	members []*datablock.Block
	set     map[*datablock.Block]struct{}
}

// NewGroup builds a group from the given blocks. Duplicates are merged.
func NewGroup(blocks ...*datablock.Block) *Group {
	g := &Group{set: make(map[*datablock.Block]struct{}, len(blocks))}
	for _, b := range blocks {
		if _, dup := g.set[b]; dup {
			continue
		}
		g.set[b] = struct{}{}
		g.members = append(g.members, b)
	}
	datablock.Sort(g.members)
	return g
}

// Members returns the members in stable order.
func (g *Group) Members() []*datablock.Block {
	return slices.Clone(g.members)
}

// Len returns the number of members.
func (g *Group) Len() int {
	return len(g.members)
}

// Contains reports whether b is a member.
func (g *Group) Contains(b *datablock.Block) bool {
	_, ok := g.set[b]
	return ok
}

// IsSubsetOf reports whether every member of g is also a member of other.
func (g *Group) IsSubsetOf(other *Group) bool {
	if g.Len() > other.Len() {
		return false
	}
	for _, b := range g.members {
		if !other.Contains(b) {
			return false
		}
	}
	return true
}

// Equal reports whether both groups have the same members.
func (g *Group) Equal(other *Group) bool {
	return g.Len() == other.Len() && g.IsSubsetOf(other)
}

// String renders the group as "{a, b}".
func (g *Group) String() string {
	parts := make([]string, 0, len(g.members))
	for _, b := range g.members {
		parts = append(parts, b.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Unify collapses the cycles into maximal groups. An incoming cycle already
// covered by a kept group is discarded; otherwise every kept group it covers
// is dropped and the cycle is kept as a new group. Groups are returned in the
// order they were first kept, which makes the result deterministic for a
// deterministic input.
//
// Unify does not check disjointness; use AssertDisjoint on the result.
func Unify(cycles iter.Seq[Cycle]) []*Group {
	var kept []*Group
	for c := range cycles {
		incoming := NewGroup(c...)
		if incoming.Len() == 0 {
			continue
		}
		covered := slices.ContainsFunc(kept, func(k *Group) bool {
			return incoming.IsSubsetOf(k)
		})
		if covered {
			continue
		}
		kept = slices.DeleteFunc(kept, func(k *Group) bool {
			return k.IsSubsetOf(incoming)
		})
		kept = append(kept, incoming)
	}
	return kept
}

// AsCycles presents groups as cycles, so that already unified groups can be
// fed back into Unify.
func AsCycles(groups []*Group) iter.Seq[Cycle] {
	return func(yield func(Cycle) bool) {
		for _, g := range groups {
			if !yield(Cycle(g.Members())) {
				return
			}
		}
	}
}

// DisjointError identifies a block that belongs to two groups.
type DisjointError struct {
	Block  *datablock.Block
	First  *Group
	Second *Group
}

func (e *DisjointError) Error() string {
	return fmt.Sprintf("datablock %s is in cycle groups %s and %s", e.Block, e.First, e.Second)
}

func (e *DisjointError) Unwrap() error {
	return ErrNotDisjoint
}

// AssertDisjoint checks that no block is a member of two groups. The first
// violation found is returned as a *DisjointError.
func AssertDisjoint(groups []*Group) error {
	seen := make(map[*datablock.Block]*Group)
	for _, g := range groups {
		for _, b := range g.members {
			if first, ok := seen[b]; ok {
				return &DisjointError{Block: b, First: first, Second: g}
			}
			seen[b] = g
		}
	}
	return nil
}
