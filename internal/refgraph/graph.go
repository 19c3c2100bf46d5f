package refgraph

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/hoststore"
)

// Graph is the read-only reference relation of one run.
type Graph struct {
	blocks []*datablock.Block
	index  map[*datablock.Block]int
	users  map[*datablock.Block][]*datablock.Block
	uses   map[*datablock.Block][]*datablock.Block
}

// Build queries the store once and returns the reference graph restricted to
// kinds. Blocks the store reports as replaced are left out, so a graph built
// after an earlier run holds only the linked replacements.
func Build(ctx context.Context, store hoststore.Store, kinds datablock.KindSet) (*Graph, error) {
	if store == nil {
		return nil, fmt.Errorf("cannot build reference graph without a store")
	}
	userMap := store.UserMap(ctx, kinds)
	replaced := 0
	for b := range userMap {
		if store.Replaced(b) {
			delete(userMap, b)
			replaced++
		}
	}
	if replaced > 0 {
		ctxlog.FromContext(ctx).Debug("Skipped replaced datablocks.", "count", replaced)
	}

	g := FromUserMap(userMap)
	edges := 0
	for _, users := range g.users {
		edges += len(users)
	}
	ctxlog.FromContext(ctx).Debug("Built reference graph.", "blocks", len(g.blocks), "edges", edges)
	return g, nil
}

// FromUserMap builds a graph from an already computed block -> consumers map.
// Consumers that are not keys of the map are dropped.
func FromUserMap(userMap map[*datablock.Block][]*datablock.Block) *Graph {
	g := &Graph{
		blocks: make([]*datablock.Block, 0, len(userMap)),
		index:  make(map[*datablock.Block]int, len(userMap)),
		users:  make(map[*datablock.Block][]*datablock.Block, len(userMap)),
		uses:   make(map[*datablock.Block][]*datablock.Block, len(userMap)),
	}
	for b := range userMap {
		g.blocks = append(g.blocks, b)
	}
	datablock.Sort(g.blocks)
	for i, b := range g.blocks {
		g.index[b] = i
		g.users[b] = []*datablock.Block{}
		g.uses[b] = []*datablock.Block{}
	}

	for _, b := range g.blocks {
		for _, consumer := range userMap[b] {
			if _, ok := g.index[consumer]; !ok || slices.Contains(g.users[b], consumer) {
				continue
			}
			g.users[b] = append(g.users[b], consumer)
			g.uses[consumer] = append(g.uses[consumer], b)
		}
	}
	for _, b := range g.blocks {
		datablock.Sort(g.users[b])
		datablock.Sort(g.uses[b])
	}
	return g
}

// Blocks returns every block of the graph in stable order.
func (g *Graph) Blocks() []*datablock.Block {
	return slices.Clone(g.blocks)
}

// Len returns the number of blocks.
func (g *Graph) Len() int {
	return len(g.blocks)
}

// At returns the block at position i of the stable order.
func (g *Graph) At(i int) *datablock.Block {
	return g.blocks[i]
}

// Has reports whether b is part of the graph.
func (g *Graph) Has(b *datablock.Block) bool {
	_, ok := g.index[b]
	return ok
}

// Index returns the position of b in the stable order, or -1.
func (g *Graph) Index(b *datablock.Block) int {
	if i, ok := g.index[b]; ok {
		return i
	}
	return -1
}

// UsersOf returns the consumers of b in stable order.
func (g *Graph) UsersOf(b *datablock.Block) []*datablock.Block {
	return slices.Clone(g.users[b])
}

// UsesOf returns the dependencies of b in stable order.
func (g *Graph) UsesOf(b *datablock.Block) []*datablock.Block {
	return slices.Clone(g.uses[b])
}

// Stable sorts blocks by their position in the graph. Blocks that are not in
// the graph go last, ordered by datablock.Compare.
func (g *Graph) Stable(blocks []*datablock.Block) {
	slices.SortFunc(blocks, func(a, b *datablock.Block) int {
		ia, iaOK := g.index[a]
		ib, ibOK := g.index[b]
		switch {
		case iaOK && ibOK:
			return ia - ib
		case iaOK:
			return -1
		case ibOK:
			return 1
		}
		return datablock.Compare(a, b)
	})
}
