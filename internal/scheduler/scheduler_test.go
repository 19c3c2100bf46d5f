package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/cycles"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/refgraph"
	"github.com/vk/splode/internal/testutil"
)

// graphOf builds a graph from "user uses dep" pairs.
func graphOf(blocks []*datablock.Block, uses ...[2]*datablock.Block) *refgraph.Graph {
	users := make(map[*datablock.Block][]*datablock.Block, len(blocks))
	for _, b := range blocks {
		users[b] = nil
	}
	for _, e := range uses {
		user, dep := e[0], e[1]
		users[dep] = append(users[dep], user)
	}
	return refgraph.FromUserMap(users)
}

func TestOrderMeshBeforeObject(t *testing.T) {
	mesh := datablock.New(datablock.Mesh, "M1")
	obj := datablock.New(datablock.Object, "O1")
	mat := datablock.New(datablock.Material, "Red")
	g := graphOf([]*datablock.Block{obj, mesh, mat},
		[2]*datablock.Block{obj, mesh},
		[2]*datablock.Block{mesh, mat},
	)

	s := New(g, nil)
	order := slices.Collect(s.Order())
	require.NoError(t, s.Err())
	assert.Equal(t, []*datablock.Block{mat, mesh, obj}, order)
}

func TestOrderKeepIfUnused(t *testing.T) {
	// --- Arrange ---
	f := testutil.NewFixture(t)
	f.Uses("object/A", "mesh/M")
	text := f.Block("text/Notes", testutil.Keep())
	orphan := f.Block("object/Orphan", testutil.Keep())
	f.Uses("object/Orphan", "mesh/M")
	g, err := refgraph.Build(context.Background(), f.Store, nil)
	require.NoError(t, err)

	// --- Act ---
	s := New(g, nil)
	order := slices.Collect(s.Order())

	// --- Assert ---
	require.NoError(t, s.Err())
	require.Len(t, order, 4)
	assert.Same(t, text, order[0], "unused keep-flagged blocks come first")
	testutil.AssertBefore(t, order, f.Get("mesh/M"), orphan)
	testutil.AssertBefore(t, order, f.Get("mesh/M"), f.Get("object/A"))
}

func TestOrderContractsGroups(t *testing.T) {
	mat := datablock.New(datablock.Material, "Mat")
	mesh := datablock.New(datablock.Mesh, "M")
	o1 := datablock.New(datablock.Object, "O1")
	o2 := datablock.New(datablock.Object, "O2")
	top := datablock.New(datablock.Object, "Top")
	g := graphOf([]*datablock.Block{mat, mesh, o1, o2, top},
		[2]*datablock.Block{o1, o2},
		[2]*datablock.Block{o2, o1},
		[2]*datablock.Block{o2, mat},
		[2]*datablock.Block{o1, mesh},
		[2]*datablock.Block{top, o1},
	)
	group := cycles.NewGroup(o1, o2)

	s := New(g, []*cycles.Group{group})
	order := slices.Collect(s.Order())
	require.NoError(t, s.Err())

	assert.Equal(t, []*datablock.Block{mat, mesh, o1, o2, top}, order)
}

func TestOrderRejectsUngroupedCycle(t *testing.T) {
	a := datablock.New(datablock.Object, "A")
	b := datablock.New(datablock.Object, "B")
	g := graphOf([]*datablock.Block{a, b},
		[2]*datablock.Block{a, b},
		[2]*datablock.Block{b, a},
	)

	s := New(g, nil)
	order := slices.Collect(s.Order())
	assert.Empty(t, order)

	err := s.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCyclicInput)
	var cyclicErr *CyclicInputError
	require.True(t, errors.As(err, &cyclicErr))
	assert.Equal(t, []*datablock.Block{a, b}, cyclicErr.Path)
	assert.Contains(t, err.Error(), "object/A -> object/B -> object/A")

	t.Run("restart resets the error once groups cover the loop", func(t *testing.T) {
		s := New(g, []*cycles.Group{cycles.NewGroup(a, b)})
		assert.Equal(t, []*datablock.Block{a, b}, slices.Collect(s.Order()))
		assert.NoError(t, s.Err())
	})
}

func TestOrderSelfReference(t *testing.T) {
	a := datablock.New(datablock.NodeTree, "Loop")
	g := graphOf([]*datablock.Block{a}, [2]*datablock.Block{a, a})

	s := New(g, nil)
	assert.Equal(t, []*datablock.Block{a}, slices.Collect(s.Order()))
	assert.NoError(t, s.Err())
}

func TestOrderEarlyStop(t *testing.T) {
	a := datablock.New(datablock.Mesh, "A")
	b := datablock.New(datablock.Mesh, "B")
	s := New(graphOf([]*datablock.Block{a, b}), nil)

	for range s.Order() {
		break
	}
	assert.NoError(t, s.Err())
}

// The uses relation only points from higher to lower indices, so the graph
// is acyclic.
func randomDAG(rng *rand.Rand, n int) ([]*datablock.Block, [][2]*datablock.Block) {
	blocks := make([]*datablock.Block, n)
	for i := range blocks {
		blocks[i] = datablock.New(datablock.Object, fmt.Sprintf("N%02d", rng.IntN(1000)*100+i))
		blocks[i].KeepIfUnused = rng.IntN(4) == 0
	}
	var edges [][2]*datablock.Block
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			if rng.IntN(3) == 0 {
				edges = append(edges, [2]*datablock.Block{blocks[i], blocks[j]})
			}
		}
	}
	return blocks, edges
}

func TestOrderAcyclicProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := range 100 {
		blocks, edges := randomDAG(rng, 1+rng.IntN(12))
		t.Run(fmt.Sprintf("dag %d", i), func(t *testing.T) {
			s := New(graphOf(blocks, edges...), nil)
			order := slices.Collect(s.Order())
			require.NoError(t, s.Err())

			assert.ElementsMatch(t, blocks, order, "every block exactly once")
			for _, e := range edges {
				testutil.AssertBefore(t, order, e[1], e[0])
			}
		})
	}
}
