package cycles

import (
	"iter"
	"slices"
	"strings"

	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/refgraph"
)

// Cycle is a path of at least two distinct blocks where every block is used
// by the next one and the last is used by the first.
type Cycle []*datablock.Block

// String renders the cycle as "a -> b -> a".
func (c Cycle) String() string {
	if len(c) == 0 {
		return "<empty>"
	}
	parts := make([]string, 0, len(c)+1)
	for _, b := range c {
		parts = append(parts, b.String())
	}
	parts = append(parts, c[0].String())
	return strings.Join(parts, " -> ")
}

// frame is one level of the explicit DFS stack.
type frame struct {
	block *datablock.Block
	users []*datablock.Block
	next  int
}

// Find returns a lazy sequence of the cycles in g. For every block, in stable
// order, it walks consumer edges depth-first. Reaching a block that is
// already on the current path yields the path from that block to the current
// one. Self-references are skipped. The walk does not prune after a report,
// so one loop is reported once per rotation and per path leading into it
// from inside its strongly connected component.
//
// Only blocks of components with two or more members start a walk, and a
// walk never leaves its component. Edges between components cannot close a
// cycle, so acyclic regions of the graph cost one linear pass.
//
// Each call to the returned sequence restarts the search. The graph must not
// change while a sequence is being consumed.
func Find(g *refgraph.Graph) iter.Seq[Cycle] {
	return func(yield func(Cycle) bool) {
		comp, sizes := components(g)
		for _, start := range g.Blocks() {
			if sizes[comp[start]] < 2 {
				continue
			}
			if !walk(g, comp, start, yield) {
				return
			}
		}
	}
}

// walk runs one DFS from start, following only consumers in start's
// component. It returns false when the consumer stopped the iteration.
func walk(g *refgraph.Graph, comp map[*datablock.Block]int, start *datablock.Block, yield func(Cycle) bool) bool {
	id := comp[start]
	path := []*datablock.Block{start}
	onPath := map[*datablock.Block]int{start: 0}
	stack := []frame{{block: start, users: g.UsersOf(start)}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.users) {
			delete(onPath, top.block)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		user := top.users[top.next]
		top.next++
		if user == top.block || comp[user] != id {
			continue
		}

		if pos, ok := onPath[user]; ok {
			if !yield(Cycle(slices.Clone(path[pos:]))) {
				return false
			}
			continue
		}

		onPath[user] = len(path)
		path = append(path, user)
		stack = append(stack, frame{block: user, users: g.UsersOf(user)})
	}
	return true
}

// components labels every block of g with its strongly connected component
// using Tarjan's algorithm on an explicit stack. It returns the label of each
// block and the size of each label.
func components(g *refgraph.Graph) (map[*datablock.Block]int, []int) {
	var (
		counter int
		index   = make(map[*datablock.Block]int, g.Len())
		low     = make(map[*datablock.Block]int, g.Len())
		onStack = make(map[*datablock.Block]bool, g.Len())
		comp    = make(map[*datablock.Block]int, g.Len())
		sizes   []int
		pending []*datablock.Block
		frames  []frame
	)

	visit := func(b *datablock.Block) {
		index[b] = counter
		low[b] = counter
		counter++
		pending = append(pending, b)
		onStack[b] = true
		frames = append(frames, frame{block: b, users: g.UsersOf(b)})
	}

	for _, root := range g.Blocks() {
		if _, seen := index[root]; seen {
			continue
		}
		visit(root)

		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			if top.next < len(top.users) {
				user := top.users[top.next]
				top.next++
				if _, seen := index[user]; !seen {
					visit(user)
				} else if onStack[user] {
					low[top.block] = min(low[top.block], index[user])
				}
				continue
			}

			b := top.block
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].block
				low[parent] = min(low[parent], low[b])
			}
			if low[b] != index[b] {
				continue
			}

			id, n := len(sizes), 0
			for {
				w := pending[len(pending)-1]
				pending = pending[:len(pending)-1]
				delete(onStack, w)
				comp[w] = id
				n++
				if w == b {
					break
				}
			}
			sizes = append(sizes, n)
		}
	}
	return comp, sizes
}

// Take materialises at most n cycles from seq. It returns nil for n <= 0.
func Take(seq iter.Seq[Cycle], n int) []Cycle {
	if n <= 0 {
		return nil
	}
	out := make([]Cycle, 0, n)
	for c := range seq {
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}
