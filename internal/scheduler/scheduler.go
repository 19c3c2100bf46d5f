package scheduler

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/vk/splode/internal/cycles"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/refgraph"
)

// ErrCyclicInput is returned when the graph contains a loop that no cycle
// group covers.
var ErrCyclicInput = errors.New("graph contains a cycle that is not covered by a cycle group")

// CyclicInputError carries the uncovered loop. Blocks of contracted groups
// are represented by their first member.
type CyclicInputError struct {
	Path []*datablock.Block
}

func (e *CyclicInputError) Error() string {
	parts := make([]string, 0, len(e.Path)+1)
	for _, b := range e.Path {
		parts = append(parts, b.String())
	}
	if len(e.Path) > 0 {
		parts = append(parts, e.Path[0].String())
	}
	return fmt.Sprintf("%s: %s", ErrCyclicInput, strings.Join(parts, " -> "))
}

func (e *CyclicInputError) Unwrap() error {
	return ErrCyclicInput
}

// Scheduler produces the bottom-up order of one graph.
type Scheduler struct {
	graph *refgraph.Graph
	// groupOf maps a group member to its group index.
	groupOf map[*datablock.Block]int
	members [][]*datablock.Block
	err     error
}

// New creates a scheduler for g. The groups must be disjoint; members that
// are not part of g are ignored.
func New(g *refgraph.Graph, groups []*cycles.Group) *Scheduler {
	s := &Scheduler{
		graph:   g,
		groupOf: make(map[*datablock.Block]int),
	}
	for _, grp := range groups {
		var inGraph []*datablock.Block
		for _, b := range grp.Members() {
			if g.Has(b) {
				inGraph = append(inGraph, b)
			}
		}
		if len(inGraph) == 0 {
			continue
		}
		g.Stable(inGraph)
		idx := len(s.members)
		for _, b := range inGraph {
			s.groupOf[b] = idx
		}
		s.members = append(s.members, inGraph)
	}
	return s
}

// Err returns the error that stopped the last iteration, if any.
func (s *Scheduler) Err() error {
	return s.err
}

// unit identifies a scheduling unit: a block index in the graph, or
// graph.Len()+i for group i.
type unit int

func (s *Scheduler) unitOf(b *datablock.Block) unit {
	if gi, ok := s.groupOf[b]; ok {
		return unit(s.graph.Len() + gi)
	}
	return unit(s.graph.Index(b))
}

func (s *Scheduler) blocksOf(u unit) []*datablock.Block {
	if n := s.graph.Len(); int(u) >= n {
		return s.members[int(u)-n]
	}
	return []*datablock.Block{s.graph.At(int(u))}
}

// depsOf returns the units a unit uses, excluding itself, in stable order.
func (s *Scheduler) depsOf(u unit) []unit {
	var deps []unit
	seen := map[unit]struct{}{u: {}}
	for _, b := range s.blocksOf(u) {
		for _, dep := range s.graph.UsesOf(b) {
			du := s.unitOf(dep)
			if _, dup := seen[du]; dup {
				continue
			}
			seen[du] = struct{}{}
			deps = append(deps, du)
		}
	}
	return deps
}

// standalone reports whether b can be yielded before the general walk: it
// is kept even if unused, nothing uses it, and it uses nothing.
func (s *Scheduler) standalone(b *datablock.Block) bool {
	if !b.KeepIfUnused {
		return false
	}
	if _, grouped := s.groupOf[b]; grouped {
		return false
	}
	for _, user := range s.graph.UsersOf(b) {
		if user != b {
			return false
		}
	}
	for _, dep := range s.graph.UsesOf(b) {
		if dep != b {
			return false
		}
	}
	return true
}

type state uint8

const (
	unvisited state = iota
	onStack
	done
)

type frame struct {
	unit unit
	deps []unit
	next int
}

// Order returns the bottom-up sequence of every block in the graph. Each
// call restarts the walk and resets Err.
func (s *Scheduler) Order() iter.Seq[*datablock.Block] {
	return func(yield func(*datablock.Block) bool) {
		s.err = nil
		blocks := s.graph.Blocks()
		states := make(map[unit]state, len(blocks))

		for _, b := range blocks {
			if s.standalone(b) {
				states[s.unitOf(b)] = done
				if !yield(b) {
					return
				}
			}
		}

		for _, root := range blocks {
			ru := s.unitOf(root)
			if states[ru] != unvisited {
				continue
			}
			states[ru] = onStack
			stack := []frame{{unit: ru, deps: s.depsOf(ru)}}

			for len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.next < len(top.deps) {
					dep := top.deps[top.next]
					top.next++
					switch states[dep] {
					case unvisited:
						states[dep] = onStack
						stack = append(stack, frame{unit: dep, deps: s.depsOf(dep)})
					case onStack:
						s.err = s.loopError(stack, dep)
						return
					}
					continue
				}

				states[top.unit] = done
				finished := top.unit
				stack = stack[:len(stack)-1]
				for _, b := range s.blocksOf(finished) {
					if !yield(b) {
						return
					}
				}
			}
		}
	}
}

func (s *Scheduler) loopError(stack []frame, back unit) error {
	start := 0
	for i, f := range stack {
		if f.unit == back {
			start = i
			break
		}
	}
	path := make([]*datablock.Block, 0, len(stack)-start)
	for _, f := range stack[start:] {
		path = append(path, s.blocksOf(f.unit)[0])
	}
	return &CyclicInputError{Path: path}
}
