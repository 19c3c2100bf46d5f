package inmemorystore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/hoststore"
)

// Store implements hoststore.Store using a block index and a mutex.
type Store struct {
	mu       sync.RWMutex
	blocks   map[*datablock.Block]struct{}
	byRef    map[datablock.Ref]*datablock.Block
	units    map[string]*datablock.Unit
	remapped map[*datablock.Block]struct{}
}

var _ hoststore.Store = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{
		blocks:   make(map[*datablock.Block]struct{}),
		byRef:    make(map[datablock.Ref]*datablock.Block),
		units:    make(map[string]*datablock.Unit),
		remapped: make(map[*datablock.Block]struct{}),
	}
}

// Add registers a block. Local blocks must be unique per kind and name, and
// linked blocks unique per unit, kind and name.
func (s *Store) Add(b *datablock.Block) error {
	if b == nil {
		return fmt.Errorf("cannot add nil datablock")
	}
	if !b.Kind.Valid() {
		return fmt.Errorf("datablock %q has unknown kind %q", b.Name, b.Kind)
	}
	if b.Name == "" {
		return fmt.Errorf("datablock of kind %s has an empty name", b.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[b]; exists {
		return nil
	}
	ref := b.Ref()
	if _, exists := s.byRef[ref]; exists {
		return fmt.Errorf("datablock %s already exists in store", ref)
	}
	if b.Unit != nil {
		if known, ok := s.units[b.Unit.Path]; ok && known != b.Unit {
			return fmt.Errorf("datablock %s refers to a second record for unit %s", ref, b.Unit.Path)
		}
		s.units[b.Unit.Path] = b.Unit
	}
	s.blocks[b] = struct{}{}
	s.byRef[ref] = b
	return nil
}

// MustAdd is Add for fixtures; it panics on error.
func (s *Store) MustAdd(blocks ...*datablock.Block) {
	for _, b := range blocks {
		if err := s.Add(b); err != nil {
			panic(err)
		}
	}
}

// Lookup finds a block by reference.
func (s *Store) Lookup(ref datablock.Ref) (*datablock.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byRef[ref]
	return b, ok
}

// Contains reports whether the handle belongs to this store.
func (s *Store) Contains(b *datablock.Block) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blocks[b]
	return ok
}

// Unit returns the library record for a unit path, creating it on first use.
func (s *Store) Unit(path string) *datablock.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.units[path]; ok {
		return u
	}
	u := &datablock.Unit{Path: path}
	s.units[path] = u
	return u
}

// Units returns every known library record ordered by path.
func (s *Store) Units() []*datablock.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	units := make([]*datablock.Unit, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, u)
	}
	slices.SortFunc(units, func(a, b *datablock.Unit) int {
		if a.Path < b.Path {
			return -1
		}
		if a.Path > b.Path {
			return 1
		}
		return 0
	})
	return units
}

// Len returns the number of blocks in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// Blocks returns every block of the selected kinds in stable order.
func (s *Store) Blocks(ctx context.Context, kinds datablock.KindSet) []*datablock.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocksLocked(kinds)
}

func (s *Store) blocksLocked(kinds datablock.KindSet) []*datablock.Block {
	out := make([]*datablock.Block, 0, len(s.blocks))
	for b := range s.blocks {
		if kinds.Has(b.Kind) {
			out = append(out, b)
		}
	}
	datablock.Sort(out)
	return out
}

// UserMap returns block -> consumers restricted to kinds on both sides.
func (s *Store) UserMap(ctx context.Context, kinds datablock.KindSet) map[*datablock.Block][]*datablock.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := s.blocksLocked(kinds)
	users := make(map[*datablock.Block][]*datablock.Block, len(blocks))
	for _, b := range blocks {
		users[b] = []*datablock.Block{}
	}
	// blocks is sorted, so appending consumers in this order keeps every
	// consumer list sorted as well.
	for _, consumer := range blocks {
		for _, dep := range consumer.Uses() {
			if _, included := users[dep]; included {
				users[dep] = append(users[dep], consumer)
			}
		}
	}

	ctxlog.FromContext(ctx).Debug("Built user map.", "blocks", len(users))
	return users
}

// UsersOf returns every block in the store that uses b, of any kind.
func (s *Store) UsersOf(b *datablock.Block) []*datablock.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersOfLocked(b)
}

func (s *Store) usersOfLocked(b *datablock.Block) []*datablock.Block {
	var out []*datablock.Block
	for candidate := range s.blocks {
		if slices.Contains(candidate.Uses(), b) {
			out = append(out, candidate)
		}
	}
	datablock.Sort(out)
	return out
}

// Remap rewrites every reference to from into a reference to to.
func (s *Store) Remap(ctx context.Context, from, to *datablock.Block) error {
	if from == to {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[from]; !ok {
		return fmt.Errorf("remap source %s not found in store", from)
	}
	if _, ok := s.blocks[to]; !ok {
		return fmt.Errorf("remap target %s not found in store", to)
	}

	rewired := 0
	for b := range s.blocks {
		if b.ReplaceUse(from, to) {
			rewired++
		}
	}
	s.remapped[from] = struct{}{}

	ctxlog.FromContext(ctx).Debug("Remapped datablock.", "from", from.String(), "to", to.String(), "users", rewired)
	return nil
}

// Replaced reports whether b was the source of a Remap and has not been
// collected yet.
func (s *Store) Replaced(b *datablock.Block) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.remapped[b]
	return ok
}

// Remove deletes a block from the store. References to it held by other
// blocks are left untouched.
func (s *Store) Remove(b *datablock.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(b)
}

func (s *Store) removeLocked(b *datablock.Block) {
	if _, ok := s.blocks[b]; !ok {
		return
	}
	delete(s.blocks, b)
	delete(s.remapped, b)
	if s.byRef[b.Ref()] == b {
		delete(s.byRef, b.Ref())
	}
}

// Rehome moves a linked block to another unit record, keeping its handle.
func (s *Store) Rehome(b *datablock.Block, unit *datablock.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[b]; !ok {
		return fmt.Errorf("datablock %s not found in store", b)
	}
	newRef := datablock.Ref{Kind: b.Kind, Name: b.Name, Unit: unit.Path}
	if other, exists := s.byRef[newRef]; exists && other != b {
		return fmt.Errorf("datablock %s already exists in store", newRef)
	}
	if known, ok := s.units[unit.Path]; ok && known != unit {
		unit = known
	}
	s.units[unit.Path] = unit

	delete(s.byRef, b.Ref())
	b.Unit = unit
	s.byRef[b.Ref()] = b
	return nil
}

// CollectGarbage removes remapped-away blocks that nothing uses anymore,
// repeating until no further block can be removed. A remapped block has been
// replaced, so KeepIfUnused does not protect it. It returns the removed blocks
// in stable order.
func (s *Store) CollectGarbage(ctx context.Context) []*datablock.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*datablock.Block
	for {
		var batch []*datablock.Block
		for b := range s.remapped {
			if len(s.usersOfLocked(b)) == 0 {
				batch = append(batch, b)
			}
		}
		if len(batch) == 0 {
			break
		}
		for _, b := range batch {
			s.removeLocked(b)
		}
		removed = append(removed, batch...)
	}

	datablock.Sort(removed)
	ctxlog.FromContext(ctx).Debug("Collected garbage.", "removed", len(removed))
	return removed
}
