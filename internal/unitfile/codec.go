package unitfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/hoststore"
	"github.com/vk/splode/internal/inmemorystore"
	"github.com/vk/splode/internal/unitpath"
)

// Codec implements hoststore.Persistence for an in-memory store, storing
// units as HCL files.
type Codec struct {
	store    *inmemorystore.Store
	resolver *unitpath.Resolver
	cache    *Cache
}

var _ hoststore.Persistence = (*Codec)(nil)

// NewCodec creates a codec that links units into store. A nil cache disables
// caching.
func NewCodec(store *inmemorystore.Store, resolver *unitpath.Resolver, cache *Cache) *Codec {
	return &Codec{store: store, resolver: resolver, cache: cache}
}

// Resolver returns the path resolver of the codec.
func (c *Codec) Resolver() *unitpath.Resolver {
	return c.resolver
}

// Store returns the store the codec links units into.
func (c *Codec) Store() *inmemorystore.Store {
	return c.store
}

// Write saves roots and the local blocks they transitively use into a new
// unit. Linked blocks along the way become link entries.
func (c *Codec) Write(ctx context.Context, unitPath string, roots []*datablock.Block) error {
	logger := ctxlog.FromContext(ctx)

	abs, err := c.resolver.EnsureDir(unitPath)
	if err != nil {
		return err
	}
	f := Closure(roots)
	f.Localize(unitPath)
	if err := WriteFile(abs, f); err != nil {
		return fmt.Errorf("unit %s: %w", unitPath, err)
	}
	c.invalidate(abs)

	logger.Debug("Wrote unit.", "unit", unitPath, "datablocks", len(f.Datablocks), "links", len(f.Links))
	return nil
}

// Link imports every datablock of the unit as a linked handle. Handles that
// are already in the store are reused.
func (c *Codec) Link(ctx context.Context, unitPath string) (*hoststore.Imported, error) {
	abs, err := c.resolver.Abs(unitPath)
	if err != nil {
		return nil, err
	}
	f, err := c.read(abs)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", unitPath, err)
	}

	unit := c.store.Unit(unitPath)
	blocks, err := Materialize(c.store, f, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to link unit %s: %w", unitPath, err)
	}

	ctxlog.FromContext(ctx).Debug("Linked unit.", "unit", unitPath, "datablocks", len(blocks))
	return hoststore.NewImported(unit, blocks...), nil
}

// Rewrite replaces the content of an existing unit.
func (c *Codec) Rewrite(ctx context.Context, unitPath string, f *File) error {
	abs, err := c.resolver.Abs(unitPath)
	if err != nil {
		return err
	}
	if err := WriteFile(abs, f); err != nil {
		return fmt.Errorf("unit %s: %w", unitPath, err)
	}
	c.invalidate(abs)
	ctxlog.FromContext(ctx).Debug("Rewrote unit.", "unit", unitPath)
	return nil
}

// Read returns the decoded unit at unitPath.
func (c *Codec) Read(unitPath string) (*File, error) {
	abs, err := c.resolver.Abs(unitPath)
	if err != nil {
		return nil, err
	}
	return c.read(abs)
}

func (c *Codec) read(abs string) (*File, error) {
	if c.cache != nil {
		return c.cache.Read(abs)
	}
	return ReadFile(abs)
}

func (c *Codec) invalidate(abs string) {
	if c.cache != nil {
		c.cache.Invalidate(abs)
	}
}

// Closure builds the file content for roots: every local block reachable
// through uses becomes an entry, every linked block reached becomes a link.
// Entries and links are in stable order.
func Closure(roots []*datablock.Block) *File {
	var (
		locals  []*datablock.Block
		linked  []*datablock.Block
		visited = make(map[*datablock.Block]struct{})
		queue   = append([]*datablock.Block(nil), roots...)
	)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b == nil {
			continue
		}
		if _, seen := visited[b]; seen {
			continue
		}
		visited[b] = struct{}{}
		if b.IsLinked() {
			linked = append(linked, b)
			continue
		}
		locals = append(locals, b)
		queue = append(queue, b.Uses()...)
	}
	datablock.Sort(locals)
	datablock.Sort(linked)
	return fileOf(locals, linked)
}

func fileOf(locals, linked []*datablock.Block) *File {
	f := &File{}
	for _, b := range locals {
		f.Datablocks = append(f.Datablocks, entryOf(b))
	}
	for _, b := range linked {
		f.Links = append(f.Links, &LinkEntry{Kind: string(b.Kind), Name: b.Name, Unit: b.Unit.Path})
	}
	return f
}

func entryOf(b *datablock.Block) *Entry {
	e := &Entry{Kind: string(b.Kind), Name: b.Name, SubType: b.SubType, Keep: b.KeepIfUnused}
	for _, dep := range b.Uses() {
		e.Uses = append(e.Uses, dep.Ref().String())
	}
	return e
}

// Materialize adds the content of f to store and returns the handles of its
// datablock entries in file order. With a nil owner the entries become local
// blocks; otherwise they become linked blocks owned by owner, reusing
// handles the store already holds.
func Materialize(store *inmemorystore.Store, f *File, owner *datablock.Unit) ([]*datablock.Block, error) {
	handles := make(map[datablock.Ref]*datablock.Block, len(f.Datablocks))
	fresh := make(map[*datablock.Block]bool, len(f.Datablocks))
	out := make([]*datablock.Block, 0, len(f.Datablocks))

	for _, e := range f.Datablocks {
		b := &datablock.Block{Kind: datablock.Kind(e.Kind), Name: e.Name, SubType: e.SubType, KeepIfUnused: e.Keep, Unit: owner}
		if existing, ok := store.Lookup(b.Ref()); ok && owner != nil {
			b = existing
		} else {
			if err := store.Add(b); err != nil {
				return nil, err
			}
			fresh[b] = true
		}
		handles[e.Ref()] = b
		out = append(out, b)
	}

	for _, l := range f.Links {
		if _, err := linkedHandle(store, l.Ref()); err != nil {
			return nil, err
		}
	}

	for i, e := range f.Datablocks {
		b := out[i]
		if !fresh[b] {
			continue
		}
		for _, raw := range e.Uses {
			ref, err := datablock.ParseRef(raw)
			if err != nil {
				return nil, err
			}
			var dep *datablock.Block
			if ref.IsLinked() {
				if dep, err = linkedHandle(store, ref); err != nil {
					return nil, err
				}
			} else if dep = handles[ref]; dep == nil {
				return nil, fmt.Errorf("datablock %s uses unknown datablock %s", b, ref)
			}
			b.AddUse(dep)
		}
	}
	return out, nil
}

func linkedHandle(store *inmemorystore.Store, ref datablock.Ref) (*datablock.Block, error) {
	if b, ok := store.Lookup(ref); ok {
		return b, nil
	}
	b := &datablock.Block{Kind: ref.Kind, Name: ref.Name, Unit: store.Unit(ref.Unit)}
	if err := store.Add(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Load reads a working file into a fresh in-memory store.
func Load(ctx context.Context, path string) (*inmemorystore.Store, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	store := inmemorystore.New()
	if _, err := Materialize(store, f, nil); err != nil {
		return nil, fmt.Errorf("failed to load working file %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Loaded working file.", "path", path, "datablocks", store.Len())
	return store, nil
}

// Save writes every local block of store as an entry and every linked block
// as a link.
func Save(ctx context.Context, store *inmemorystore.Store, path string) error {
	var locals, linked []*datablock.Block
	for _, b := range store.Blocks(ctx, nil) {
		if b.IsLinked() {
			linked = append(linked, b)
		} else {
			locals = append(locals, b)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := WriteFile(path, fileOf(locals, linked)); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Saved working file.", "path", path, "datablocks", len(locals), "links", len(linked))
	return nil
}

// List reads the unit or working file at path without materialising it.
func List(ctx context.Context, path string) (*File, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Listed unit file.", "path", path, "datablocks", len(f.Datablocks), "links", len(f.Links))
	return f, nil
}
