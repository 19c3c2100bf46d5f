package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/inmemorystore"
)

// Option configures a fixture block on creation.
type Option func(*datablock.Block)

// SubType sets the block's sub-type.
func SubType(s string) Option {
	return func(b *datablock.Block) { b.SubType = s }
}

// Keep marks the block keep-if-unused.
func Keep() Option {
	return func(b *datablock.Block) { b.KeepIfUnused = true }
}

// Fixture builds a store from short references like "object/O1" or
// "mesh/M1@//_meshes/M1.hcl".
type Fixture struct {
	t     *testing.T
	Store *inmemorystore.Store
}

// NewFixture creates a fixture around an empty in-memory store.
func NewFixture(t *testing.T) *Fixture {
	return &Fixture{t: t, Store: inmemorystore.New()}
}

// Block returns the block at ref, creating it on first use. Options only
// apply when the block is created.
func (f *Fixture) Block(ref string, opts ...Option) *datablock.Block {
	f.t.Helper()
	r, err := datablock.ParseRef(ref)
	require.NoError(f.t, err)
	if b, ok := f.Store.Lookup(r); ok {
		return b
	}

	b := datablock.New(r.Kind, r.Name)
	if r.IsLinked() {
		b.Unit = f.Store.Unit(r.Unit)
	}
	for _, opt := range opts {
		opt(b)
	}
	require.NoError(f.t, f.Store.Add(b))
	return b
}

// Uses records that user uses every dep, creating blocks on demand.
func (f *Fixture) Uses(user string, deps ...string) *Fixture {
	f.t.Helper()
	u := f.Block(user)
	for _, d := range deps {
		u.AddUse(f.Block(d))
	}
	return f
}

// Get returns an existing block and fails the test if it is missing.
func (f *Fixture) Get(ref string) *datablock.Block {
	f.t.Helper()
	r, err := datablock.ParseRef(ref)
	require.NoError(f.t, err)
	b, ok := f.Store.Lookup(r)
	require.True(f.t, ok, "no datablock %s in fixture store", ref)
	return b
}
