// Package hoststore defines the capabilities the decomposition engine needs
// from the host application that owns the datablocks.
//
// # Why Host Store Exists
//
// The engine never touches host state directly. Every query and mutation goes
// through an explicit handle passed to each component, which keeps the
// engine testable against an in-memory store and keeps the host's own object
// model out of the algorithms.
//
// This separation provides several architectural benefits:
//   - **Testability:** Graph algorithms run against internal/inmemorystore
//   - **Single Mutation Point:** Only Store.Remap rewires references
//   - **Replaceable Persistence:** The unit format lives behind Persistence
//
// # Lifecycle and Usage
//
// A host store is exclusively owned by one decomposition run for its whole
// duration. The engine:
//  1. **Queries** the user map once to build the reference graph
//  2. **Writes** units and **links** them back through Persistence
//  3. **Remaps** references from original blocks onto linked replacements
package hoststore

import (
	"context"

	"github.com/vk/splode/internal/datablock"
)

// Store is the query and mutation surface of the host data store.
//
// Implementations are not required to be safe for concurrent mutation; the
// engine is single-threaded within one run.
type Store interface {
	// Blocks returns every block whose kind is in kinds, local and linked,
	// in a stable order. A nil set selects every kind.
	Blocks(ctx context.Context, kinds datablock.KindSet) []*datablock.Block

	// UserMap returns, for every block of an included kind, the set of
	// included-kind blocks that use it (its consumers). Blocks without
	// consumers are present with an empty slice. Consumers are returned in
	// a stable order. The caller owns the returned map.
	UserMap(ctx context.Context, kinds datablock.KindSet) map[*datablock.Block][]*datablock.Block

	// Remap rewrites every reference to from, anywhere in the store, into a
	// reference to to. After it returns, from has no users.
	Remap(ctx context.Context, from, to *datablock.Block) error

	// Replaced reports whether b has been remapped onto a replacement and
	// is only kept until the host discards it.
	Replaced(b *datablock.Block) bool
}

// Persistence writes blocks into external units and links units back in.
type Persistence interface {
	// Write persists roots and every local block they transitively use into
	// a new unit at unitPath. Blocks that are already linked from another
	// unit are written as link references, not copied.
	Write(ctx context.Context, unitPath string, roots []*datablock.Block) error

	// Link opens the unit at unitPath and imports all of its datablocks as
	// linked handles owned by that unit.
	Link(ctx context.Context, unitPath string) (*Imported, error)
}
