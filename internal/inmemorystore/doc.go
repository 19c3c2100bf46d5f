// Package inmemorystore provides an ephemeral, in-memory implementation of
// the hoststore.Store interface.
//
// # Purpose
//
// This package is the host data store for local decomposition runs and for
// tests. Working files and unit files are loaded into a Store by
// internal/unitfile; the engine then queries and remaps it through the
// hoststore.Store capability.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each loaded file, not persistent
//   - **Deterministic:** Blocks, consumers and units are returned in stable order
//   - **Identity-Based:** Blocks are pointer handles; a local and a linked
//     block may share kind and name
//   - **Guarded:** A mutex protects the maps for concurrent readers
//
// # Garbage Collection
//
// Remap leaves the original block in the store with zero users, the same way
// the host keeps unused data until it is purged. CollectGarbage removes those
// remapped-away blocks once nothing uses them anymore.
package inmemorystore
