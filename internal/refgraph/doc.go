// Package refgraph holds the "who uses whom" relation over the decomposable
// datablocks of one run.
//
// # Why Reference Graph Exists
//
// The host store only answers "who uses this block" as a whole-store query.
// Every algorithm of a decomposition run (cycle finding, scheduling, carrier
// selection) walks the relation many times in both directions, so the graph
// queries the host exactly once and keeps two adjacency maps:
//   - **Users:** block -> blocks that reference it (its consumers)
//   - **Uses:** block -> blocks it references (its dependencies)
//
// Excluded kinds are never present, neither as keys nor as neighbours.
//
// # Lifecycle
//
//  1. **Built** once per run by Build from a hoststore.Store
//  2. **Read** by the cycle finder, the carrier selector and the scheduler
//  3. **Discarded** when the run ends; it is never updated after Build
//
// A block that references itself keeps the self edge in both maps. The
// cycle finder ignores such edges.
package refgraph
