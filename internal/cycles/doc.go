// Package cycles finds cyclic dependency groups in a reference graph and
// decides which member of each group carries the others.
//
// # Why Cycles Exist
//
// Units cannot link each other cyclically, so a set of blocks that use each
// other in a loop has to be persisted together in one unit. Handling cycles
// is a three-step pipeline:
//
//  1. **Find:** Find walks consumer edges depth-first and lazily yields every
//     cycle it meets. Rotations and duplicates are expected.
//  2. **Unify:** Unify collapses overlapping reports into maximal groups, and
//     AssertDisjoint validates that no block ended up in two groups.
//  3. **Select:** SelectCarriers picks the carrier of every group using a
//     type priority table; the remaining members are embedded.
//
// A disjointness violation means the graph has a shape the decomposition
// does not support, e.g. a block that is part of two independent loops. It
// is a fatal error for the whole run.
package cycles
