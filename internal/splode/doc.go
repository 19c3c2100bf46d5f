// Package splode decomposes a datablock store into external units.
//
// A Decomposer wires the core components into one run:
//
//  1. build the reference graph of the configured kinds,
//  2. find and unify reference cycles, then check that the groups are
//     disjoint,
//  3. pick one carrier per group; the other members are embedded,
//  4. schedule every block bottom-up, with groups contracted,
//  5. extract every scheduled block that is not embedded.
//
// Carriers take their embedded members along into their unit. With
// secondary resolution enabled, each carrier unit is then handed to a
// resolve.Runner that splits the embedded members out of it, and the run
// relinks them from their new units.
//
// # Failure Isolation
//
// A failing block or group never stops the run:
//
//   - **Per-block failures** (write, link, collision) land in
//     Report.Failures.
//   - **Ambiguous resolutions** land in Report.Ambiguous, and only there.
//     References to such a block stay on the original.
//   - **Secondary-pass failures** are recorded on the GroupReport.
//
// Only two conditions abort a run: overlapping cycle groups
// (cycles.ErrNotDisjoint) and a cycle the scheduler was not told about
// (scheduler.ErrCyclicInput). Both are detected before anything is
// written.
package splode
