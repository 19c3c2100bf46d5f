// Package datablock defines the handle types the decomposition engine works
// with: kinds, datablocks, units and textual references.
//
// # Why a Closed Kind Registry
//
// The host data store exposes many categories of objects. Instead of
// discovering them at runtime, every kind the engine knows about is listed
// once in this package together with its folder name and whether it may be
// decomposed. Excluding a kind is therefore a static, checkable decision:
//
//	kinds := datablock.Decomposable()          // everything but DefaultExcluded
//	kinds := datablock.Decomposable(datablock.Scene, datablock.Text) // custom exclusions
//
// # Handles
//
// A *Block is an opaque handle owned by the host store. Identity is pointer
// identity: two handles with the same kind and name are different blocks when
// one of them is local and the other is linked from a unit. The Unit field is
// nil for local blocks and acts as the "already decomposed" marker once set.
//
// # References
//
// A Ref is the textual address of a block, used in unit files and on the
// command line:
//
//	mesh/M1                      a local block
//	mesh/M1@//_meshes/M1.hcl     a block linked from a unit
package datablock
