package splode

import (
	"github.com/vk/splode/internal/cycles"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/extract"
)

// GroupReport is the outcome of one cycle group.
type GroupReport struct {
	Group    *cycles.Group
	Carrier  *datablock.Block
	Embedded []*datablock.Block
	// Relinked lists embedded members that the secondary pass moved into
	// their own unit.
	Relinked []*datablock.Block
	// SecondaryErr is set when the secondary pass failed or was skipped
	// because the carrier was not extracted.
	SecondaryErr error
}

// Failure is a block whose extraction failed.
type Failure struct {
	Block *datablock.Block
	Err   error
}

// Report summarizes one decomposition run.
type Report struct {
	RunID       string
	Groups      []*GroupReport
	Extracted   []*extract.Result
	AlreadyDone []*datablock.Block
	// Ambiguous holds exactly the blocks whose replacement could not be
	// identified. They were written but not remapped.
	Ambiguous []*datablock.Block
	// Unmatched holds embedded members that their carrier's unit did not
	// contain. References to them stay on the original.
	Unmatched []*datablock.Block
	Failures  []Failure
}

// Problems counts the parts of the run that need attention: failures,
// ambiguous and unmatched blocks, and failed secondary passes.
func (r *Report) Problems() int {
	n := len(r.Failures) + len(r.Ambiguous) + len(r.Unmatched)
	for _, g := range r.Groups {
		if g.SecondaryErr != nil {
			n++
		}
	}
	return n
}

// Replacement returns the linked handle that replaced b during the run, or
// nil if b was not remapped.
func (r *Report) Replacement(b *datablock.Block) *datablock.Block {
	for _, res := range r.Extracted {
		if res.Block == b {
			return res.Replacement
		}
		if c, ok := res.Companions[b]; ok {
			return c
		}
	}
	return nil
}

// CycleReport is the result of a cycle preview.
type CycleReport struct {
	// Cycles are the first raw cycles in discovery order.
	Cycles     []cycles.Cycle
	Groups     []*cycles.Group
	Partitions []cycles.Partition
}
