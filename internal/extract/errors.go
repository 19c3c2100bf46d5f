package extract

import (
	"errors"
	"fmt"

	"github.com/vk/splode/internal/datablock"
)

var (
	// ErrAmbiguousResolution is returned when a unit imported several
	// handles and none matches the extracted block by name.
	ErrAmbiguousResolution = errors.New("ambiguous resolution, no match found")

	// ErrUnitPathCollision is returned when a block cannot be given a unit
	// path of its own.
	ErrUnitPathCollision = errors.New("unit path collision")
)

// AmbiguousError reports a block whose replacement could not be identified.
// The original block is left in place and still referenced.
type AmbiguousError struct {
	Block    *datablock.Block
	UnitPath string
	Imported []*datablock.Block
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: %d datablocks imported from %s, none named %q of kind %s",
		ErrAmbiguousResolution, len(e.Imported), e.UnitPath, e.Block.Name, e.Block.Kind)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousResolution
}

// CollisionError reports a block whose unit path is already claimed by
// another block, or whose name cannot form a unit path at all.
type CollisionError struct {
	Block    *datablock.Block
	UnitPath string
	// Claimant is the block that claimed UnitPath first. It is nil when the
	// name itself is unusable.
	Claimant *datablock.Block
	Cause    error
}

func (e *CollisionError) Error() string {
	if e.Claimant != nil {
		return fmt.Sprintf("%s: %s and %s both map to %s", ErrUnitPathCollision, e.Claimant, e.Block, e.UnitPath)
	}
	return fmt.Sprintf("%s: %s: %v", ErrUnitPathCollision, e.Block, e.Cause)
}

func (e *CollisionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUnitPathCollision, e.Cause}
	}
	return []error{ErrUnitPathCollision}
}
