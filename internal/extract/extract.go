package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/hoststore"
	"github.com/vk/splode/internal/unitpath"
)

// Status is the outcome of one extraction.
type Status int

const (
	// StatusExtracted means the block now lives in its own unit and every
	// reference points at the linked replacement.
	StatusExtracted Status = iota
	// StatusAlreadyDone means the block was already owned by a unit.
	StatusAlreadyDone
	// StatusAmbiguous means the unit was written and linked but the
	// replacement could not be identified, so nothing was remapped.
	StatusAmbiguous
)

func (s Status) String() string {
	switch s {
	case StatusExtracted:
		return "extracted"
	case StatusAlreadyDone:
		return "already-done"
	case StatusAmbiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result describes one extraction.
type Result struct {
	Block       *datablock.Block
	Status      Status
	UnitPath    string
	Replacement *datablock.Block
	// Companions maps each remapped companion onto its linked replacement.
	Companions map[*datablock.Block]*datablock.Block
	// Unmatched lists companions that were not found in the unit.
	Unmatched []*datablock.Block
}

// Extractor performs extractions against one store. Unit paths claimed
// during its lifetime are never handed to a second block.
type Extractor struct {
	store     hoststore.Store
	persist   hoststore.Persistence
	extension string
	claims    map[string]*datablock.Block
	done      map[*datablock.Block]*Result
}

// New creates an extractor writing units with the given file extension.
func New(store hoststore.Store, persist hoststore.Persistence, extension string) *Extractor {
	return &Extractor{
		store:     store,
		persist:   persist,
		extension: extension,
		claims:    make(map[string]*datablock.Block),
		done:      make(map[*datablock.Block]*Result),
	}
}

// UnitPath returns the unit path b is extracted to under root.
func (x *Extractor) UnitPath(b *datablock.Block, root string) (string, error) {
	return unitpath.For(root, b.Kind, b.Name, x.extension)
}

// Extract writes b, and the local blocks it carries, into a new unit under
// root, links the unit back and remaps b onto its linked replacement.
// Companions are carried members of b's unit; each one is remapped onto the
// imported handle with the same kind and name.
//
// An ambiguous resolution returns both a Result with StatusAmbiguous and an
// *AmbiguousError.
func (x *Extractor) Extract(ctx context.Context, b *datablock.Block, root string, companions ...*datablock.Block) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("datablock", b.String())

	if b.IsLinked() {
		logger.Debug("Datablock already owned by a unit, skipping.", "unit", b.Unit.Path)
		return &Result{Block: b, Status: StatusAlreadyDone, UnitPath: b.Unit.Path}, nil
	}
	if prev, ok := x.done[b]; ok {
		logger.Debug("Datablock already extracted, skipping.", "unit", prev.UnitPath)
		return &Result{Block: b, Status: StatusAlreadyDone, UnitPath: prev.UnitPath, Replacement: prev.Replacement}, nil
	}

	path, err := x.claim(b, root)
	if err != nil {
		return nil, err
	}
	logger.Info("Extracting datablock.", "unit", path)

	if err := x.persist.Write(ctx, path, []*datablock.Block{b}); err != nil {
		x.release(path, b)
		return nil, fmt.Errorf("failed to write %s: %w", b, err)
	}

	imported, err := x.persist.Link(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to link %s back from %s: %w", b, path, err)
	}
	logger.Debug("Linked unit back.", "unit", path, "imported", imported.Len())

	res := &Result{Block: b, UnitPath: path, Companions: make(map[*datablock.Block]*datablock.Block)}

	replacement, ok := resolve(b, imported)
	if !ok {
		res.Status = StatusAmbiguous
		ambErr := &AmbiguousError{Block: b, UnitPath: path, Imported: imported.All()}
		logger.Warn("Could not identify the linked replacement; references are left on the original.", "unit", path, "imported", imported.Len())
		return res, ambErr
	}
	res.Replacement = replacement
	replacement.Unit.Name = string(b.Kind) + "-" + b.Name

	if err := x.store.Remap(ctx, b, replacement); err != nil {
		return nil, fmt.Errorf("failed to remap %s: %w", b, err)
	}

	for _, c := range companions {
		if c == nil || c == b || c.IsLinked() {
			continue
		}
		linked, found := imported.Find(c.Kind, c.Name)
		if !found {
			res.Unmatched = append(res.Unmatched, c)
			logger.Warn("Carried datablock not found in unit.", "companion", c.String(), "unit", path)
			continue
		}
		if err := x.store.Remap(ctx, c, linked); err != nil {
			return nil, fmt.Errorf("failed to remap carried %s: %w", c, err)
		}
		res.Companions[c] = linked
	}

	res.Status = StatusExtracted
	x.done[b] = res
	for c := range res.Companions {
		x.done[c] = res
	}
	logger.Info("Extracted datablock.", "unit", path, "carried", len(res.Companions))
	return res, nil
}

// resolve picks the imported handle that replaces b: the only import if
// there is exactly one, otherwise the import of the same kind and name.
func resolve(b *datablock.Block, imported *hoststore.Imported) (*datablock.Block, bool) {
	if imported.Len() == 1 {
		return imported.All()[0], true
	}
	return imported.Find(b.Kind, b.Name)
}

// claim reserves the unit path of b. Paths are compared case-insensitively
// so that two units never share a file on case-insensitive filesystems.
func (x *Extractor) claim(b *datablock.Block, root string) (string, error) {
	path, err := x.UnitPath(b, root)
	if err != nil {
		return "", &CollisionError{Block: b, Cause: err}
	}
	key := strings.ToLower(path)
	if claimant, ok := x.claims[key]; ok && claimant != b {
		return "", &CollisionError{Block: b, UnitPath: path, Claimant: claimant}
	}
	x.claims[key] = b
	return path, nil
}

func (x *Extractor) release(path string, b *datablock.Block) {
	key := strings.ToLower(path)
	if x.claims[key] == b {
		delete(x.claims, key)
	}
}
