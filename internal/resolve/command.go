package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/vk/splode/internal/datablock"
)

// ActionRelinkEmbedded splits the embedded members of a carrier unit into
// units of their own.
const ActionRelinkEmbedded = "relink-embedded"

// Command is the structured request sent to the child.
type Command struct {
	Action string `json:"action"`
	// Base is the absolute project base directory, the meaning of "//".
	Base string `json:"base"`
	// Root and Extension are used to derive the members' unit paths.
	Root      string `json:"root"`
	Extension string `json:"extension"`
	// Unit is the unit path of the carrier unit.
	Unit string `json:"unit"`
	// Target is the carrier, as a local reference "kind/name".
	Target string `json:"target"`
	// Members are the embedded members to split out, as local references.
	Members []string `json:"members"`
}

// Validate checks that the command is complete. It does not check the
// action, so that unknown actions reach the child and get reported there.
func (c Command) Validate() error {
	var errs []error
	if c.Action == "" {
		errs = append(errs, fmt.Errorf("action is required"))
	}
	if c.Base == "" {
		errs = append(errs, fmt.Errorf("base is required"))
	}
	if c.Unit == "" {
		errs = append(errs, fmt.Errorf("unit is required"))
	}
	if _, err := c.TargetRef(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MemberRefs(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid resolve command: %w", err)
	}
	return nil
}

// TargetRef parses Target.
func (c Command) TargetRef() (datablock.Ref, error) {
	return localRef("target", c.Target)
}

// MemberRefs parses Members, dropping duplicates.
func (c Command) MemberRefs() ([]datablock.Ref, error) {
	refs := make([]datablock.Ref, 0, len(c.Members))
	for _, raw := range c.Members {
		ref, err := localRef("member", raw)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(refs, ref) {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func localRef(field, raw string) (datablock.Ref, error) {
	ref, err := datablock.ParseRef(raw)
	if err != nil {
		return datablock.Ref{}, fmt.Errorf("%s: %w", field, err)
	}
	if ref.IsLinked() {
		return datablock.Ref{}, fmt.Errorf("%s %q must be a local reference", field, raw)
	}
	return ref, nil
}

// Encode writes the command as JSON.
func Encode(w io.Writer, c Command) error {
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode resolve command: %w", err)
	}
	return nil
}

// Decode reads a JSON command and validates it.
func Decode(r io.Reader) (Command, error) {
	var c Command
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Command{}, fmt.Errorf("failed to decode resolve command: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}
