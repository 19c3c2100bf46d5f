package resolve

import (
	"context"
	"fmt"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/inmemorystore"
	"github.com/vk/splode/internal/unitfile"
	"github.com/vk/splode/internal/unitpath"
)

// Execute runs a command against an isolated copy of the carrier unit. It
// returns StatusNotImplemented for unknown actions and StatusNotFound when
// the target is not a datablock of the unit. Any other failure is returned
// as an error.
func Execute(ctx context.Context, cmd Command) (ExitStatus, error) {
	logger := ctxlog.FromContext(ctx).With("unit", cmd.Unit, "action", cmd.Action)

	if cmd.Action != ActionRelinkEmbedded {
		logger.Error("Unknown resolve action.")
		return StatusNotImplemented, nil
	}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	resolver, err := unitpath.NewResolver(cmd.Base)
	if err != nil {
		return 0, err
	}
	store := inmemorystore.New()
	codec := unitfile.NewCodec(store, resolver, nil)

	f, err := codec.Read(cmd.Unit)
	if err != nil {
		return 0, err
	}
	if _, err := unitfile.Materialize(store, f, nil); err != nil {
		return 0, fmt.Errorf("failed to open unit %s: %w", cmd.Unit, err)
	}

	targetRef, _ := cmd.TargetRef()
	target, ok := store.Lookup(targetRef)
	if !ok {
		logger.Error("Target datablock not found in unit.", "target", targetRef.String())
		return StatusNotFound, nil
	}

	memberRefs, _ := cmd.MemberRefs()
	members := make(map[*datablock.Block]string, len(memberRefs))
	var order []*datablock.Block
	for _, ref := range memberRefs {
		m, ok := store.Lookup(ref)
		if !ok || m == target {
			logger.Debug("Member is not local to the unit, skipping.", "member", ref.String())
			continue
		}
		path, err := unitpath.For(cmd.Root, m.Kind, m.Name, cmd.Extension)
		if err != nil {
			return 0, err
		}
		if path == cmd.Unit {
			return 0, fmt.Errorf("member %s maps onto the carrier unit %s", m, cmd.Unit)
		}
		members[m] = path
		order = append(order, m)
	}
	if len(order) == 0 {
		logger.Info("No embedded members left to split out.")
		return StatusOK, nil
	}

	// Every local block gets a linked twin: members in their own unit, the
	// rest in the carrier unit. Remapping onto the twins leaves every local
	// block using linked handles only.
	var locals []*datablock.Block
	for _, b := range store.Blocks(ctx, nil) {
		if !b.IsLinked() {
			locals = append(locals, b)
		}
	}
	for _, b := range locals {
		unit := cmd.Unit
		if path, ok := members[b]; ok {
			unit = path
		}
		twin := &datablock.Block{Kind: b.Kind, Name: b.Name, SubType: b.SubType, KeepIfUnused: b.KeepIfUnused, Unit: store.Unit(unit)}
		if err := store.Add(twin); err != nil {
			return 0, err
		}
		if err := store.Remap(ctx, b, twin); err != nil {
			return 0, err
		}
	}

	for _, m := range order {
		if err := codec.Write(ctx, members[m], []*datablock.Block{m}); err != nil {
			return 0, err
		}
		logger.Info("Split embedded member into its own unit.", "member", m.String(), "member_unit", members[m])
	}

	var remaining []*datablock.Block
	for _, b := range locals {
		if _, split := members[b]; !split {
			remaining = append(remaining, b)
		}
	}
	carrier := unitfile.Closure(remaining)
	carrier.Localize(cmd.Unit)
	if err := codec.Rewrite(ctx, cmd.Unit, carrier); err != nil {
		return 0, err
	}

	logger.Info("Relinked embedded members.", "members", len(order))
	return StatusOK, nil
}
