package splode

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/cycles"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/extract"
	"github.com/vk/splode/internal/hoststore"
	"github.com/vk/splode/internal/refgraph"
	"github.com/vk/splode/internal/resolve"
	"github.com/vk/splode/internal/scheduler"
	"github.com/vk/splode/internal/unitpath"
)

// DefaultExtension is the unit file extension used when none is configured.
const DefaultExtension = "hcl"

// Config holds the run options of a Decomposer.
type Config struct {
	// Kinds limits the graph. Nil selects datablock.Decomposable().
	Kinds datablock.KindSet
	// Priority drives carrier selection. Nil selects cycles.DefaultPriority().
	Priority cycles.Priority
	// Root is the unit root; empty means the project base.
	Root      string
	Extension string

	// ResolveCycles enables the secondary pass. It needs Runner and Base.
	ResolveCycles bool
	Runner        resolve.Runner
	// Base is the absolute project base handed to the secondary pass.
	Base string
}

// Decomposer runs decompositions against one store.
type Decomposer struct {
	store   hoststore.Store
	persist hoststore.Persistence
	cfg     Config
}

// New creates a Decomposer, applying defaults to cfg.
func New(store hoststore.Store, persist hoststore.Persistence, cfg Config) (*Decomposer, error) {
	if store == nil || persist == nil {
		return nil, fmt.Errorf("decomposer needs a store and a persistence layer")
	}
	if cfg.Kinds == nil {
		cfg.Kinds = datablock.Decomposable()
	}
	if cfg.Priority == nil {
		cfg.Priority = cycles.DefaultPriority()
	}
	if cfg.Root == "" {
		cfg.Root = unitpath.BasePrefix
	}
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if cfg.ResolveCycles && (cfg.Runner == nil || cfg.Base == "") {
		return nil, fmt.Errorf("secondary cycle resolution needs a runner and a project base")
	}
	return &Decomposer{store: store, persist: persist, cfg: cfg}, nil
}

// analysis is the read-only part of a run.
type analysis struct {
	graph      *refgraph.Graph
	groups     []*cycles.Group
	assignment *cycles.Assignment
}

func (d *Decomposer) analyze(ctx context.Context) (*analysis, error) {
	logger := ctxlog.FromContext(ctx)

	g, err := refgraph.Build(ctx, d.store, d.cfg.Kinds)
	if err != nil {
		return nil, err
	}
	groups := cycles.Unify(cycles.Find(g))
	if err := cycles.AssertDisjoint(groups); err != nil {
		logger.Error("Cycle groups overlap, aborting.", "error", err)
		return &analysis{graph: g, groups: groups}, err
	}
	a := cycles.SelectCarriers(groups, d.cfg.Priority)
	logger.Debug("Analyzed reference graph.", "datablocks", g.Len(), "groups", len(groups))
	return &analysis{graph: g, groups: groups, assignment: a}, nil
}

// Splode decomposes the store into units below root. An empty root uses the
// configured one.
//
// The returned error is non-nil only when the run was aborted before
// anything was written; per-block and per-group failures are in the report.
func (d *Decomposer) Splode(ctx context.Context, root string) (*Report, error) {
	if root == "" {
		root = d.cfg.Root
	}
	report := &Report{RunID: uuid.NewString()}
	ctx = ctxlog.With(ctx, "run_id", report.RunID)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting decomposition.", "root", root)

	an, err := d.analyze(ctx)
	if err != nil {
		return nil, err
	}

	s := scheduler.New(an.graph, an.groups)
	order := slices.Collect(s.Order())
	if err := s.Err(); err != nil {
		logger.Error("Scheduling failed, aborting.", "error", err)
		return nil, err
	}

	groupReports := make([]*GroupReport, len(an.assignment.Partitions))
	for i, part := range an.assignment.Partitions {
		groupReports[i] = &GroupReport{Group: part.Group, Carrier: part.Carrier, Embedded: part.Embedded}
	}
	report.Groups = groupReports

	x := extract.New(d.store, d.persist, d.cfg.Extension)
	carried := make(map[*datablock.Block]*extract.Result)

	for _, b := range order {
		if an.assignment.IsEmbedded(b) {
			logger.Debug("Datablock is carried by its group, skipping.", "datablock", b.String())
			continue
		}
		var companions []*datablock.Block
		if part, ok := an.assignment.PartitionOf(b); ok && an.assignment.IsCarrier(b) {
			companions = part.Embedded
		}

		res, err := x.Extract(ctx, b, root, companions...)
		var ambErr *extract.AmbiguousError
		switch {
		case errors.As(err, &ambErr):
			report.Ambiguous = append(report.Ambiguous, b)
		case err != nil:
			logger.Error("Extraction failed.", "datablock", b.String(), "error", err)
			report.Failures = append(report.Failures, Failure{Block: b, Err: err})
		case res.Status == extract.StatusAlreadyDone:
			report.AlreadyDone = append(report.AlreadyDone, b)
		default:
			report.Extracted = append(report.Extracted, res)
			report.Unmatched = append(report.Unmatched, res.Unmatched...)
			if an.assignment.IsCarrier(b) {
				carried[b] = res
			}
		}
	}

	if d.cfg.ResolveCycles {
		for _, gr := range groupReports {
			d.resolveGroup(ctx, root, gr, carried[gr.Carrier])
		}
	}

	logger.Info("Decomposition finished.",
		"extracted", len(report.Extracted),
		"already_done", len(report.AlreadyDone),
		"ambiguous", len(report.Ambiguous),
		"unmatched", len(report.Unmatched),
		"failures", len(report.Failures),
		"groups", len(report.Groups),
	)
	return report, nil
}

// resolveGroup runs the secondary pass for one group and relinks every
// member the child split out of the carrier unit.
func (d *Decomposer) resolveGroup(ctx context.Context, root string, gr *GroupReport, res *extract.Result) {
	logger := ctxlog.FromContext(ctx).With("carrier", gr.Carrier.String())

	if res == nil {
		gr.SecondaryErr = fmt.Errorf("carrier %s was not extracted in this run", gr.Carrier)
		logger.Warn("Skipping secondary resolution.", "reason", gr.SecondaryErr)
		return
	}

	cmd := resolve.Command{
		Action:    resolve.ActionRelinkEmbedded,
		Base:      d.cfg.Base,
		Root:      root,
		Extension: d.cfg.Extension,
		Unit:      res.UnitPath,
		Target:    datablock.Ref{Kind: gr.Carrier.Kind, Name: gr.Carrier.Name}.String(),
	}
	for _, m := range gr.Embedded {
		cmd.Members = append(cmd.Members, datablock.Ref{Kind: m.Kind, Name: m.Name}.String())
	}

	status, err := d.cfg.Runner.Run(ctx, cmd)
	if err == nil {
		err = status.Err()
	}
	if err != nil {
		gr.SecondaryErr = fmt.Errorf("secondary resolution of %s failed: %w", res.UnitPath, err)
		logger.Error("Secondary resolution failed.", "unit", res.UnitPath, "error", err)
		return
	}

	var errs []error
	for _, m := range gr.Embedded {
		old, ok := res.Companions[m]
		if !ok {
			continue
		}
		relinked, err := d.relink(ctx, root, m, old)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if relinked {
			gr.Relinked = append(gr.Relinked, m)
		}
	}
	if len(errs) > 0 {
		gr.SecondaryErr = errors.Join(errs...)
		logger.Error("Relinking split members failed.", "error", gr.SecondaryErr)
		return
	}
	logger.Info("Resolved cycle group.", "unit", res.UnitPath, "relinked", len(gr.Relinked))
}

// relink links the unit the member m was split into and remaps the handle
// old, linked from the carrier unit, onto it.
func (d *Decomposer) relink(ctx context.Context, root string, m, old *datablock.Block) (bool, error) {
	path, err := unitpath.For(root, m.Kind, m.Name, d.cfg.Extension)
	if err != nil {
		return false, err
	}
	imported, err := d.persist.Link(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to link split member %s from %s: %w", m, path, err)
	}
	fresh, ok := imported.Find(m.Kind, m.Name)
	if !ok {
		return false, fmt.Errorf("split member %s not found in %s", m, path)
	}
	if fresh == old {
		return false, nil
	}
	fresh.Unit.Name = string(m.Kind) + "-" + m.Name
	if err := d.store.Remap(ctx, old, fresh); err != nil {
		return false, fmt.Errorf("failed to remap split member %s: %w", m, err)
	}
	return true, nil
}

// FindCycles previews the cycle analysis without writing anything: the
// first limit raw cycles plus the unified groups and their carriers.
//
// When the groups overlap, the report still carries the raw cycles and the
// groups, without partitions, alongside the *cycles.DisjointError.
func (d *Decomposer) FindCycles(ctx context.Context, limit int) (*CycleReport, error) {
	an, err := d.analyze(ctx)
	if an == nil {
		return nil, err
	}
	report := &CycleReport{
		Cycles: cycles.Take(cycles.Find(an.graph), limit),
		Groups: an.groups,
	}
	if an.assignment != nil {
		report.Partitions = an.assignment.Partitions
	}
	return report, err
}
