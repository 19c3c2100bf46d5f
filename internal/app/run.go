package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/fsutil"
	"github.com/vk/splode/internal/resolve"
	"github.com/vk/splode/internal/splode"
	"github.com/vk/splode/internal/unitfile"
	"github.com/vk/splode/internal/unitpath"
)

// ErrNoWorkingFile is returned by operations that need a working file when
// none is configured.
var ErrNoWorkingFile = errors.New("no working file given")

// Explode decomposes the working file into units next to it. The rewired
// store is saved to Output when one is configured.
func (a *App) Explode(ctx context.Context) (*splode.Report, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	cfg := a.config

	d, codec, err := a.decomposer(ctx)
	if err != nil {
		return nil, err
	}
	report, err := d.Splode(ctx, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("decomposition of %s aborted: %w", cfg.WorkingFile, err)
	}

	store := codec.Store()
	removed := store.CollectGarbage(ctx)
	logger.Debug("Dropped replaced datablocks.", "count", len(removed))

	if cfg.Output != "" {
		if err := unitfile.Save(ctx, store, cfg.Output); err != nil {
			return report, fmt.Errorf("failed to save rewired working file: %w", err)
		}
		logger.Info("Saved rewired working file.", "path", cfg.Output)
	}
	return report, nil
}

// Cycles previews the cycle analysis of the working file.
func (a *App) Cycles(ctx context.Context) (*splode.CycleReport, error) {
	ctx = a.context(ctx)
	d, _, err := a.decomposer(ctx)
	if err != nil {
		return nil, err
	}
	return d.FindCycles(ctx, a.config.PreviewLimit)
}

func (a *App) decomposer(ctx context.Context) (*splode.Decomposer, *unitfile.Codec, error) {
	cfg := a.config
	if cfg.WorkingFile == "" {
		return nil, nil, ErrNoWorkingFile
	}

	store, err := unitfile.Load(ctx, cfg.WorkingFile)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := unitpath.ForWorkingFile(cfg.WorkingFile)
	if err != nil {
		return nil, nil, err
	}
	cache, err := unitfile.NewCache(unitfile.DefaultCacheSize)
	if err != nil {
		return nil, nil, err
	}
	codec := unitfile.NewCodec(store, resolver, cache)

	d, err := splode.New(store, codec, splode.Config{
		Kinds:         cfg.Kinds(),
		Priority:      cfg.PriorityTable(),
		Root:          cfg.Root,
		Extension:     cfg.UnitExtension,
		ResolveCycles: cfg.ResolveCycles,
		Runner:        a.runner(),
		Base:          resolver.Base(),
	})
	if err != nil {
		return nil, nil, err
	}
	return d, codec, nil
}

// Listing is the content of one unit file.
type Listing struct {
	Path string
	File *unitfile.File
}

// List reads the unit file at path, or every unit file below path when it
// is a directory.
func (a *App) List(ctx context.Context, path string) ([]Listing, error) {
	ctx = a.context(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	paths := []string{path}
	if info.IsDir() {
		if paths, err = fsutil.FindFilesByExtension(path, a.config.UnitExtension); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}

	listings := make([]Listing, 0, len(paths))
	for _, p := range paths {
		f, err := unitfile.List(ctx, p)
		if err != nil {
			return nil, err
		}
		listings = append(listings, Listing{Path: p, File: f})
	}
	return listings, nil
}

// ResolveCycle is the child side of the secondary pass: it decodes a
// command from r and executes it.
func (a *App) ResolveCycle(ctx context.Context, r io.Reader) (resolve.ExitStatus, error) {
	ctx = a.context(ctx)
	cmd, err := resolve.Decode(r)
	if err != nil {
		return 0, err
	}
	return resolve.Execute(ctx, cmd)
}
