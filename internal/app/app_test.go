package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/resolve"
	"github.com/vk/splode/internal/splode"
	"github.com/vk/splode/internal/unitfile"
)

const workingFile = `
datablock "object" "O1" {
  uses = ["mesh/M1"]
}

datablock "mesh" "M1" {
  uses = ["material/Red"]
}

datablock "material" "Red" {}

datablock "object" "Rig" {
  subtype = "ARMATURE"
  uses    = ["object/Body"]
}

datablock "object" "Body" {
  uses = ["object/Rig"]
}

datablock "scene" "Main" {
  uses = ["object/O1", "object/Rig"]
}
`

func newTestApp(t *testing.T, mutate func(*Config)) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "work.hcl")
	require.NoError(t, os.WriteFile(path, []byte(workingFile), 0o644))

	raw := defaultConfig(t)
	raw.WorkingFile = path
	raw.LogLevel = "debug"
	if mutate != nil {
		mutate(&raw)
	}
	cfg, err := NewConfig(raw)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return NewApp(out, cfg), out, dir
}

func TestExplode(t *testing.T) {
	// --- Arrange ---
	var output string
	a, out, dir := newTestApp(t, func(c *Config) {
		output = filepath.Join(filepath.Dir(c.WorkingFile), "out", "work.hcl")
		c.Output = output
		c.ResolveCycles = true
		c.InProcess = true
	})

	// --- Act ---
	report, err := a.Explode(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Groups, 1)
	assert.NoError(t, report.Groups[0].SecondaryErr)

	for _, rel := range []string{"_objects/O1.hcl", "_meshes/M1.hcl", "_materials/Red.hcl", "_objects/Rig.hcl", "_objects/Body.hcl"} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(dir, "_scenes", "Main.hcl"), "scenes are never extracted")

	saved, err := unitfile.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, saved.Datablocks, 1, "only the scene stays local")
	assert.Equal(t, "Main", saved.Datablocks[0].Name)
	assert.ElementsMatch(t, []string{"object/O1@//_objects/O1.hcl", "object/Rig@//_objects/Rig.hcl"}, saved.Datablocks[0].Uses)

	WriteReport(out, report)
	assert.Contains(t, out.String(), "carrier object/Rig embeds object/Body")
	assert.Contains(t, out.String(), "run_id="+report.RunID)
}

func TestWriteReportUnmatched(t *testing.T) {
	out := &bytes.Buffer{}
	body := datablock.New(datablock.Object, "Body")

	WriteReport(out, &splode.Report{RunID: "r1", Unmatched: []*datablock.Block{body}})

	assert.Contains(t, out.String(), "unmatched (missing from the carrier unit): object/Body")
}

func TestCycles(t *testing.T) {
	a, out, dir := newTestApp(t, nil)

	preview, err := a.Cycles(context.Background())
	require.NoError(t, err)
	require.Len(t, preview.Groups, 1)
	assert.Equal(t, "object/Rig", preview.Partitions[0].Carrier.String())

	WriteCycles(out, preview)
	assert.Contains(t, out.String(), "carrier object/Rig")
	_, statErr := os.Stat(filepath.Join(dir, "_objects"))
	assert.True(t, os.IsNotExist(statErr), "a preview writes nothing")
}

func TestExplodeWithoutWorkingFile(t *testing.T) {
	a, _, _ := newTestApp(t, func(c *Config) { c.WorkingFile = "" })
	_, err := a.Explode(context.Background())
	assert.ErrorIs(t, err, ErrNoWorkingFile)
}

func TestList(t *testing.T) {
	a, out, dir := newTestApp(t, nil)
	_, err := a.Explode(context.Background())
	require.NoError(t, err)
	out.Reset()

	t.Run("single unit", func(t *testing.T) {
		listings, err := a.List(context.Background(), filepath.Join(dir, "_objects", "O1.hcl"))
		require.NoError(t, err)
		require.Len(t, listings, 1)
		WriteListing(out, listings)
		assert.Contains(t, out.String(), "object/O1 uses mesh/M1@//_meshes/M1.hcl")
		assert.Contains(t, out.String(), "link mesh/M1@//_meshes/M1.hcl")
	})

	t.Run("directory", func(t *testing.T) {
		listings, err := a.List(context.Background(), filepath.Join(dir, "_objects"))
		require.NoError(t, err)
		var names []string
		for _, l := range listings {
			names = append(names, filepath.Base(l.Path))
		}
		assert.Equal(t, []string{"O1.hcl", "Rig.hcl"}, names)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := a.List(context.Background(), filepath.Join(dir, "nope"))
		assert.Error(t, err)
	})
}

func TestResolveCycle(t *testing.T) {
	a, _, dir := newTestApp(t, nil)
	_, err := a.Explode(context.Background())
	require.NoError(t, err)

	var stdin bytes.Buffer
	require.NoError(t, resolve.Encode(&stdin, resolve.Command{
		Action:    resolve.ActionRelinkEmbedded,
		Base:      dir,
		Root:      "//",
		Extension: "hcl",
		Unit:      "//_objects/Rig.hcl",
		Target:    "object/Rig",
		Members:   []string{"object/Body"},
	}))

	status, err := a.ResolveCycle(context.Background(), &stdin)
	require.NoError(t, err)
	assert.Equal(t, resolve.StatusOK, status)
	assert.FileExists(t, filepath.Join(dir, "_objects", "Body.hcl"))

	t.Run("garbage input", func(t *testing.T) {
		_, err := a.ResolveCycle(context.Background(), strings.NewReader("{"))
		assert.Error(t, err)
	})
}
