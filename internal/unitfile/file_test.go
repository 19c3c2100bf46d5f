package unitfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
datablock "object" "O1" {
  subtype = "MESH"
  uses    = ["mesh/M1@//_meshes/M1.hcl", "material/Red"]
}

datablock "Material" "Red" {
  keep = true
}

link "mesh" "M1" {
  unit = "//_meshes/M1.hcl"
}
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample), "sample.hcl")
	require.NoError(t, err)

	require.Len(t, f.Datablocks, 2)
	obj := f.Datablocks[0]
	assert.Equal(t, "object", obj.Kind)
	assert.Equal(t, "O1", obj.Name)
	assert.Equal(t, "MESH", obj.SubType)
	assert.False(t, obj.Keep)
	assert.Equal(t, []string{"mesh/M1@//_meshes/M1.hcl", "material/Red"}, obj.Uses)

	assert.Equal(t, "material", f.Datablocks[1].Kind, "kinds are normalised")
	assert.True(t, f.Datablocks[1].Keep)

	require.Len(t, f.Links, 1)
	assert.Equal(t, "//_meshes/M1.hcl", f.Links[0].Unit)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		errMsg string
	}{
		{"syntax", `datablock "mesh" {`, "failed to parse"},
		{"missing label", `datablock "mesh" {}`, "failed to decode"},
		{"unknown attribute", `datablock "mesh" "M" { color = "red" }`, "failed to decode"},
		{"unknown kind", `datablock "spaceship" "X" {}`, "unknown datablock kind"},
		{"duplicate datablock", "datablock \"mesh\" \"M\" {}\ndatablock \"mesh\" \"M\" {}", "duplicate datablock"},
		{"dangling local use", `datablock "object" "O" { uses = ["mesh/M"] }`, "not defined in this file"},
		{"bad reference", `datablock "object" "O" { uses = ["nonsense"] }`, "expected kind/name"},
		{"link without unit", `link "mesh" "M" { unit = "" }`, "empty unit"},
		{"duplicate link", "link \"mesh\" \"M\" { unit = \"//a.hcl\" }\nlink \"mesh\" \"M\" { unit = \"//a.hcl\" }", "duplicate link"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "broken.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestBytesRoundTrip(t *testing.T) {
	f, err := Parse([]byte(sample), "sample.hcl")
	require.NoError(t, err)

	out := f.Bytes()
	assert.Contains(t, string(out), `datablock "object" "O1" {`)
	assert.Contains(t, string(out), `link "mesh" "M1" {`)
	assert.NotContains(t, string(out), "keep = false", "default values are omitted")

	again, err := Parse(out, "again.hcl")
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.hcl")
	f := &File{Datablocks: []*Entry{{Kind: "mesh", Name: "M1"}}}

	require.NoError(t, WriteFile(path, f))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestLocalize(t *testing.T) {
	f := &File{
		Datablocks: []*Entry{
			{Kind: "object", Name: "O1", Uses: []string{"object/O2@//_objects/O1.hcl", "mesh/M@//_meshes/M.hcl"}},
			{Kind: "object", Name: "O2"},
		},
		Links: []*LinkEntry{
			{Kind: "object", Name: "O2", Unit: "//_objects/O1.hcl"},
			{Kind: "mesh", Name: "M", Unit: "//_meshes/M.hcl"},
		},
	}

	f.Localize("//_objects/O1.hcl")

	assert.Equal(t, []string{"object/O2", "mesh/M@//_meshes/M.hcl"}, f.Datablocks[0].Uses)
	require.Len(t, f.Links, 1)
	assert.Equal(t, "//_meshes/M.hcl", f.Links[0].Unit)

	_, err := Parse(f.Bytes(), "localized.hcl")
	assert.NoError(t, err)
}
