package inmemorystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/datablock"
)

func TestAdd(t *testing.T) {
	t.Run("idempotent for the same handle", func(t *testing.T) {
		s := New()
		m := datablock.New(datablock.Mesh, "M1")
		require.NoError(t, s.Add(m))
		require.NoError(t, s.Add(m))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("rejects duplicate local names within a kind", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Add(datablock.New(datablock.Mesh, "M1")))
		err := s.Add(datablock.New(datablock.Mesh, "M1"))
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("local and linked blocks may share a name", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Add(datablock.New(datablock.Mesh, "M1")))
		linked := &datablock.Block{Kind: datablock.Mesh, Name: "M1", Unit: s.Unit("//_meshes/M1.hcl")}
		require.NoError(t, s.Add(linked))
		assert.Equal(t, 2, s.Len())
	})

	t.Run("validation", func(t *testing.T) {
		s := New()
		assert.ErrorContains(t, s.Add(nil), "nil datablock")
		assert.ErrorContains(t, s.Add(datablock.New("spaceship", "X")), "unknown kind")
		assert.ErrorContains(t, s.Add(datablock.New(datablock.Mesh, "")), "empty name")
	})
}

func TestUserMap(t *testing.T) {
	ctx := context.Background()
	s := New()
	scene := datablock.New(datablock.Scene, "Scene")
	obj := datablock.New(datablock.Object, "O1")
	mesh := datablock.New(datablock.Mesh, "M1")
	mat := datablock.New(datablock.Material, "Red")
	scene.AddUse(obj)
	obj.AddUse(mesh)
	mesh.AddUse(mat)
	obj.AddUse(mat)
	s.MustAdd(scene, obj, mesh, mat)

	users := s.UserMap(ctx, datablock.Decomposable())

	require.Len(t, users, 3, "scene must not appear as a key")
	assert.Empty(t, users[obj], "scene must not appear as a consumer")
	assert.Equal(t, []*datablock.Block{obj}, users[mesh])
	assert.Equal(t, []*datablock.Block{mesh, obj}, users[mat])
	_, hasScene := users[scene]
	assert.False(t, hasScene)
}

func TestRemap(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := datablock.New(datablock.Object, "O1")
	mesh := datablock.New(datablock.Mesh, "M1")
	obj.AddUse(mesh)
	s.MustAdd(obj, mesh)

	linked := &datablock.Block{Kind: datablock.Mesh, Name: "M1", Unit: s.Unit("//_meshes/M1.hcl")}
	s.MustAdd(linked)

	assert.False(t, s.Replaced(mesh))
	require.NoError(t, s.Remap(ctx, mesh, linked))
	assert.Equal(t, []*datablock.Block{linked}, obj.Uses())
	assert.Empty(t, s.UsersOf(mesh))
	assert.True(t, s.Replaced(mesh), "remap source is marked replaced")
	assert.False(t, s.Replaced(linked))

	t.Run("unknown blocks", func(t *testing.T) {
		stranger := datablock.New(datablock.Mesh, "X")
		assert.ErrorContains(t, s.Remap(ctx, stranger, linked), "source")
		assert.ErrorContains(t, s.Remap(ctx, linked, stranger), "target")
	})

	t.Run("self remap is a no-op", func(t *testing.T) {
		assert.NoError(t, s.Remap(ctx, obj, obj))
	})
}

func TestCollectGarbage(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := datablock.New(datablock.Object, "O1")
	mesh := datablock.New(datablock.Mesh, "M1")
	keep := datablock.New(datablock.Text, "Notes")
	keep.KeepIfUnused = true
	obj.AddUse(mesh)
	s.MustAdd(obj, mesh, keep)

	unit := s.Unit("//_objects/O1.hcl")
	linkedObj := &datablock.Block{Kind: datablock.Object, Name: "O1", Unit: unit}
	linkedMesh := &datablock.Block{Kind: datablock.Mesh, Name: "M1", Unit: unit}
	linkedObj.AddUse(linkedMesh)
	s.MustAdd(linkedObj, linkedMesh)

	require.NoError(t, s.Remap(ctx, obj, linkedObj))
	require.NoError(t, s.Remap(ctx, mesh, linkedMesh))

	removed := s.CollectGarbage(ctx)
	assert.Equal(t, []*datablock.Block{mesh, obj}, removed)
	assert.False(t, s.Contains(obj))
	assert.False(t, s.Contains(mesh))
	assert.True(t, s.Contains(keep), "never-remapped blocks are not collected")
	assert.Equal(t, 3, s.Len())
}

func TestRehome(t *testing.T) {
	s := New()
	carrierUnit := s.Unit("//_objects/O1.hcl")
	b := &datablock.Block{Kind: datablock.Mesh, Name: "M1", Unit: carrierUnit}
	s.MustAdd(b)

	target := s.Unit("//_meshes/M1.hcl")
	require.NoError(t, s.Rehome(b, target))

	assert.Same(t, target, b.Unit)
	found, ok := s.Lookup(datablock.Ref{Kind: datablock.Mesh, Name: "M1", Unit: "//_meshes/M1.hcl"})
	require.True(t, ok)
	assert.Same(t, b, found)
	_, ok = s.Lookup(datablock.Ref{Kind: datablock.Mesh, Name: "M1", Unit: "//_objects/O1.hcl"})
	assert.False(t, ok)
}

func TestUnits(t *testing.T) {
	s := New()
	b := s.Unit("//b.hcl")
	a := s.Unit("//a.hcl")
	assert.Same(t, a, s.Unit("//a.hcl"))
	assert.Equal(t, []*datablock.Unit{a, b}, s.Units())
}
