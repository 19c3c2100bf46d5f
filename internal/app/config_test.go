package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/datablock"
)

func defaultConfig(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg, err := NewConfig(defaultConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "//", cfg.Root)
	assert.Equal(t, "hcl", cfg.UnitExtension)
	assert.Equal(t, 10, cfg.PreviewLimit)
	assert.Equal(t, 60*time.Second, cfg.ResolveTimeout)
	assert.False(t, cfg.ResolveCycles)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	kinds := cfg.Kinds()
	assert.False(t, kinds.Has(datablock.Scene))
	assert.False(t, kinds.Has(datablock.Library))
	assert.True(t, kinds.Has(datablock.Mesh))
	assert.Equal(t, -20, cfg.PriorityTable()["OBJECT_ARMATURE"])
}

func TestConfigSources(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	file := filepath.Join(dir, "splode.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
unit_extension: unit
preview_limit: 3
exclude_kinds: [scene]
priority:
  OBJECT_EMPTY: -30
  mesh: -1
`), 0o644))
	t.Setenv("SPLODE_PREVIEW_LIMIT", "5")
	t.Setenv("SPLODE_RESOLVE_TIMEOUT", "2s")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	// --- Act ---
	raw, err := FromViper(v)
	require.NoError(t, err)
	cfg, err := NewConfig(raw)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "unit", cfg.UnitExtension, "file beats defaults")
	assert.Equal(t, 5, cfg.PreviewLimit, "environment beats file")
	assert.Equal(t, 2*time.Second, cfg.ResolveTimeout)
	assert.True(t, cfg.Kinds().Has(datablock.Brush), "the configured list replaces the default exclusions")
	assert.False(t, cfg.Kinds().Has(datablock.Scene))

	p := cfg.PriorityTable()
	assert.Equal(t, -30, p["OBJECT_EMPTY"])
	assert.Equal(t, -1, p["MESH"])
	assert.Equal(t, -10, p["OBJECT"])
}

func TestKindsAlwaysExcludeScene(t *testing.T) {
	testCases := []struct {
		name     string
		excluded []string
	}{
		{name: "empty list", excluded: []string{}},
		{name: "nil list", excluded: nil},
		{name: "other kinds only", excluded: []string{"brush"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{ExcludeKinds: tc.excluded}
			kinds := cfg.Kinds()
			assert.False(t, kinds.Has(datablock.Scene))
			assert.True(t, kinds.Has(datablock.Library), "only scene is forced out")
		})
	}

	t.Run("from a config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "splode.yaml")
		require.NoError(t, os.WriteFile(file, []byte("exclude_kinds: []\n"), 0o644))
		v := viper.New()
		SetDefaults(v)
		v.SetConfigFile(file)
		require.NoError(t, v.ReadInConfig())

		raw, err := FromViper(v)
		require.NoError(t, err)
		cfg, err := NewConfig(raw)
		require.NoError(t, err)

		assert.False(t, cfg.Kinds().Has(datablock.Scene))
		assert.True(t, cfg.Kinds().Has(datablock.Brush))
	})
}

func TestNewConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log_format"},
		{"extension", func(c *Config) { c.UnitExtension = "a/b" }, "invalid unit_extension"},
		{"kind", func(c *Config) { c.ExcludeKinds = []string{"spaceship"} }, "exclude_kinds"},
		{"timeout", func(c *Config) { c.ResolveTimeout = 0 }, "resolve_timeout"},
		{"preview", func(c *Config) { c.PreviewLimit = -1 }, "preview_limit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tc.mutate(&cfg)
			_, err := NewConfig(cfg)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}

	t.Run("executable defaults to the running binary", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.ResolveCycles = true
		got, err := NewConfig(cfg)
		require.NoError(t, err)
		assert.NotEmpty(t, got.Executable)
	})
}
