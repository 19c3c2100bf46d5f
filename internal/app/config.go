package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vk/splode/internal/cycles"
	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/resolve"
	"github.com/vk/splode/internal/unitpath"
)

// Configuration keys shared by viper, flags and the environment.
const (
	KeyRoot           = "root"
	KeyUnitExtension  = "unit_extension"
	KeyExcludeKinds   = "exclude_kinds"
	KeyPriority       = "priority"
	KeyResolveCycles  = "resolve_cycles"
	KeyInProcess      = "in_process"
	KeyResolveTimeout = "resolve_timeout"
	KeyExecutable     = "executable"
	KeyPreviewLimit   = "preview_limit"
	KeyOutput         = "output"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// EnvPrefix prefixes every environment variable read by the config layer.
const EnvPrefix = "SPLODE"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkingFile is the store being decomposed. Only explode and cycles
	// need it.
	WorkingFile string `mapstructure:"-"`
	// Output receives the rewired working file. Empty skips saving.
	Output string `mapstructure:"output"`

	Root          string         `mapstructure:"root"`
	UnitExtension string         `mapstructure:"unit_extension"`
	ExcludeKinds  []string       `mapstructure:"exclude_kinds"`
	Priority      map[string]int `mapstructure:"priority"`

	ResolveCycles  bool          `mapstructure:"resolve_cycles"`
	InProcess      bool          `mapstructure:"in_process"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	Executable     string        `mapstructure:"executable"`

	PreviewLimit int `mapstructure:"preview_limit"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	excluded := make([]string, 0, len(datablock.DefaultExcluded))
	for _, k := range datablock.DefaultExcluded {
		excluded = append(excluded, string(k))
	}

	v.SetDefault(KeyRoot, unitpath.BasePrefix)
	v.SetDefault(KeyUnitExtension, "hcl")
	v.SetDefault(KeyExcludeKinds, excluded)
	v.SetDefault(KeyPriority, map[string]int{})
	v.SetDefault(KeyResolveCycles, false)
	v.SetDefault(KeyInProcess, false)
	v.SetDefault(KeyResolveTimeout, resolve.DefaultTimeout)
	v.SetDefault(KeyExecutable, "")
	v.SetDefault(KeyPreviewLimit, 10)
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// BindEnv makes every key readable from SPLODE_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper decodes the merged settings of v. The result is not validated.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	// Viper lower-cases map keys; priority keys are upper-case kind keys.
	if len(cfg.Priority) > 0 {
		upper := make(map[string]int, len(cfg.Priority))
		for k, p := range cfg.Priority {
			upper[strings.ToUpper(k)] = p
		}
		cfg.Priority = upper
	}
	return cfg, nil
}

// NewConfig validates cfg and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log_format %q: must be 'text' or 'json'", cfg.LogFormat))
	}

	cfg.UnitExtension = strings.TrimPrefix(cfg.UnitExtension, ".")
	if cfg.UnitExtension == "" || strings.ContainsAny(cfg.UnitExtension, `/\`) {
		errs = append(errs, fmt.Errorf("invalid unit_extension %q", cfg.UnitExtension))
	}
	if cfg.Root == "" {
		cfg.Root = unitpath.BasePrefix
	}
	for _, k := range cfg.ExcludeKinds {
		if _, err := datablock.ParseKind(k); err != nil {
			errs = append(errs, fmt.Errorf("exclude_kinds: %w", err))
		}
	}
	if cfg.PreviewLimit < 0 {
		errs = append(errs, errors.New("preview_limit must not be negative"))
	}
	if cfg.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("resolve_timeout must be positive"))
	}

	if cfg.ResolveCycles && !cfg.InProcess && cfg.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot determine the executable for secondary resolution: %w", err))
		}
		cfg.Executable = exe
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Kinds returns the decomposable kinds: every kind not excluded. Scenes are
// excluded even when the configured list is empty.
func (c *Config) Kinds() datablock.KindSet {
	excluded := make([]datablock.Kind, 0, len(c.ExcludeKinds)+1)
	excluded = append(excluded, datablock.Scene)
	for _, raw := range c.ExcludeKinds {
		if k, err := datablock.ParseKind(raw); err == nil {
			excluded = append(excluded, k)
		}
	}
	return datablock.Decomposable(excluded...)
}

// PriorityTable returns the default carrier priorities overridden by the
// configured ones.
func (c *Config) PriorityTable() cycles.Priority {
	p := cycles.DefaultPriority()
	for k, v := range c.Priority {
		p[strings.ToUpper(k)] = v
	}
	return p
}
