package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/resolve"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. Logs and summaries
// both go to outW.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.", "level", cfg.LogLevel, "format", cfg.LogFormat)
	return &App{outW: outW, logger: logger, config: cfg}
}

// Config returns the validated configuration of the app.
func (a *App) Config() *Config {
	return a.config
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// runner returns the secondary-pass runner selected by the configuration.
func (a *App) runner() resolve.Runner {
	if a.config.InProcess {
		return resolve.InProcessRunner{}
	}
	return &resolve.ExecRunner{
		Executable: a.config.Executable,
		Args:       []string{resolve.ChildCommand, "--log-level", a.config.LogLevel, "--log-format", a.config.LogFormat},
		Timeout:    a.config.ResolveTimeout,
	}
}
