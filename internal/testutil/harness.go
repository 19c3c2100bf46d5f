package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/splode/internal/ctxlog"
	"github.com/vk/splode/internal/unitfile"
	"github.com/vk/splode/internal/unitpath"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LogContext returns a context carrying a debug-level text logger that
// writes into the returned buffer.
func LogContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// Project is a temporary on-disk project: a base directory, a store and a
// codec persisting units of that store below the base.
type Project struct {
	Dir      string
	Resolver *unitpath.Resolver
	Codec    *unitfile.Codec
	*Fixture
}

// NewProject creates an empty project in a temporary directory.
func NewProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	resolver, err := unitpath.NewResolver(dir)
	require.NoError(t, err)

	cache, err := unitfile.NewCache(unitfile.DefaultCacheSize)
	require.NoError(t, err)

	fx := NewFixture(t)
	return &Project{
		Dir:      dir,
		Resolver: resolver,
		Codec:    unitfile.NewCodec(fx.Store, resolver, cache),
		Fixture:  fx,
	}
}

// ReadUnit parses the unit file at unitPath.
func (p *Project) ReadUnit(unitPath string) *unitfile.File {
	p.t.Helper()
	f, err := p.Codec.Read(unitPath)
	require.NoError(p.t, err, "reading unit %s", unitPath)
	return f
}
