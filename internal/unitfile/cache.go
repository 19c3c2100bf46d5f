package unitfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded files kept by NewCache when no
// size is given.
const DefaultCacheSize = 256

type cachedFile struct {
	size    int64
	modTime time.Time
	file    *File
}

// Cache keeps decoded files keyed by absolute path. An entry is only reused
// while the file on disk keeps its size and modification time. Cached files
// are shared and must be treated as read-only.
type Cache struct {
	entries *lru.Cache[string, cachedFile]
}

// NewCache creates a cache holding up to size files.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cachedFile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit file cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Read returns the decoded file at path, parsing it on a miss.
func (c *Cache) Read(path string) (*File, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve unit file path %q: %w", path, err)
	}
	info, err := os.Stat(key)
	if err != nil {
		c.entries.Remove(key)
		return nil, fmt.Errorf("failed to read unit file: %w", err)
	}

	if hit, ok := c.entries.Get(key); ok && hit.size == info.Size() && hit.modTime.Equal(info.ModTime()) {
		return hit.file, nil
	}

	f, err := ReadFile(key)
	if err != nil {
		c.entries.Remove(key)
		return nil, err
	}
	c.entries.Add(key, cachedFile{size: info.Size(), modTime: info.ModTime(), file: f})
	return f, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	if key, err := filepath.Abs(path); err == nil {
		c.entries.Remove(key)
	}
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.entries.Len()
}
