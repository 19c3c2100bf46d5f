package unitpath

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/splode/internal/datablock"
)

// BasePrefix marks a unit path as relative to the project base directory.
const BasePrefix = "//"

// ErrInvalidName is returned when a datablock name cannot be used as a file
// name.
var ErrInvalidName = errors.New("datablock name cannot be used as a unit file name")

// For returns the deterministic unit path of a block extracted under root:
// "<root>/_<plural>/<name>.<ext>".
func For(root string, kind datablock.Kind, name, ext string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if root == "" {
		root = BasePrefix
	}
	file := name
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		file += "." + ext
	}
	return joinUnit(root, kind.Folder(), file), nil
}

func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// joinUnit joins with forward slashes and keeps the "//" prefix intact, which
// path.Join would collapse.
func joinUnit(root string, elems ...string) string {
	if rest, ok := strings.CutPrefix(root, BasePrefix); ok {
		joined := path.Join(append([]string{"/", rest}, elems...)...)
		return "/" + joined
	}
	return path.Join(append([]string{root}, elems...)...)
}

// IsBaseRelative reports whether p starts with the "//" prefix.
func IsBaseRelative(p string) bool {
	return strings.HasPrefix(p, BasePrefix)
}

// Resolver maps unit paths onto the filesystem.
type Resolver struct {
	base string
}

// NewResolver creates a resolver rooted at base. A relative base is made
// absolute against the current working directory.
func NewResolver(base string) (*Resolver, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project base %q: %w", base, err)
	}
	return &Resolver{base: abs}, nil
}

// ForWorkingFile creates a resolver whose base is the directory of the given
// working file.
func ForWorkingFile(workingFile string) (*Resolver, error) {
	return NewResolver(filepath.Dir(workingFile))
}

// Base returns the absolute project base directory.
func (r *Resolver) Base() string {
	return r.base
}

// Abs maps a unit path to an absolute filesystem path. Paths starting with
// "//" are resolved against the base, absolute paths pass through, and any
// other relative path is taken relative to the base as well.
func (r *Resolver) Abs(unitPath string) (string, error) {
	if unitPath == "" {
		return "", fmt.Errorf("unit path cannot be empty")
	}
	if rest, ok := strings.CutPrefix(unitPath, BasePrefix); ok {
		return filepath.Join(r.base, filepath.FromSlash(rest)), nil
	}
	native := filepath.FromSlash(unitPath)
	if filepath.IsAbs(native) {
		return filepath.Clean(native), nil
	}
	return filepath.Join(r.base, native), nil
}

// Rel maps an absolute filesystem path back to a "//" unit path when it lies
// under the base. Paths outside the base are returned as absolute
// forward-slash paths.
func (r *Resolver) Rel(absPath string) string {
	rel, err := filepath.Rel(r.base, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(absPath)
	}
	return BasePrefix + filepath.ToSlash(rel)
}

// EnsureDir creates the directory that will hold unitPath, including parents.
// It succeeds if the directory already exists.
func (r *Resolver) EnsureDir(unitPath string) (string, error) {
	abs, err := r.Abs(unitPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for unit %s: %w", unitPath, err)
	}
	return abs, nil
}
