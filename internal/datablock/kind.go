package datablock

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the category of a datablock, e.g. "mesh" or "object".
type Kind string

const (
	Action        Kind = "action"
	Armature      Kind = "armature"
	Brush         Kind = "brush"
	Camera        Kind = "camera"
	CacheFile     Kind = "cachefile"
	Curve         Kind = "curve"
	Font          Kind = "font"
	GreasePencil  Kind = "greasepencil"
	Group         Kind = "group"
	Image         Kind = "image"
	Key           Kind = "key"
	Lamp          Kind = "lamp"
	Library       Kind = "library"
	LineStyle     Kind = "linestyle"
	Lattice       Kind = "lattice"
	Mask          Kind = "mask"
	Material      Kind = "material"
	Meta          Kind = "meta"
	Mesh          Kind = "mesh"
	MovieClip     Kind = "movieclip"
	NodeTree      Kind = "nodetree"
	Object        Kind = "object"
	PaintCurve    Kind = "paintcurve"
	Palette       Kind = "palette"
	Particle      Kind = "particle"
	Scene         Kind = "scene"
	Screen        Kind = "screen"
	Sound         Kind = "sound"
	Speaker       Kind = "speaker"
	Text          Kind = "text"
	Texture       Kind = "texture"
	WindowManager Kind = "windowmanager"
	World         Kind = "world"
)

// kindInfo is the static per-kind metadata.
type kindInfo struct {
	plural string
}

// registry lists every kind known to the engine. A kind that is not in this
// map cannot be parsed, stored or decomposed.
var registry = map[Kind]kindInfo{
	Action:        {},
	Armature:      {},
	Brush:         {plural: "brushes"},
	Camera:        {},
	CacheFile:     {},
	Curve:         {},
	Font:          {},
	GreasePencil:  {},
	Group:         {},
	Image:         {},
	Key:           {},
	Lamp:          {},
	Library:       {plural: "libraries"},
	LineStyle:     {},
	Lattice:       {},
	Mask:          {},
	Material:      {},
	Meta:          {},
	Mesh:          {plural: "meshes"},
	MovieClip:     {},
	NodeTree:      {},
	Object:        {},
	PaintCurve:    {},
	Palette:       {},
	Particle:      {},
	Scene:         {},
	Screen:        {},
	Sound:         {},
	Speaker:       {},
	Text:          {},
	Texture:       {},
	WindowManager: {},
	World:         {},
}

// DefaultExcluded holds the kinds that are never decomposed: host bookkeeping,
// library records, UI state, and the scene container. Decomposing the scene
// would make every unit that uses it link the same shared container.
var DefaultExcluded = []Kind{Brush, CacheFile, Library, Scene, Screen, WindowManager}

// ParseKind converts a case-insensitive kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := registry[k]; !ok {
		return "", fmt.Errorf("unknown datablock kind %q", s)
	}
	return k, nil
}

// Valid reports whether the kind is part of the registry.
func (k Kind) Valid() bool {
	_, ok := registry[k]
	return ok
}

// Plural returns the plural form used for unit folders.
func (k Kind) Plural() string {
	if info, ok := registry[k]; ok && info.plural != "" {
		return info.plural
	}
	return string(k) + "s"
}

// Folder returns the directory name holding the units of this kind.
func (k Kind) Folder() string {
	return "_" + k.Plural()
}

// Key returns the upper-case key used by carrier priority tables.
func (k Kind) Key() string {
	return strings.ToUpper(string(k))
}

// AllKinds returns every registered kind in alphabetical order.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// KindSet is a set of kinds.
type KindSet map[Kind]struct{}

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether k is in the set. A nil set contains every kind.
func (s KindSet) Has(k Kind) bool {
	if s == nil {
		return true
	}
	_, ok := s[k]
	return ok
}

// Sorted returns the members in alphabetical order.
func (s KindSet) Sorted() []Kind {
	kinds := make([]Kind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Decomposable returns all registered kinds minus the excluded ones. With no
// arguments DefaultExcluded is applied.
func Decomposable(excluded ...Kind) KindSet {
	if excluded == nil {
		excluded = DefaultExcluded
	}
	skip := NewKindSet(excluded...)
	set := make(KindSet, len(registry))
	for k := range registry {
		if _, ok := skip[k]; !ok {
			set[k] = struct{}{}
		}
	}
	return set
}
