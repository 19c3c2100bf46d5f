package unitfile

import (
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/splode/internal/datablock"
	"github.com/zclconf/go-cty/cty"
)

// File is the decoded content of one working file or unit.
type File struct {
	Datablocks []*Entry     `hcl:"datablock,block"`
	Links      []*LinkEntry `hcl:"link,block"`
}

// Entry is a datablock owned by the file.
type Entry struct {
	Kind    string   `hcl:"kind,label"`
	Name    string   `hcl:"name,label"`
	SubType string   `hcl:"subtype,optional"`
	Keep    bool     `hcl:"keep,optional"`
	Uses    []string `hcl:"uses,optional"`
}

// Ref returns the local reference of the entry.
func (e *Entry) Ref() datablock.Ref {
	return datablock.Ref{Kind: datablock.Kind(e.Kind), Name: e.Name}
}

// LinkEntry is a datablock owned by another unit.
type LinkEntry struct {
	Kind string `hcl:"kind,label"`
	Name string `hcl:"name,label"`
	Unit string `hcl:"unit"`
}

// Ref returns the linked reference of the entry.
func (l *LinkEntry) Ref() datablock.Ref {
	return datablock.Ref{Kind: datablock.Kind(l.Kind), Name: l.Name, Unit: l.Unit}
}

// Parse decodes and validates HCL source. The filename is used in
// diagnostics only.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse unit file %s: %w", filename, diags)
	}

	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode unit file %s: %w", filename, diags)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid unit file %s: %w", filename, err)
	}
	return &f, nil
}

// ReadFile reads and parses the file at path.
func ReadFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit file: %w", err)
	}
	return Parse(src, path)
}

// validate normalises kinds and checks that names are unique and every local
// reference resolves within the file.
func (f *File) validate() error {
	local := make(map[datablock.Ref]struct{}, len(f.Datablocks))
	for _, e := range f.Datablocks {
		kind, err := datablock.ParseKind(e.Kind)
		if err != nil {
			return fmt.Errorf("datablock %q: %w", e.Name, err)
		}
		e.Kind = string(kind)
		if e.Name == "" {
			return fmt.Errorf("datablock of kind %s has an empty name", kind)
		}
		if _, dup := local[e.Ref()]; dup {
			return fmt.Errorf("duplicate datablock %s", e.Ref())
		}
		local[e.Ref()] = struct{}{}
	}

	links := make(map[datablock.Ref]struct{}, len(f.Links))
	for _, l := range f.Links {
		kind, err := datablock.ParseKind(l.Kind)
		if err != nil {
			return fmt.Errorf("link %q: %w", l.Name, err)
		}
		l.Kind = string(kind)
		if l.Unit == "" {
			return fmt.Errorf("link %s/%s has an empty unit", kind, l.Name)
		}
		if _, dup := links[l.Ref()]; dup {
			return fmt.Errorf("duplicate link %s", l.Ref())
		}
		links[l.Ref()] = struct{}{}
	}

	for _, e := range f.Datablocks {
		for _, raw := range e.Uses {
			ref, err := datablock.ParseRef(raw)
			if err != nil {
				return fmt.Errorf("datablock %s: %w", e.Ref(), err)
			}
			if ref.IsLinked() {
				continue
			}
			if _, ok := local[ref]; !ok {
				return fmt.Errorf("datablock %s uses %s, which is not defined in this file", e.Ref(), ref)
			}
		}
	}
	return nil
}

// Localize rewrites references into unitPath as local references and drops
// the links that point at unitPath. A unit never links itself.
func (f *File) Localize(unitPath string) {
	for _, e := range f.Datablocks {
		for i, raw := range e.Uses {
			ref, err := datablock.ParseRef(raw)
			if err == nil && ref.Unit == unitPath {
				ref.Unit = ""
				e.Uses[i] = ref.String()
			}
		}
	}
	f.Links = slices.DeleteFunc(f.Links, func(l *LinkEntry) bool {
		return l.Unit == unitPath
	})
}

// Bytes encodes the file as formatted HCL.
func (f *File) Bytes() []byte {
	out := hclwrite.NewEmptyFile()
	body := out.Body()

	for i, e := range f.Datablocks {
		if i > 0 {
			body.AppendNewline()
		}
		blk := body.AppendNewBlock("datablock", []string{e.Kind, e.Name}).Body()
		if e.SubType != "" {
			blk.SetAttributeValue("subtype", cty.StringVal(e.SubType))
		}
		if e.Keep {
			blk.SetAttributeValue("keep", cty.True)
		}
		if len(e.Uses) > 0 {
			uses := make([]cty.Value, 0, len(e.Uses))
			for _, u := range e.Uses {
				uses = append(uses, cty.StringVal(u))
			}
			blk.SetAttributeValue("uses", cty.ListVal(uses))
		}
	}

	for i, l := range f.Links {
		if i > 0 || len(f.Datablocks) > 0 {
			body.AppendNewline()
		}
		blk := body.AppendNewBlock("link", []string{l.Kind, l.Name}).Body()
		blk.SetAttributeValue("unit", cty.StringVal(l.Unit))
	}

	return hclwrite.Format(out.Bytes())
}

// WriteFile writes the encoded file to path, replacing any previous content.
func WriteFile(path string, f *File) error {
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	return nil
}
