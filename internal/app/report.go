package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/splode/internal/datablock"
	"github.com/vk/splode/internal/splode"
)

// WriteReport prints a human-readable summary of a decomposition run.
func WriteReport(w io.Writer, r *splode.Report) {
	fmt.Fprintf(w, "run %s\n", r.RunID)
	fmt.Fprintf(w, "extracted: %d\n", len(r.Extracted))
	for _, res := range r.Extracted {
		fmt.Fprintf(w, "  %s -> %s\n", res.Block, res.UnitPath)
	}
	fmt.Fprintf(w, "already done: %d\n", len(r.AlreadyDone))

	fmt.Fprintf(w, "cycle groups: %d\n", len(r.Groups))
	for _, g := range r.Groups {
		fmt.Fprintf(w, "  carrier %s embeds %s\n", g.Carrier, joinBlocks(g.Embedded))
		if g.SecondaryErr != nil {
			fmt.Fprintf(w, "    secondary resolution failed: %v\n", g.SecondaryErr)
		} else if len(g.Relinked) > 0 {
			fmt.Fprintf(w, "    relinked %s\n", joinBlocks(g.Relinked))
		}
	}

	if len(r.Ambiguous) > 0 {
		fmt.Fprintf(w, "ambiguous (references left on the original): %s\n", joinBlocks(r.Ambiguous))
	}
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(w, "unmatched (missing from the carrier unit): %s\n", joinBlocks(r.Unmatched))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "failed: %s: %v\n", f.Block, f.Err)
	}
}

// WriteCycles prints a cycle preview.
func WriteCycles(w io.Writer, r *splode.CycleReport) {
	fmt.Fprintf(w, "cycles (first %d):\n", len(r.Cycles))
	for _, c := range r.Cycles {
		fmt.Fprintf(w, "  %s\n", c)
	}
	fmt.Fprintf(w, "groups: %d\n", len(r.Groups))
	if len(r.Partitions) == 0 {
		for _, g := range r.Groups {
			fmt.Fprintf(w, "  %s\n", g)
		}
		return
	}
	for _, p := range r.Partitions {
		fmt.Fprintf(w, "  %s carrier %s\n", p.Group, p.Carrier)
	}
}

// WriteListing prints the datablocks and links of listed units.
func WriteListing(w io.Writer, listings []Listing) {
	for _, l := range listings {
		fmt.Fprintf(w, "%s:\n", l.Path)
		for _, e := range l.File.Datablocks {
			line := "  " + e.Ref().String()
			if e.SubType != "" {
				line += " (" + e.SubType + ")"
			}
			if len(e.Uses) > 0 {
				line += " uses " + strings.Join(e.Uses, ", ")
			}
			fmt.Fprintln(w, line)
		}
		for _, link := range l.File.Links {
			fmt.Fprintf(w, "  link %s\n", link.Ref())
		}
	}
}

func joinBlocks(blocks []*datablock.Block) string {
	names := make([]string, 0, len(blocks))
	for _, b := range blocks {
		names = append(names, b.String())
	}
	return strings.Join(names, ", ")
}
