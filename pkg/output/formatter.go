package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/meshchurn/pkg/model"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// maxListedBridges caps the bridge list; the count is always printed.
const maxListedBridges = 20

// PrintReport prints a nicely formatted run report with colors
func PrintReport(w io.Writer, summary model.Summary, bridges []topology.Edge) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "meshchurn - Link Churn Report")
	bold.Fprintln(w, "=============================")
	fmt.Fprintf(w, "Source: %s\n", summary.Source)
	fmt.Fprintf(w, "Topology: %d sites, %d links\n", summary.Nodes, summary.Links)

	if summary.Diameter != nil {
		d := summary.Diameter
		fmt.Fprintf(w, "Diameter: %g (%s to %s)\n", d.Distance, d.Src, d.Dst)
	} else {
		yellow.Fprintln(w, "Diameter: undefined")
	}
	fmt.Fprintln(w)

	// Bridges
	eligible := summary.Links - summary.Bridges
	switch {
	case summary.Links == 0:
		yellow.Fprintln(w, "No links: nothing can fail")
	case summary.Bridges == 0:
		green.Fprintf(w, "Bridges: 0 (all %d links may fail)\n", summary.Links)
	default:
		red.Fprintf(w, "Bridges: %d (never failed)\n", summary.Bridges)
		for i, b := range bridges {
			if i == maxListedBridges {
				cyan.Fprintf(w, "  ... and %d more\n", len(bridges)-maxListedBridges)
				break
			}
			cyan.Fprintf(w, "  %s - %s\n", b.Src, b.Dst)
		}
		fmt.Fprintf(w, "Eligible links: %d\n", eligible)
	}
	fmt.Fprintln(w)

	// Simulation
	fmt.Fprintf(w, "Simulation (%s): %d down, %d up, last event at %gs\n",
		summary.Mode, summary.Downs, summary.Ups, summary.Horizon)
	if still := summary.Downs - summary.Ups; still > 0 {
		yellow.Fprintf(w, "  %d link(s) still down at the horizon\n", still)
	}
	if summary.Downs == 0 && eligible > 0 {
		yellow.Fprintln(w, "  No failures within the duration")
	}
	if summary.Verified {
		green.Fprintln(w, "✓ Event log verified: no bridge was ever taken down")
	}

	// Files
	if len(summary.WrittenFiles) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Wrote:")
		for _, path := range summary.WrittenFiles {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
}
