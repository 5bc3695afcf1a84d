package config

import "github.com/spf13/pflag"

// NewFlagSet declares the command-line flags understood by Load. Flag
// names match configuration keys, and the defaults shown in help are the
// ones from Defaults.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Defaults()
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)

	f.String("source", d["source"].(string), "Topology source: cnml or file")
	f.String("area", "", "CNML area (zone) ID to import")
	f.String("endpoint", DefaultEndpoint, "CNML service base URL")
	f.StringP("input", "i", "", "GraphML topology file (with --source=file)")
	f.Int("timeout", d["timeout"].(int), "CNML fetch timeout in seconds")

	f.Float64P("duration", "d", d["duration"].(float64), "Simulated time span in seconds")
	f.String("wait", d["wait"].(string), "Time between failures: N, exp:MEAN, uniform:MIN:MAX, normal:MEAN:SD or lognormal:MU:SIGMA")
	f.String("off", d["off"].(string), "How long a failed link stays down, same syntax as --wait")
	f.String("quality", "", "Assign link qualities before simulating, same syntax as --wait")
	f.Bool("simultaneous", false, "Let failures overlap instead of waiting out each one")
	f.Uint64("seed", 0, "Random seed (0 picks one)")
	f.Bool("verify", false, "Replay the generated log and check that no bridge went down")
	f.Bool("hops", false, "Measure the diameter in links instead of link quality")

	f.StringP("output", "o", "", "Write the topology here, and the events to <output>_changes")
	f.String("format", d["format"].(string), "Output format: graphml, dot, json or yaml")

	f.Bool("web", false, "Start web server")
	f.Int("port", d["port"].(int), "Port for web server")
	f.Bool("watch", false, "Re-run when the input file changes (with --source=file)")

	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.String("logformat", d["logformat"].(string), "Log format: compact or json")

	return f
}
