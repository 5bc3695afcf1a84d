package watcher

// ChangeAnalysis describes what changed and how much of the analysis must
// be re-run
type ChangeAnalysis struct {
	ReloadTopology bool // re-read the topology instead of reusing it
	ReloadConfig   bool // re-read configuration before running
	ChangedFiles   []string
}

// AnalyzeChanges determines what to redo for a debounced change
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeTopology:
		// A new topology invalidates bridges, diameter and the log
		analysis.ReloadTopology = true

	case ChangeTypeConfig:
		// Parameters may differ. The caller reloads the topology as well
		// if the new config points at another one.
		analysis.ReloadConfig = true
	}

	return analysis
}
