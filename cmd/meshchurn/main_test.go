package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/persist"
	"github.com/ritzau/meshchurn/pkg/topology"
)

func writeRing(t *testing.T, path string) {
	t.Helper()
	g, err := topology.Build(nil, []topology.Edge{
		{Src: "a", Dst: "b"}, {Src: "b", Dst: "c"}, {Src: "c", Dst: "d"},
		{Src: "d", Dst: "a"}, {Src: "d", Dst: "e"},
	})
	require.NoError(t, err)
	_, err = persist.NewStore(nil).Save(g, path, persist.SaveOptions{Format: persist.FormatGraphML})
	require.NoError(t, err)
}

func TestRun_OneShot(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "mesh.graphml")
	out := filepath.Join(dir, "out.dot")
	writeRing(t, input)

	err := run([]string{
		"--source=file", "-i", input,
		"--wait=2", "--off=1", "-d", "10", "--seed=3",
		"--verify", "-o", out, "--format=dot",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "graph mesh {")

	changes, err := os.ReadFile(persist.ChangesPath(out))
	require.NoError(t, err)
	assert.NotEmpty(t, changes)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"missing input", []string{"--source=file"}},
		{"watch without file source", []string{"--area=8346", "--watch"}},
		{"bad wait spec", []string{"--source=file", "-i", "missing.graphml", "--wait=soon"}},
		{"missing file", []string{"--source=file", "-i", filepath.Join(t.TempDir(), "none.graphml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args))
		})
	}
}

func TestRun_Help(t *testing.T) {
	assert.NoError(t, run([]string{"--help"}))
}

func TestNewSource(t *testing.T) {
	store := persist.NewStore(nil)

	assert.Equal(t, "File", newSource(&config.Config{Source: "file"}, store).Name())
	assert.Equal(t, "CNML", newSource(&config.Config{Source: "cnml", Endpoint: config.DefaultEndpoint, Timeout: 1}, store).Name())
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging(&config.Config{Verbosity: "debug", LogFormat: "compact"}))
	assert.Error(t, setupLogging(&config.Config{Verbosity: "chatty"}))
}
