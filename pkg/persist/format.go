// Package persist reads and writes mesh topologies and simulation logs.
//
// Topologies are stored as GraphML, DOT, JSON or YAML. A simulation log
// goes next to its topology in a file named <base>_changes with one event
// per line: elapsed seconds since the previous event, source vertex index,
// destination vertex index and the integer quality the link moved to.
package persist

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// ErrUnknownFormat indicates an unsupported topology format.
var ErrUnknownFormat = errors.New("persist: unknown format")

// Format is a topology file format.
type Format string

const (
	FormatGraphML Format = "graphml"
	FormatDOT     Format = "dot"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatGraphML, FormatDOT, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "gv":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Readable reports whether topologies can be read back from the format.
func (f Format) Readable() bool {
	return f != FormatDOT
}

// Encode writes g in the given format. Links in bridges are marked where
// the format has room for it.
func Encode(w io.Writer, g *topology.Graph, format Format, bridges []topology.Edge) error {
	switch format {
	case FormatGraphML:
		return WriteGraphML(w, g)
	case FormatDOT:
		return WriteDOT(w, g, bridges)
	case FormatJSON:
		return writeJSON(w, g, bridges)
	case FormatYAML:
		return writeYAML(w, g, bridges)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode reads a topology in the given format.
func Decode(r io.Reader, format Format) (*topology.Graph, error) {
	switch format {
	case FormatGraphML:
		return ReadGraphML(r)
	case FormatJSON:
		return readJSON(r)
	case FormatYAML:
		return readYAML(r)
	case FormatDOT:
		return nil, fmt.Errorf("%w: dot is write-only", ErrUnknownFormat)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
