package persist

import (
	"bufio"
	"fmt"

	"github.com/spf13/afero"

	"github.com/ritzau/meshchurn/pkg/simulate"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// SaveOptions controls what Save writes.
type SaveOptions struct {
	Format  Format
	Bridges []topology.Edge // marked in formats that can show them
	Log     simulate.Log
	Changes bool // write the changes file, even for an empty Log
}

// Store reads and writes topology files on a filesystem.
type Store struct {
	fs afero.Fs
}

// NewStore creates a store on fs; nil means the OS filesystem.
func NewStore(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Save writes g to base and, if requested, the log to base's changes
// file. It returns the paths written.
func (s *Store) Save(g *topology.Graph, base string, opts SaveOptions) ([]string, error) {
	var written []string

	if err := s.write(base, func(w *bufio.Writer) error {
		return Encode(w, g, opts.Format, opts.Bridges)
	}); err != nil {
		return written, err
	}
	written = append(written, base)

	if opts.Changes {
		path := ChangesPath(base)
		if err := s.write(path, func(w *bufio.Writer) error {
			return WriteChanges(w, g, opts.Log)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Load reads a topology, picking the format from the file extension.
func (s *Store) Load(path string) (*topology.Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// LoadChanges reads the changes file of base against g.
func (s *Store) LoadChanges(base string, g *topology.Graph) (simulate.Log, error) {
	path := ChangesPath(base)
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log, err := ReadChanges(f, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return log, nil
}

func (s *Store) write(path string, fill func(w *bufio.Writer) error) error {
	f, err := s.fs.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
