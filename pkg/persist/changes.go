package persist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ritzau/meshchurn/pkg/simulate"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// ErrMalformedChanges indicates a changes file that cannot be read.
var ErrMalformedChanges = errors.New("persist: malformed changes file")

// ChangesPath returns the changes file that belongs to a topology file.
func ChangesPath(base string) string {
	return base + "_changes"
}

// WriteChanges writes log as "elapsed src dst quality" lines, with
// endpoints as vertex indices of g and quality truncated to an integer.
func WriteChanges(w io.Writer, g *topology.Graph, log simulate.Log) error {
	bw := bufio.NewWriter(w)
	for i, e := range log {
		src, ok := g.Index(e.Src)
		if !ok {
			return fmt.Errorf("event %d: %w: %s", i, topology.ErrVertexNotFound, e.Src)
		}
		dst, ok := g.Index(e.Dst)
		if !ok {
			return fmt.Errorf("event %d: %w: %s", i, topology.ErrVertexNotFound, e.Dst)
		}
		if _, err := fmt.Fprintf(bw, "%f %d %d %d\n", e.Elapsed, src, dst, int(e.Quality)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadChanges reads a changes file written against g.
func ReadChanges(r io.Reader, g *topology.Graph) (simulate.Log, error) {
	var log simulate.Log
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		e, err := parseChange(text, g)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedChanges, line, err)
		}
		log = append(log, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return log, nil
}

func parseChange(text string, g *topology.Graph) (simulate.Event, error) {
	fields := strings.Fields(text)
	if len(fields) != 4 {
		return simulate.Event{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	elapsed, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return simulate.Event{}, err
	}
	if elapsed < 0 {
		return simulate.Event{}, fmt.Errorf("negative elapsed time %v", elapsed)
	}

	var ends [2]string
	for k, f := range fields[1:3] {
		idx, err := strconv.Atoi(f)
		if err != nil {
			return simulate.Event{}, err
		}
		if idx < 0 || idx >= g.Order() {
			return simulate.Event{}, fmt.Errorf("vertex index %d out of range", idx)
		}
		ends[k] = g.VertexAt(idx).ID
	}

	quality, err := strconv.Atoi(fields[3])
	if err != nil {
		return simulate.Event{}, err
	}
	if quality < 0 {
		return simulate.Event{}, fmt.Errorf("negative quality %d", quality)
	}

	return simulate.Event{Elapsed: elapsed, Src: ends[0], Dst: ends[1], Quality: float64(quality)}, nil
}
