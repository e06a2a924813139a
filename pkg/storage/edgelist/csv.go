// Package edgelist reads raw edge lists from delimited text files and
// reads/writes the binary edge-list dump used to skip text parsing on
// repeated conversions.
package edgelist

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"

	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/storage/mmap"
	"golang.org/x/sync/errgroup"
)

// ReadCSV parses a delimited edge list. Each line is "src<sep>dst" with an
// optional third weight column. Blank lines and lines starting with '#' are
// skipped. A first line whose first field is not numeric is treated as a
// column header; any other malformed line, the first included, is an input
// error.
//
// The file is mapped read-only and split into up to cores newline-aligned
// chunks parsed concurrently. Edges keep file order.
func ReadCSV(path string, sep byte, cores int) (*graph.EdgeList, error) {
	if cores < 1 {
		return nil, graph.Configf("csv reader needs at least one core, got %d", cores)
	}
	if sep == '\n' || sep == '\r' || sep == '#' || sep == '.' || sep == '-' || (sep >= '0' && sep <= '9') {
		return nil, graph.Configf("invalid separator %q", sep)
	}

	el := &graph.EdgeList{}
	err := mmap.ReadFile(path, func(data []byte) error {
		bounds := splitLines(data, cores)
		chunks := make([][]graph.Edge, len(bounds)-1)

		var g errgroup.Group
		for w := range chunks {
			lo, hi := bounds[w], bounds[w+1]
			g.Go(func() error {
				edges, err := parseChunk(data[lo:hi], lo, sep, lo == 0)
				if err != nil {
					return graph.NewIOError("parse", path, err.offset, err.err)
				}
				chunks[w] = edges
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		el.Edges = make([]graph.Edge, 0, total)
		for _, c := range chunks {
			el.Edges = append(el.Edges, c...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Edge list parsed", "path", path, "edges", len(el.Edges), "workers", cores)
	return el, nil
}

// splitLines returns chunk boundaries: bounds[0] = 0, bounds[len-1] =
// len(data), and every inner boundary directly follows a newline.
func splitLines(data []byte, parts int) []int {
	bounds := []int{0}
	for w := 1; w < parts; w++ {
		b := max(len(data)*w/parts, bounds[len(bounds)-1])
		if b > 0 && b < len(data) && data[b-1] != '\n' {
			nl := bytes.IndexByte(data[b:], '\n')
			if nl < 0 {
				b = len(data)
			} else {
				b += nl + 1
			}
		}
		if b > bounds[len(bounds)-1] && b < len(data) {
			bounds = append(bounds, b)
		}
	}
	return append(bounds, len(data))
}

type parseError struct {
	offset int64
	err    error
}

// parseChunk parses whole lines. base is the chunk offset within the file.
func parseChunk(chunk []byte, base int, sep byte, first bool) ([]graph.Edge, *parseError) {
	edges := make([]graph.Edge, 0, len(chunk)/8)
	pos := 0
	for pos < len(chunk) {
		end := bytes.IndexByte(chunk[pos:], '\n')
		if end < 0 {
			end = len(chunk)
		} else {
			end += pos
		}
		line := bytes.TrimSpace(chunk[pos:end])
		lineStart := base + pos
		pos = end + 1

		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if first {
			first = false
			if isHeader(line, sep) {
				slog.Debug("Skipping edge list header", "line", string(line))
				continue
			}
		}
		e, err := parseLine(line, sep)
		if err != nil {
			return nil, &parseError{offset: int64(lineStart), err: err}
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func splitFields(line []byte, sep byte) [][]byte {
	if sep == ' ' || sep == '\t' {
		return bytes.Fields(line)
	}
	return bytes.Split(line, []byte{sep})
}

// isHeader reports whether line is a column header: its first field is not a
// number at all. A numeric id that is out of range or reserved is not a header.
func isHeader(line []byte, sep byte) bool {
	first := bytes.TrimSpace(splitFields(line, sep)[0])
	if len(first) == 0 {
		return false
	}
	if c := first[0]; (c >= '0' && c <= '9') || c == '+' || c == '-' {
		return false
	}
	_, err := strconv.ParseUint(string(first), 10, 32)
	return errors.Is(err, strconv.ErrSyntax)
}

func parseLine(line []byte, sep byte) (graph.Edge, error) {
	fields := splitFields(line, sep)
	if len(fields) < 2 || len(fields) > 3 {
		return graph.Edge{}, graph.Inputf("expected 2 or 3 columns separated by %q, got %q", sep, line)
	}

	src, err := parseVID(bytes.TrimSpace(fields[0]))
	if err != nil {
		return graph.Edge{}, err
	}
	dst, err := parseVID(bytes.TrimSpace(fields[1]))
	if err != nil {
		return graph.Edge{}, err
	}
	e := graph.Edge{Src: src, Dst: dst}
	if len(fields) == 3 {
		w, err := strconv.ParseFloat(string(bytes.TrimSpace(fields[2])), 32)
		if err != nil {
			return graph.Edge{}, graph.Inputf("bad edge weight %q: %v", fields[2], err)
		}
		e.Data = graph.EData(w)
	}
	return e, nil
}

func parseVID(field []byte) (graph.VID, error) {
	v, err := strconv.ParseUint(string(field), 10, 32)
	if err != nil {
		return 0, graph.Inputf("bad vertex id %q: %v", field, err)
	}
	if graph.VID(v) == graph.MaxVID {
		return 0, graph.Inputf("vertex id %d is reserved", v)
	}
	return graph.VID(v), nil
}
