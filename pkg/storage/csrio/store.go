package csrio

import (
	"log/slog"
	"runtime"

	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/metrics"
	"github.com/sanonone/minigraph/pkg/partition"
	"golang.org/x/sync/errgroup"
)

// Write serializes every fragment and the metadata below l.Root. Fragments
// are written concurrently, at most workers at a time.
func Write(l Layout, fragments []*graph.CSR, m *partition.Metadata, workers int) error {
	if len(fragments) != m.NumFragments {
		return graph.Preconditionf("metadata describes %d fragments, got %d", m.NumFragments, len(fragments))
	}
	if err := l.MkdirAll(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, frag := range fragments {
		g.Go(func() error {
			if err := WriteFragment(l, frag); err != nil {
				return err
			}
			metrics.FragmentsWritten.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := WriteMetadata(l, m); err != nil {
		return err
	}

	slog.Debug("Graph written", "root", l.Root, "fragments", len(fragments), "vertexes", m.NumVertexes)
	return nil
}

// Read loads the metadata and then every fragment it names, concurrently.
// The result passes Metadata.Validate.
func Read(l Layout, workers int) ([]*graph.CSR, *partition.Metadata, error) {
	m, err := ReadMetadata(l)
	if err != nil {
		return nil, nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	fragments := make([]*graph.CSR, m.NumFragments)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range fragments {
		g.Go(func() error {
			frag, err := ReadFragment(l, graph.GID(i))
			if err != nil {
				return err
			}
			fragments[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := m.Validate(fragments); err != nil {
		return nil, nil, err
	}
	return fragments, m, nil
}
