package convert

import (
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	"github.com/sanonone/minigraph/internal/fsutil"
	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/partition"
	"github.com/sanonone/minigraph/pkg/storage/csrio"
	"github.com/sanonone/minigraph/pkg/storage/edgelist"
)

// Report summarizes a conversion run.
type Report struct {
	RunID          uuid.UUID
	Type           string
	Fragments      int
	Vertexes       int
	Edges          int
	BorderVertexes uint64
	Duration       time.Duration
}

// Run executes the conversion described by opts. Output is written into a
// staging directory inside opts.Output and published only once complete; on
// failure the previous output is left as it was.
func Run(opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	rep := &Report{RunID: uuid.New(), Type: opts.Type}
	log := slog.With("run_id", rep.RunID.String())

	if !opts.ToBin {
		log.Info("Conversion disabled, nothing to do", "input", opts.Input)
		return rep, nil
	}

	// 1. Load the raw graph.
	el, err := load(opts)
	if err != nil {
		return nil, err
	}
	rep.Edges = el.NumEdges()
	log.Info("Input loaded", "input", opts.Input, "frombin", opts.FromBin, "edges", rep.Edges)

	// 2. Stage the output.
	staging, err := fsutil.NewStaging(opts.Output, rep.RunID.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := staging.Cleanup(); err != nil {
			log.Warn("Failed to remove staging directory", "error", err)
		}
	}()

	var entries []string
	switch opts.Type {
	case TypeEdgeListBin:
		rep.Vertexes = countVertexes(el)
		if err := edgelist.WriteBin(staging.Dir, el); err != nil {
			return nil, err
		}
		entries = []string{edgelist.MetaFile, edgelist.DataFile, edgelist.VDataFile}

	case TypeCSRBin:
		res, err := partition.Partition(el, partition.Options{
			Workers:           opts.Cores,
			ReplicationFactor: opts.ReplicationFactor,
		})
		if err != nil {
			return nil, err
		}
		layout := csrio.Layout{Root: staging.Dir}
		if err := csrio.Write(layout, res.Fragments, res.Metadata, opts.Cores); err != nil {
			return nil, err
		}
		rep.Fragments = len(res.Fragments)
		rep.Vertexes = res.Metadata.NumVertexes
		rep.BorderVertexes = res.Metadata.NumBorder()
		entries = layout.Dirs()
	}

	// 3. Swap the staged entries into place.
	if err := staging.Publish(entries...); err != nil {
		return nil, err
	}

	rep.Duration = time.Since(start)
	log.Info("Conversion completed",
		"type", opts.Type,
		"output", opts.Output,
		"fragments", rep.Fragments,
		"vertexes", rep.Vertexes,
		"edges", rep.Edges,
		"border_vertexes", rep.BorderVertexes,
		"elapsed", rep.Duration,
	)
	return rep, nil
}

func load(opts Options) (*graph.EdgeList, error) {
	if opts.FromBin {
		return edgelist.ReadBin(opts.Input)
	}
	return edgelist.ReadCSV(opts.Input, opts.Separator[0], opts.Cores)
}

func countVertexes(el *graph.EdgeList) int {
	ids := roaring.New()
	for _, e := range el.Edges {
		ids.Add(e.Src)
		ids.Add(e.Dst)
	}
	for _, v := range el.Vertexes {
		ids.Add(v.ID)
	}
	return int(ids.GetCardinality())
}
