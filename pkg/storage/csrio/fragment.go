package csrio

import (
	"fmt"

	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/persistence"
)

// WriteFragment writes the three files of fragment g.
func WriteFragment(l Layout, g *graph.CSR) error {
	if err := g.Validate(); err != nil {
		return err
	}
	n := uint64(g.NumVertexes())
	inOffset := g.InOffset
	if len(inOffset) == 0 {
		inOffset = make([]uint64, n+1)
	}

	// 1. Topology metadata: ids and offsets.
	err := writeFile(l.MetaPath(g.GID), func(w *persistence.FileWriter) error {
		if err := w.WriteHeader(metaMagic, uint64(g.GID), n, uint64(g.NumOutEdges()), uint64(g.NumInEdges())); err != nil {
			return err
		}
		if err := w.WritePayload(persistence.EncodeUint32s(g.GlobalIDs)); err != nil {
			return err
		}
		if err := w.WritePayload(persistence.EncodeUint64s(g.OutOffset)); err != nil {
			return err
		}
		return w.WritePayload(persistence.EncodeUint64s(inOffset))
	})
	if err != nil {
		return err
	}

	// 2. Adjacency arrays and edge payloads.
	err = writeFile(l.DataPath(g.GID), func(w *persistence.FileWriter) error {
		if err := w.WriteHeader(dataMagic, uint64(g.GID), uint64(g.NumOutEdges()), uint64(g.NumInEdges()), uint64(len(g.OutEData))); err != nil {
			return err
		}
		if err := w.WritePayload(persistence.EncodeUint32s(g.OutEdges)); err != nil {
			return err
		}
		if err := w.WritePayload(persistence.EncodeUint32s(g.InEdges)); err != nil {
			return err
		}
		return w.WritePayload(persistence.EncodeFloat32s(g.OutEData))
	})
	if err != nil {
		return err
	}

	// 3. Vertex payloads.
	return writeFile(l.VDataPath(g.GID), func(w *persistence.FileWriter) error {
		if err := w.WriteHeader(vdataMagic, uint64(g.GID), n); err != nil {
			return err
		}
		return w.WritePayload(persistence.EncodeFloat32s(g.VData))
	})
}

// ReadFragment loads fragment gid and validates it.
func ReadFragment(l Layout, gid graph.GID) (*graph.CSR, error) {
	g := &graph.CSR{GID: gid}
	var n, outEdges, inEdges uint64

	err := persistence.ReadFile(l.MetaPath(gid), func(d *persistence.Decoder) error {
		fields, err := d.Header(metaMagic, 4)
		if err != nil {
			return err
		}
		if graph.GID(fields[0]) != gid {
			return fmt.Errorf("file holds fragment %d", fields[0])
		}
		n, outEdges, inEdges = fields[1], fields[2], fields[3]
		if g.GlobalIDs, err = d.Uint32s(n); err != nil {
			return err
		}
		if g.OutOffset, err = d.Uint64s(n + 1); err != nil {
			return err
		}
		g.InOffset, err = d.Uint64s(n + 1)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = persistence.ReadFile(l.DataPath(gid), func(d *persistence.Decoder) error {
		fields, err := d.Header(dataMagic, 4)
		if err != nil {
			return err
		}
		if graph.GID(fields[0]) != gid || fields[1] != outEdges || fields[2] != inEdges {
			return fmt.Errorf("adjacency header %v disagrees with topology (%d out, %d in)", fields, outEdges, inEdges)
		}
		if g.OutEdges, err = d.Uint32s(outEdges); err != nil {
			return err
		}
		if g.InEdges, err = d.Uint32s(inEdges); err != nil {
			return err
		}
		g.OutEData, err = d.Float32s(fields[3])
		return err
	})
	if err != nil {
		return nil, err
	}

	err = persistence.ReadFile(l.VDataPath(gid), func(d *persistence.Decoder) error {
		fields, err := d.Header(vdataMagic, 2)
		if err != nil {
			return err
		}
		if graph.GID(fields[0]) != gid || fields[1] != n {
			return fmt.Errorf("vertex data header %v disagrees with topology (%d vertexes)", fields, n)
		}
		g.VData, err = d.Float32s(n)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("load fragment %d: %w", gid, err)
	}
	return g, nil
}

// writeFile creates path, lets fn fill it and closes it. A failed write
// leaves the partial file behind for the caller's staging cleanup.
func writeFile(path string, fn func(w *persistence.FileWriter) error) error {
	w, err := persistence.Create(path)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
