package edgelist

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/persistence"
)

// Files of the binary dump.
const (
	MetaFile  = "minigraph_meta.bin"
	DataFile  = "minigraph_data.bin"
	VDataFile = "minigraph_vdata.bin"
)

const (
	metaMagic  uint32 = 0x4D45474D // "MGEM"
	dataMagic  uint32 = 0x4445474D // "MGED"
	vdataMagic uint32 = 0x5645474D // "MGEV"
)

// BinFiles returns the three dump paths below dir.
func BinFiles(dir string) (meta, data, vdata string) {
	return filepath.Join(dir, MetaFile), filepath.Join(dir, DataFile), filepath.Join(dir, VDataFile)
}

// WriteBin dumps el into dir, which must exist.
func WriteBin(dir string, el *graph.EdgeList) error {
	metaPath, dataPath, vdataPath := BinFiles(dir)
	maxVID, ok := el.MaxID()
	if !ok {
		maxVID = graph.MaxVID
	}

	n := len(el.Edges)
	src := make([]uint32, n)
	dst := make([]uint32, n)
	weights := make([]float32, n)
	for i, e := range el.Edges {
		src[i], dst[i], weights[i] = e.Src, e.Dst, e.Data
	}
	ids := make([]uint32, len(el.Vertexes))
	vdata := make([]float32, len(el.Vertexes))
	for i, v := range el.Vertexes {
		ids[i], vdata[i] = v.ID, v.Data
	}

	err := writeFile(metaPath, metaMagic, []uint64{uint64(n), uint64(len(ids)), uint64(maxVID)})
	if err != nil {
		return err
	}
	err = writeFile(dataPath, dataMagic, []uint64{uint64(n)},
		persistence.EncodeUint32s(src),
		persistence.EncodeUint32s(dst),
		persistence.EncodeFloat32s(weights))
	if err != nil {
		return err
	}
	err = writeFile(vdataPath, vdataMagic, []uint64{uint64(len(ids))},
		persistence.EncodeUint32s(ids),
		persistence.EncodeFloat32s(vdata))
	if err != nil {
		return err
	}

	slog.Info("Binary edge list written", "dir", dir, "edges", n, "vertexes", len(ids))
	return nil
}

func writeFile(path string, magic uint32, header []uint64, payloads ...[]byte) error {
	w, err := persistence.Create(path)
	if err != nil {
		return err
	}
	err = w.WriteHeader(magic, header...)
	for _, p := range payloads {
		if err != nil {
			break
		}
		err = w.WritePayload(p)
	}
	return errors.Join(err, w.Close())
}

// ReadBin loads a dump written by WriteBin.
func ReadBin(dir string) (*graph.EdgeList, error) {
	metaPath, dataPath, vdataPath := BinFiles(dir)
	var numEdges, numVertexes, maxVID uint64

	err := persistence.ReadFile(metaPath, func(d *persistence.Decoder) error {
		fields, err := d.Header(metaMagic, 3)
		if err != nil {
			return err
		}
		numEdges, numVertexes, maxVID = fields[0], fields[1], fields[2]
		return nil
	})
	if err != nil {
		return nil, err
	}

	el := &graph.EdgeList{}
	err = persistence.ReadFile(dataPath, func(d *persistence.Decoder) error {
		fields, err := d.Header(dataMagic, 1)
		if err != nil {
			return err
		}
		if fields[0] != numEdges {
			return fmt.Errorf("data file holds %d edges, meta claims %d", fields[0], numEdges)
		}
		src, err := d.Uint32s(numEdges)
		if err != nil {
			return err
		}
		dst, err := d.Uint32s(numEdges)
		if err != nil {
			return err
		}
		weights, err := d.Float32s(numEdges)
		if err != nil {
			return err
		}
		el.Edges = make([]graph.Edge, numEdges)
		for i := range el.Edges {
			el.Edges[i] = graph.Edge{Src: src[i], Dst: dst[i], Data: weights[i]}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = persistence.ReadFile(vdataPath, func(d *persistence.Decoder) error {
		fields, err := d.Header(vdataMagic, 1)
		if err != nil {
			return err
		}
		if fields[0] != numVertexes {
			return fmt.Errorf("vdata file holds %d vertexes, meta claims %d", fields[0], numVertexes)
		}
		ids, err := d.Uint32s(numVertexes)
		if err != nil {
			return err
		}
		data, err := d.Float32s(numVertexes)
		if err != nil {
			return err
		}
		if numVertexes > 0 {
			el.Vertexes = make([]graph.Vertex, numVertexes)
			for i := range el.Vertexes {
				el.Vertexes[i] = graph.Vertex{ID: ids[i], Data: data[i]}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if got, ok := el.MaxID(); ok && uint64(got) != maxVID {
		return nil, graph.NewIOError("decode", metaPath, 0, fmt.Errorf("max vertex id %d, meta claims %d", got, maxVID))
	}
	return el, nil
}
