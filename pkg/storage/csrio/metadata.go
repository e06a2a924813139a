package csrio

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/partition"
	"github.com/sanonone/minigraph/pkg/persistence"
	"gonum.org/v1/gonum/mat"
)

// WriteMetadata writes the vid map, the border bitmap and the communication
// matrix of m.
func WriteMetadata(l Layout, m *partition.Metadata) error {
	// 1. vid map: (gid, local) pairs indexed by global id.
	err := writeFile(l.VidMapPath(), func(w *persistence.FileWriter) error {
		if err := w.WriteHeader(vidMapMagic, uint64(len(m.VidMap)), uint64(m.NumVertexes)); err != nil {
			return err
		}
		pairs := make([]uint32, 0, 2*len(m.VidMap))
		for _, e := range m.VidMap {
			pairs = append(pairs, e.GID, e.LocalID)
		}
		return w.WritePayload(persistence.EncodeUint32s(pairs))
	})
	if err != nil {
		return err
	}

	// 2. Border set in the portable roaring format.
	border := roaring.New()
	if m.Border != nil {
		border = m.Border.Clone()
	}
	err = writeFile(l.BorderPath(), func(w *persistence.FileWriter) error {
		border.RunOptimize()
		data, err := border.ToBytes()
		if err != nil {
			return err
		}
		if err := w.WriteHeader(borderMagic, uint64(len(m.VidMap)), border.GetCardinality()); err != nil {
			return err
		}
		return w.WritePayload(data)
	})
	if err != nil {
		return err
	}

	// 3. Row-major k x k matrix.
	return writeFile(l.MatrixPath(), func(w *persistence.FileWriter) error {
		k := m.NumFragments
		if err := w.WriteHeader(matrixMagic, uint64(k)); err != nil {
			return err
		}
		cells := make([]uint64, 0, k*k)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				cells = append(cells, uint64(m.Communication.At(i, j)))
			}
		}
		return w.WritePayload(persistence.EncodeUint64s(cells))
	})
}

// ReadMetadata loads the metadata written by WriteMetadata.
func ReadMetadata(l Layout) (*partition.Metadata, error) {
	m := &partition.Metadata{}

	err := persistence.ReadFile(l.VidMapPath(), func(d *persistence.Decoder) error {
		fields, err := d.Header(vidMapMagic, 2)
		if err != nil {
			return err
		}
		count := fields[0]
		if count == 0 || count > uint64(graph.MaxVID)+1 {
			return fmt.Errorf("vid map holds %d slots", count)
		}
		pairs, err := d.Uint32s(2 * count)
		if err != nil {
			return err
		}
		m.VidMap = make([]partition.VidEntry, count)
		for i := range m.VidMap {
			e := partition.VidEntry{GID: pairs[2*i], LocalID: pairs[2*i+1]}
			if e.GID != graph.MaxGID {
				m.NumVertexes++
			}
			m.VidMap[i] = e
		}
		if uint64(m.NumVertexes) != fields[1] {
			return fmt.Errorf("vid map maps %d vertexes, header claims %d", m.NumVertexes, fields[1])
		}
		m.MaxVID = graph.VID(count - 1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = persistence.ReadFile(l.BorderPath(), func(d *persistence.Decoder) error {
		fields, err := d.Header(borderMagic, 2)
		if err != nil {
			return err
		}
		if fields[0] != uint64(len(m.VidMap)) {
			return fmt.Errorf("border map sized for %d vertexes, vid map has %d", fields[0], len(m.VidMap))
		}
		data, err := d.Payload()
		if err != nil {
			return err
		}
		m.Border = roaring.New()
		if err := m.Border.UnmarshalBinary(data); err != nil {
			return err
		}
		if m.Border.GetCardinality() != fields[1] {
			return fmt.Errorf("border map holds %d vertexes, header claims %d", m.Border.GetCardinality(), fields[1])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = persistence.ReadFile(l.MatrixPath(), func(d *persistence.Decoder) error {
		fields, err := d.Header(matrixMagic, 1)
		if err != nil {
			return err
		}
		k := fields[0]
		if k == 0 || k > uint64(graph.MaxGID) {
			return fmt.Errorf("communication matrix has %d rows", k)
		}
		cells, err := d.Uint64s(k * k)
		if err != nil {
			return err
		}
		dense := make([]float64, len(cells))
		for i, c := range cells {
			dense[i] = float64(c)
		}
		m.NumFragments = int(k)
		m.Communication = mat.NewDense(int(k), int(k), dense)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
