// Package csrio serializes partitioned graphs to the on-disk fragment layout
// and loads them back:
//
//	<root>/minigraph_meta/<gid>.bin
//	<root>/minigraph_data/<gid>.bin
//	<root>/minigraph_vdata/<gid>.bin
//	<root>/minigraph_message/vid_map.bin
//	<root>/minigraph_message/global_border_vid_map.bin
//	<root>/minigraph_border_vertexes/communication_matrix.bin
//
// Every file is a sequence of CRC32 frames (see package persistence) opened by
// a header frame carrying the file magic, the format version and counters.
package csrio

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/sanonone/minigraph/pkg/graph"
)

// Directory names of the layout.
const (
	MetaDir    = "minigraph_meta"
	DataDir    = "minigraph_data"
	VDataDir   = "minigraph_vdata"
	MessageDir = "minigraph_message"
	BorderDir  = "minigraph_border_vertexes"

	VidMapFile = "vid_map.bin"
	BorderFile = "global_border_vid_map.bin"
	MatrixFile = "communication_matrix.bin"
)

// File magics ("MG" + two letters, little-endian).
const (
	metaMagic   uint32 = 0x4D43474D // "MGCM"
	dataMagic   uint32 = 0x4443474D // "MGCD"
	vdataMagic  uint32 = 0x5643474D // "MGCV"
	vidMapMagic uint32 = 0x4D56474D // "MGVM"
	borderMagic uint32 = 0x4442474D // "MGBD"
	matrixMagic uint32 = 0x5843474D // "MGCX"
)

// Layout resolves paths below a root directory.
type Layout struct {
	Root string
}

// Dirs returns every directory of the layout.
func (l Layout) Dirs() []string {
	return []string{MetaDir, DataDir, VDataDir, MessageDir, BorderDir}
}

// MkdirAll creates every directory of the layout.
func (l Layout) MkdirAll() error {
	for _, d := range l.Dirs() {
		p := filepath.Join(l.Root, d)
		if err := os.MkdirAll(p, 0755); err != nil {
			return graph.NewIOError("mkdir", p, -1, err)
		}
	}
	return nil
}

func fragmentFile(gid graph.GID) string {
	return strconv.FormatUint(uint64(gid), 10) + ".bin"
}

func (l Layout) MetaPath(gid graph.GID) string {
	return filepath.Join(l.Root, MetaDir, fragmentFile(gid))
}

func (l Layout) DataPath(gid graph.GID) string {
	return filepath.Join(l.Root, DataDir, fragmentFile(gid))
}

func (l Layout) VDataPath(gid graph.GID) string {
	return filepath.Join(l.Root, VDataDir, fragmentFile(gid))
}

func (l Layout) VidMapPath() string {
	return filepath.Join(l.Root, MessageDir, VidMapFile)
}

func (l Layout) BorderPath() string {
	return filepath.Join(l.Root, MessageDir, BorderFile)
}

func (l Layout) MatrixPath() string {
	return filepath.Join(l.Root, BorderDir, MatrixFile)
}
