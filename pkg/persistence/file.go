package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/storage/mmap"
)

// FormatVersion is written in every header frame.
const FormatVersion uint32 = 1

// FileWriter writes a framed graph file. Frames are buffered; Close flushes,
// fsyncs and closes the file.
type FileWriter struct {
	file    *os.File
	buf     *bufio.Writer
	fw      *FrameWriter
	path    string
	written int64
}

// Create truncates or creates the file at path.
func Create(path string) (*FileWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, graph.NewIOError("create", path, -1, err)
	}
	buf := bufio.NewWriterSize(file, 1<<20)
	return &FileWriter{
		file: file,
		buf:  buf,
		fw:   NewFrameWriter(buf),
		path: path,
	}, nil
}

// WriteHeader writes the header frame: [fileMagic u32][FormatVersion u32]
// followed by the given counters as u64.
func (w *FileWriter) WriteHeader(fileMagic uint32, fields ...uint64) error {
	payload := make([]byte, 8+8*len(fields))
	binary.LittleEndian.PutUint32(payload[0:4], fileMagic)
	binary.LittleEndian.PutUint32(payload[4:8], FormatVersion)
	for i, f := range fields {
		binary.LittleEndian.PutUint64(payload[8+8*i:], f)
	}
	return w.write(KindHeader, payload)
}

// WritePayload writes one payload frame.
func (w *FileWriter) WritePayload(payload []byte) error {
	return w.write(KindPayload, payload)
}

func (w *FileWriter) write(kind byte, payload []byte) error {
	n, err := w.fw.WriteFrame(kind, payload)
	if err != nil {
		return graph.NewIOError("write", w.path, w.written, err)
	}
	w.written += int64(n)
	return nil
}

// Path returns the file path.
func (w *FileWriter) Path() string {
	return w.path
}

// Written returns the number of bytes framed so far.
func (w *FileWriter) Written() int64 {
	return w.written
}

// Close flushes the buffer, forces the data to disk and closes the file.
func (w *FileWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return graph.NewIOError("flush", w.path, w.written, err)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return graph.NewIOError("sync", w.path, -1, err)
	}
	if err := w.file.Close(); err != nil {
		return graph.NewIOError("close", w.path, -1, err)
	}
	return nil
}

// Decoder reads frames back from an in-memory (usually memory-mapped) file
// and reports failures with the file path and byte offset.
type Decoder struct {
	r    *bytes.Reader
	path string
	off  int64
}

func NewDecoder(data []byte, path string) *Decoder {
	return &Decoder{r: bytes.NewReader(data), path: path}
}

// Offset returns the offset of the next frame.
func (d *Decoder) Offset() int64 {
	return d.off
}

// Header reads the header frame, checks the file magic and version and
// returns exactly want counters.
func (d *Decoder) Header(fileMagic uint32, want int) ([]uint64, error) {
	start := d.off
	payload, err := d.next(KindHeader)
	if err != nil {
		return nil, err
	}
	if len(payload) != 8+8*want {
		return nil, graph.NewIOError("read", d.path, start, fmt.Errorf("header has %d bytes, want %d", len(payload), 8+8*want))
	}
	if m := binary.LittleEndian.Uint32(payload[0:4]); m != fileMagic {
		return nil, graph.NewIOError("read", d.path, start, fmt.Errorf("file magic %#x, want %#x", m, fileMagic))
	}
	if v := binary.LittleEndian.Uint32(payload[4:8]); v != FormatVersion {
		return nil, graph.NewIOError("read", d.path, start, fmt.Errorf("unsupported format version %d", v))
	}
	fields := make([]uint64, want)
	for i := range fields {
		fields[i] = binary.LittleEndian.Uint64(payload[8+8*i:])
	}
	return fields, nil
}

// Payload reads the next payload frame.
func (d *Decoder) Payload() ([]byte, error) {
	return d.next(KindPayload)
}

// Uint32s reads a payload frame holding exactly n uint32 values.
func (d *Decoder) Uint32s(n uint64) ([]uint32, error) {
	return decodeN(d, n, DecodeUint32s)
}

// Uint64s reads a payload frame holding exactly n uint64 values.
func (d *Decoder) Uint64s(n uint64) ([]uint64, error) {
	return decodeN(d, n, DecodeUint64s)
}

// Float32s reads a payload frame holding exactly n float32 values.
func (d *Decoder) Float32s(n uint64) ([]float32, error) {
	return decodeN(d, n, DecodeFloat32s)
}

func decodeN[T any](d *Decoder, n uint64, decode func([]byte) ([]T, error)) ([]T, error) {
	start := d.off
	payload, err := d.Payload()
	if err != nil {
		return nil, err
	}
	vs, err := decode(payload)
	if err != nil {
		return nil, graph.NewIOError("decode", d.path, start, err)
	}
	if uint64(len(vs)) != n {
		return nil, graph.NewIOError("decode", d.path, start, fmt.Errorf("array has %d elements, want %d", len(vs), n))
	}
	return vs, nil
}

func (d *Decoder) next(kind byte) ([]byte, error) {
	start := d.off
	k, payload, n, err := ReadFrame(d.r)
	d.off += int64(n)
	if err == io.EOF {
		err = ErrIncompleteFrame
	}
	if err != nil {
		return nil, graph.NewIOError("read", d.path, start, err)
	}
	if k != kind {
		return nil, graph.NewIOError("read", d.path, start, fmt.Errorf("%w: got %#x, want %#x", ErrUnexpectedKind, k, kind))
	}
	return payload, nil
}

// ReadFile maps path read-only and decodes it with fn. Errors that do not
// already carry file context are wrapped with the path and the offset the
// decoder had reached.
func ReadFile(path string, fn func(d *Decoder) error) error {
	return mmap.ReadFile(path, func(data []byte) error {
		d := NewDecoder(data, path)
		if err := fn(d); err != nil {
			var ioErr *graph.IOError
			if errors.As(err, &ioErr) {
				return err
			}
			return graph.NewIOError("decode", path, d.Offset(), err)
		}
		return nil
	})
}
