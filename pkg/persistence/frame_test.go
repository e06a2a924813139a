package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/sanonone/minigraph/pkg/graph"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if _, err := fw.WriteFrame(KindHeader, []byte("hdr")); err != nil {
		t.Fatal(err)
	}
	if _, err := fw.WriteFrame(KindPayload, []byte{}); err != nil {
		t.Fatal(err)
	}

	kind, payload, n, err := ReadFrame(&buf)
	if err != nil || kind != KindHeader || string(payload) != "hdr" || n != HeaderSize+3 {
		t.Fatalf("first frame = %x %q %d %v", kind, payload, n, err)
	}
	kind, payload, _, err = ReadFrame(&buf)
	if err != nil || kind != KindPayload || len(payload) != 0 {
		t.Fatalf("empty frame = %x %q %v", kind, payload, err)
	}
	if _, _, _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("read past end = %v, want io.EOF", err)
	}
}

func TestFrameCorruption(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewFrameWriter(&buf).WriteFrame(KindPayload, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()

	flipped := slices.Clone(raw)
	flipped[len(flipped)-1] ^= 0xFF
	if _, _, _, err := ReadFrame(bytes.NewReader(flipped)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("flipped payload = %v, want ErrChecksumMismatch", err)
	}

	badMagic := slices.Clone(raw)
	badMagic[0] = 0x00
	if _, _, _, err := ReadFrame(bytes.NewReader(badMagic)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("bad magic = %v, want ErrInvalidMagic", err)
	}

	if _, _, _, err := ReadFrame(bytes.NewReader(raw[:len(raw)-2])); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("truncated payload = %v, want ErrIncompleteFrame", err)
	}
	if _, _, _, err := ReadFrame(bytes.NewReader(raw[:4])); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("truncated header = %v, want ErrIncompleteFrame", err)
	}
}

func TestFileWriterAndDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arrays.bin")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	ids := []uint32{1, 2, 3}
	offs := []uint64{0, 10, 1 << 40}
	vals := []float32{0.5, -1, 3.25}
	for _, step := range []error{
		w.WriteHeader(0xC0FFEE, 3, 7),
		w.WritePayload(EncodeUint32s(ids)),
		w.WritePayload(EncodeUint64s(offs)),
		w.WritePayload(EncodeFloat32s(vals)),
	} {
		if step != nil {
			t.Fatal(step)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDecoder(data, path)
	fields, err := d.Header(0xC0FFEE, 2)
	if err != nil || !slices.Equal(fields, []uint64{3, 7}) {
		t.Fatalf("Header = %v, %v", fields, err)
	}
	gotIDs, err := d.Uint32s(3)
	if err != nil || !slices.Equal(gotIDs, ids) {
		t.Fatalf("Uint32s = %v, %v", gotIDs, err)
	}
	gotOffs, err := d.Uint64s(3)
	if err != nil || !slices.Equal(gotOffs, offs) {
		t.Fatalf("Uint64s = %v, %v", gotOffs, err)
	}
	gotVals, err := d.Float32s(3)
	if err != nil || !slices.Equal(gotVals, vals) {
		t.Fatalf("Float32s = %v, %v", gotVals, err)
	}
	if d.Offset() != int64(len(data)) {
		t.Errorf("Offset = %d, want %d", d.Offset(), len(data))
	}

	// Past the last frame the layout is incomplete, reported with the offset.
	_, err = d.Payload()
	var ioErr *graph.IOError
	if !errors.As(err, &ioErr) || ioErr.Offset != int64(len(data)) || !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("Payload past end = %v", err)
	}
}

func TestDecoderRejectsWrongLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WritePayload(EncodeUint32s([]uint32{1})); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)

	if _, err := NewDecoder(data, path).Header(1, 0); !errors.Is(err, ErrUnexpectedKind) {
		t.Errorf("Header on payload frame = %v, want ErrUnexpectedKind", err)
	}
	if _, err := NewDecoder(data, path).Uint32s(2); err == nil {
		t.Error("length mismatch not detected")
	}
}
