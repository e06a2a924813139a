package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the framed binary layout shared by every graph file.
const (
	// MagicByte marks the start of a frame. A different byte at a frame
	// boundary means the stream lost synchronization.
	MagicByte = 0xA5

	// HeaderSize is the fixed frame metadata:
	// 1 byte (Magic) + 1 byte (Kind) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10

	// KindHeader frames open a file and carry its identity and counters.
	KindHeader byte = 0x01
	// KindPayload frames carry one encoded array.
	KindPayload byte = 0x02
)

var (
	// ErrInvalidMagic indicates the file stream lost synchronization or is not a graph file.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended inside a frame (e.g. interrupted write).
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrUnexpectedKind indicates a frame of another kind than the layout requires.
	ErrUnexpectedKind = errors.New("unexpected frame kind")
)

// FrameWriter handles the writing of binary frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter creates a writer that wraps an underlying io.Writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the payload into a binary frame and writes it.
// Frame Format: [Magic(1)][Kind(1)][Length(4)][CRC(4)][Payload(N)]
// It returns the number of bytes written.
func (fw *FrameWriter) WriteFrame(kind byte, payload []byte) (int, error) {
	header := make([]byte, HeaderSize)
	header[0] = MagicByte
	header[1] = kind
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	// fw.w is expected to be buffered so header and payload reach the OS together.
	if _, err := fw.w.Write(header); err != nil {
		return 0, err
	}
	if _, err := fw.w.Write(payload); err != nil {
		return HeaderSize, err
	}
	return HeaderSize + len(payload), nil
}

// ReadFrame reads the next frame from the reader, validating the magic byte
// and the CRC32 checksum. It returns the frame kind, the payload and the total
// bytes consumed (header + payload). io.EOF is returned only at a clean frame
// boundary.
func ReadFrame(r io.Reader) (byte, []byte, int, error) {
	header := make([]byte, HeaderSize)

	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, 0, io.EOF
		}
		// Partial header (ErrUnexpectedEOF): truncated file.
		return 0, nil, 0, ErrIncompleteFrame
	}

	if header[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}
	kind := header[1]
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		// Even a clean EOF is an error here: 'length' bytes were promised.
		return kind, nil, HeaderSize, ErrIncompleteFrame
	}

	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return kind, nil, HeaderSize + int(length), ErrChecksumMismatch
	}
	return kind, payload, HeaderSize + int(length), nil
}
