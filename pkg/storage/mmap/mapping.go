// Package mmap maps graph files read-only into memory so fragments and edge
// lists can be decoded without an extra copy through read buffers.
package mmap

import (
	"os"
	"sync"

	"github.com/sanonone/minigraph/pkg/graph"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	data   []byte
	mapped bool
}

// Open maps the file at path. Empty files yield an empty mapping without a
// system mapping behind it.
func Open(path string) (*Mapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, graph.NewIOError("open", path, -1, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, graph.NewIOError("stat", path, -1, err)
	}

	m := &Mapping{path: path, file: file}
	if info.Size() == 0 {
		m.data = []byte{}
		return m, nil
	}

	data, err := mmapFile(file.Fd(), int(info.Size()))
	if err != nil {
		file.Close()
		return nil, graph.NewIOError("mmap", path, -1, err)
	}
	m.data = data
	m.mapped = true
	return m, nil
}

// Bytes returns the mapped contents. The slice is only valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the file size.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Path returns the mapped file path.
func (m *Mapping) Path() string {
	return m.path
}

// Close unmaps the file and closes it. It is safe to call more than once.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	var firstErr error
	if m.mapped {
		if err := munmapFile(m.data); err != nil {
			firstErr = graph.NewIOError("munmap", m.path, -1, err)
		}
		m.mapped = false
	}
	if err := m.file.Close(); err != nil && firstErr == nil {
		firstErr = graph.NewIOError("close", m.path, -1, err)
	}
	m.file = nil
	m.data = nil
	return firstErr
}

// ReadFile maps path, passes the contents to fn and unmaps it afterwards.
// fn must not retain the slice.
func ReadFile(path string, fn func(data []byte) error) error {
	m, err := Open(path)
	if err != nil {
		return err
	}
	fnErr := fn(m.Bytes())
	if err := m.Close(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}
