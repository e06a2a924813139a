//go:build unix || darwin || linux

package mmap

import (
	"golang.org/x/sys/unix"
)

// mmapFile maps a file descriptor into memory read-only.
// MAP_SHARED lets the kernel serve pages straight from the page cache.
func mmapFile(fd uintptr, size int) ([]byte, error) {
	return unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

// munmapFile unmaps the memory region, freeing the virtual memory space.
func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
