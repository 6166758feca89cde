//go:build unix

package mmregion

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Map reserves an anonymous private mapping of size bytes and returns it.
// The returned memory is a real virtual address range backed by physical
// pages on first touch, which is as close as a userspace process gets to a
// freshly mapped kernel heap.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmregion: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("mmregion: mmap %d bytes: %w", size, err)
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, cleanup, nil
}
