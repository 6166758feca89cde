//go:build !unix

// Package mmregion provides platform-specific helpers for reserving the
// anonymous memory that backs a heap region.
package mmregion

import "fmt"

// Map allocates a plain byte slice when anonymous mmap is not available.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmregion: invalid mapping size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
