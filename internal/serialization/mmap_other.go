//go:build !unix && !windows

package serialization

import (
	"io"
	"os"
)

// mmapFile falls back to reading the whole file where mmap is unavailable.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

func munmapFile([]byte) error {
	return nil
}
