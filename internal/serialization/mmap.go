package serialization

import (
	"bytes"
	"fmt"
	"os"
)

// MmapReader reads a model from a memory-mapped file. The parameters are
// decoded straight out of the OS page cache without a userspace read buffer.
type MmapReader struct {
	file   *os.File
	data   []byte // mmap'd region (read-only)
	closed bool
}

// NewMmapReader maps the file at path read-only.
//
// Important: Always call Close() when done to unmap the file (use defer).
func NewMmapReader(path string) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() == 0 {
		// Zero-length mappings are rejected by every platform.
		return &MmapReader{file: file}, nil
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return &MmapReader{file: file, data: data}, nil
}

// Size returns the mapped length in bytes.
func (r *MmapReader) Size() int {
	return len(r.data)
}

// ReadModel decodes the mapped model. Trailing bytes after the last bias
// vector are ignored.
func (r *MmapReader) ReadModel() (*Model, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return Decode(bytes.NewReader(r.data))
}

// Close unmaps the region and closes the file.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var unmapErr error
	if len(r.data) > 0 {
		unmapErr = munmapFile(r.data)
		r.data = nil
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if unmapErr != nil {
		return fmt.Errorf("munmap failed: %w", unmapErr)
	}
	return nil
}
