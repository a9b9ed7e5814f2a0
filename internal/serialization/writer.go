package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer writes a model to a file. The model goes to a temporary file in the
// same directory, which Close renames over the target, so an existing model at
// path is left intact until a complete one replaces it.
type Writer struct {
	file   *os.File
	path   string
	err    error
	closed bool
}

// NewWriter prepares to replace the file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if err := file.Chmod(0o644); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file, path: path}, nil
}

// WriteModel encodes m into the file. After a failure Close discards the
// partial file.
func (w *Writer) WriteModel(m *Model) error {
	if w.closed {
		return ErrClosed
	}
	buf := bufio.NewWriter(w.file)
	if err := Encode(buf, m); err != nil {
		w.err = err
		return err
	}
	if err := buf.Flush(); err != nil {
		w.err = fmt.Errorf("failed to flush: %w", err)
		return w.err
	}
	return nil
}

// Close syncs the file and moves it to the target path, or removes it when a
// write failed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	tmp := w.file.Name()
	if w.err != nil {
		_ = w.file.Close()
		return os.Remove(tmp)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}
	return nil
}

// Encode writes m to w in the binary layout described in the package comment.
func Encode(w io.Writer, m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	//nolint:gosec // G115: ElementSize is 4 and the layer count was validated against MaxLayers
	header := []uint16{uint16(ElementSize), uint16(len(m.Neurons))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Neurons); err != nil {
		return fmt.Errorf("failed to write neurons: %w", err)
	}

	for i := 0; i < m.Transitions(); i++ {
		if err := binary.Write(w, binary.LittleEndian, m.Weights[i]); err != nil {
			return fmt.Errorf("failed to write weights[%d]: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, m.Biases[i]); err != nil {
			return fmt.Errorf("failed to write biases[%d]: %w", i, err)
		}
	}
	return nil
}

// EncodedSize returns the number of bytes Encode writes for m.
func EncodedSize(m *Model) int64 {
	return int64(2+2+4*len(m.Neurons)) + int64(m.Parameters())*int64(ElementSize)
}
