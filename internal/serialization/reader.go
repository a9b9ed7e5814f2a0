package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Reader reads a model from a file.
type Reader struct {
	file   *os.File
	closed bool
}

// NewReader opens the file at path.
func NewReader(path string) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &Reader{file: file}, nil
}

// ReadModel decodes the model stored in the file.
func (r *Reader) ReadModel() (*Model, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return Decode(bufio.NewReader(r.file))
}

// Close closes the file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Decode reads a model in the binary layout described in the package comment.
// A short read is reported as io.ErrUnexpectedEOF.
func Decode(r io.Reader) (*Model, error) {
	var header [2]uint16
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", unexpected(err))
	}
	elementSize, layers := int(header[0]), int(header[1])
	if elementSize != ElementSize {
		return nil, fmt.Errorf("%w: file stores %d-byte values, this build uses %d", ErrElementSize, elementSize, ElementSize)
	}
	if layers < 2 {
		return nil, ValidateTopology(make([]uint32, layers))
	}

	m := &Model{Neurons: make([]uint32, layers)}
	if err := binary.Read(r, binary.LittleEndian, m.Neurons); err != nil {
		return nil, fmt.Errorf("failed to read neurons: %w", unexpected(err))
	}
	if err := ValidateTopology(m.Neurons); err != nil {
		return nil, err
	}

	m.Weights = make([][]float32, m.Transitions())
	m.Biases = make([][]float32, m.Transitions())
	for i := 0; i < m.Transitions(); i++ {
		rows, cols := int(m.Neurons[i]), int(m.Neurons[i+1])

		m.Weights[i] = make([]float32, rows*cols)
		if err := binary.Read(r, binary.LittleEndian, m.Weights[i]); err != nil {
			return nil, fmt.Errorf("failed to read weights[%d]: %w", i, unexpected(err))
		}
		m.Biases[i] = make([]float32, cols)
		if err := binary.Read(r, binary.LittleEndian, m.Biases[i]); err != nil {
			return nil, fmt.Errorf("failed to read biases[%d]: %w", i, unexpected(err))
		}
	}
	return m, nil
}

// unexpected turns a clean EOF in the middle of a model into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
