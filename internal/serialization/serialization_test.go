package serialization

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xorModel() *Model {
	return &Model{
		Neurons: []uint32{2, 2, 1},
		Weights: [][]float32{
			{0.25, -1.5, 3, 0.125},
			{-2, 4.5},
		},
		Biases: [][]float32{
			{0.5, -0.75},
			{1},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	m := &Model{
		Neurons: []uint32{2, 1},
		Weights: [][]float32{{1, 2}},
		Biases:  [][]float32{{0.5}},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))

	want := []byte{
		0x04, 0x00, // element size
		0x02, 0x00, // layers
		0x02, 0x00, 0x00, 0x00, // neurons[0]
		0x01, 0x00, 0x00, 0x00, // neurons[1]
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0x40, // 2.0
		0x00, 0x00, 0x00, 0x3f, // 0.5
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(len(want)), EncodedSize(m))
}

func TestEncodeDecode(t *testing.T) {
	m := xorModel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))
	assert.Equal(t, EncodedSize(m), int64(buf.Len()))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeErrors(t *testing.T) {
	var valid bytes.Buffer
	require.NoError(t, Encode(&valid, xorModel()))
	full := valid.Bytes()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, io.ErrUnexpectedEOF},
		{"half header", full[:3], io.ErrUnexpectedEOF},
		{"element size", []byte{0x08, 0x00, 0x02, 0x00}, ErrElementSize},
		{"one layer", []byte{0x04, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00}, ErrInvalidTopology},
		{"zero width", []byte{0x04, 0x00, 0x02, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, ErrInvalidTopology},
		{"truncated neurons", full[:6], io.ErrUnexpectedEOF},
		{"truncated weights", full[:20], io.ErrUnexpectedEOF},
		{"truncated biases", full[:len(full)-2], io.ErrUnexpectedEOF},
		{"too large", []byte{0x04, 0x00, 0x02, 0x00, 0xff, 0xff, 0xff, 0x7f, 0xff, 0xff, 0xff, 0x7f}, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
		field  string
		index  int
		want   error
	}{
		{"no layers", func(m *Model) { m.Neurons = nil }, "neurons", -1, ErrInvalidTopology},
		{"zero layer", func(m *Model) { m.Neurons[1] = 0 }, "neurons", 1, ErrInvalidTopology},
		{"missing matrix", func(m *Model) { m.Weights = m.Weights[:1] }, "weights", -1, ErrShapeMismatch},
		{"missing vector", func(m *Model) { m.Biases = m.Biases[:1] }, "biases", -1, ErrShapeMismatch},
		{"short matrix", func(m *Model) { m.Weights[1] = m.Weights[1][:1] }, "weights", 1, ErrShapeMismatch},
		{"long vector", func(m *Model) { m.Biases[0] = append(m.Biases[0], 0) }, "biases", 0, ErrShapeMismatch},
		{"too many layers", func(m *Model) { m.Neurons = slices.Repeat([]uint32{1}, MaxLayers+1) }, "neurons", -1, ErrTooLarge},
		{"too many parameters", func(m *Model) { m.Neurons = []uint32{1 << 16, 1 << 13} }, "neurons", -1, ErrTooLarge},
		{"widest layers", func(m *Model) { m.Neurons = []uint32{math.MaxUint32, math.MaxUint32, math.MaxUint32} }, "neurons", -1, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := xorModel()
			tt.mutate(m)

			err := m.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.index, verr.Index)
			assert.ErrorIs(t, err, tt.want)

			assert.ErrorIs(t, Encode(io.Discard, m), tt.want)
		})
	}

	assert.NoError(t, xorModel().Validate())
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "weights", Index: 2, Err: ErrShapeMismatch, Details: "got 3 values, want 2x2"}
	assert.Equal(t, "weights[2]: parameter shape does not match topology: got 3 values, want 2x2", err.Error())

	err = &ValidationError{Field: "neurons", Index: -1, Err: ErrInvalidTopology, Details: "need at least 2 layers, got 1"}
	assert.Equal(t, "neurons: invalid topology: need at least 2 layers, got 1", err.Error())
}

func TestWriterReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.lazyml")
	m := xorModel()

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteModel(m))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second Close is a no-op")
	assert.ErrorIs(t, w.WriteModel(m), ErrClosed)

	r, err := NewReader(path)
	require.NoError(t, err)
	got, err := r.ReadModel()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, m, got)

	_, err = r.ReadModel()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriterKeepsTargetOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xor.lazyml")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteModel(xorModel()))
	require.NoError(t, w.Close())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := xorModel()
	bad.Biases = bad.Biases[:1]
	w, err = NewWriter(path)
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteModel(bad), ErrShapeMismatch)
	require.NoError(t, w.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
	assert.Equal(t, "xor.lazyml", entries[0].Name())
}

func TestWriterMissingDirectory(t *testing.T) {
	_, err := NewWriter(filepath.Join(t.TempDir(), "missing", "xor.lazyml"))
	assert.Error(t, err)
}

func TestMmapReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.lazyml")
	m := xorModel()

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteModel(m))
	require.NoError(t, w.Close())

	r, err := NewMmapReader(path)
	require.NoError(t, err)
	assert.Equal(t, int(EncodedSize(m)), r.Size())

	got, err := r.ReadModel()
	require.NoError(t, err)
	assert.Equal(t, m, got)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.ReadModel()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMmapReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.lazyml")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewMmapReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadModel()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpenMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.lazyml")

	_, err := NewReader(missing)
	assert.Error(t, err)
	_, err = NewMmapReader(missing)
	assert.Error(t, err)
}
