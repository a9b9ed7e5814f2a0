package lazyml_test

import (
	"bytes"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyml"
	"github.com/born-ml/lazyml/backend/cpu"
)

func TestPublicAPI(t *testing.T) {
	device := cpu.New()
	defer device.Release()

	net, err := lazyml.New(device, []uint32{2, 3, 1}, lazyml.Options{Rand: rand.New(rand.NewPCG(2, 2))})
	require.NoError(t, err)
	defer net.Release()

	inputs := [][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	outputs := [][]float32{{0}, {1}, {1}, {0}}

	before, err := net.Cost(inputs, outputs)
	require.NoError(t, err)
	require.NoError(t, net.Train(inputs, outputs, 500, 2))
	after, err := net.Cost(inputs, outputs)
	require.NoError(t, err)
	assert.Less(t, after, before)

	path := filepath.Join(t.TempDir(), "net.lazyml")
	require.NoError(t, net.Save(path))
	loaded, err := lazyml.Load(device, path, lazyml.Options{})
	require.NoError(t, err)
	defer loaded.Release()

	var buf bytes.Buffer
	_, err = loaded.WriteTo(&buf)
	require.NoError(t, err)
	read, err := lazyml.Read(device, &buf, lazyml.Options{})
	require.NoError(t, err)
	defer read.Release()

	for _, x := range inputs {
		want, err := net.Run(x)
		require.NoError(t, err)
		got, err := read.Run(x)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPublicErrors(t *testing.T) {
	device := cpu.New()
	defer device.Release()

	_, err := lazyml.New(device, []uint32{4}, lazyml.Options{})
	assert.ErrorIs(t, err, lazyml.ErrConfiguration)

	net, err := lazyml.New(device, []uint32{2, 1}, lazyml.Options{})
	require.NoError(t, err)
	defer net.Release()
	_, err = net.Run([]float32{1, 2, 3})
	assert.ErrorIs(t, err, lazyml.ErrShapeMismatch)
}
