//go:build windows

package webgpu

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/backend/cpu"
	"github.com/born-ml/lazyml/internal/network"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(DefaultConfig())
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	t.Cleanup(b.Release)
	require.NoError(t, b.Compile(backend.Kernels...))
	return b
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestQueue_WriteRead(t *testing.T) {
	b := newTestBackend(t)

	a, err := b.Allocate("a", 3)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, b.Queue().Write(a, []float32{1, 2, 3}, false))
	got := make([]float32, 3)
	require.NoError(t, b.Queue().Read(a, got, false))
	assert.Equal(t, []float32{0, 0, 0}, got, "non-blocking read lands at Finish")
	require.NoError(t, b.Queue().Finish())
	assert.Equal(t, []float32{1, 2, 3}, got)
}

func TestQueue_Errors(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Allocate("empty", 0)
	assert.ErrorIs(t, err, backend.ErrInvalidLength)

	a, err := b.Allocate("a", 2)
	require.NoError(t, err)
	defer a.Release()

	assert.ErrorIs(t, b.Queue().Write(a, []float32{1}, true), backend.ErrLengthMismatch)
	assert.ErrorIs(t, b.Queue().Dispatch(backend.Dispatch{Kernel: "nope", Lanes: 1}), backend.ErrUnknownKernel)

	other := cpu.New()
	defer other.Release()
	foreign, err := other.Allocate("foreign", 2)
	require.NoError(t, err)
	defer foreign.Release()
	assert.ErrorIs(t, b.Queue().Dispatch(backend.Copy(a, foreign, 2, 2)), backend.ErrForeignBuffer)
}

func TestZero_StridesPastLanes(t *testing.T) {
	b := newTestBackend(t)

	values := make([]float32, 300)
	for i := range values {
		values[i] = 1
	}
	a, err := b.Allocate("wide", len(values))
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, b.Queue().Write(a, values, false))
	require.NoError(t, b.Queue().Dispatch(backend.Zero(a, 300, 3)))

	got := make([]float32, len(values))
	require.NoError(t, b.Queue().Read(a, got, true))
	assert.Equal(t, make([]float32, len(values)), got)
}

// Training on the device tracks the CPU backend to float32 rounding.
func TestTrain_MatchesCPU(t *testing.T) {
	gpu := newTestBackend(t)
	host := cpu.New()
	defer host.Release()

	inputs := [][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	outputs := [][]float32{{0}, {1}, {1}, {0}}
	neurons := []uint32{2, 3, 1}

	onGPU, err := network.New(gpu, neurons, network.Options{Rand: rand.New(rand.NewPCG(3, 3))})
	require.NoError(t, err)
	defer onGPU.Release()
	onCPU, err := network.New(host, neurons, network.Options{Rand: rand.New(rand.NewPCG(3, 3))})
	require.NoError(t, err)
	defer onCPU.Release()

	require.NoError(t, onGPU.Train(inputs, outputs, 200, 2))
	require.NoError(t, onCPU.Train(inputs, outputs, 200, 2))

	gw, gb, err := onGPU.Parameters()
	require.NoError(t, err)
	cw, cb, err := onCPU.Parameters()
	require.NoError(t, err)
	for i := range cw {
		assert.InDeltaSlice(t, cw[i], gw[i], 1e-3)
		assert.InDeltaSlice(t, cb[i], gb[i], 1e-3)
	}
}
