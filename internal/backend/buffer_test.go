package backend_test

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/backend/cpu"
)

func newContext(t *testing.T) backend.Context {
	t.Helper()
	ctx := cpu.New()
	require.NoError(t, ctx.Compile(backend.Kernels...))
	t.Cleanup(ctx.Release)
	return ctx
}

func TestNewBufferValues(t *testing.T) {
	ctx := newContext(t)
	values := []float32{1, 2, 3}

	buf, err := backend.NewBufferValues(ctx, "v", values...)
	require.NoError(t, err)
	values[0] = 42

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, []float32{1, 2, 3}, buf.Host())
	assert.Equal(t, "v", buf.Allocation().Label())
}

func TestNewBufferLen(t *testing.T) {
	ctx := newContext(t)

	t.Run("zero filled", func(t *testing.T) {
		buf, err := backend.NewBufferLen(ctx, "z", 5, nil)
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 5), buf.Host())
	})

	t.Run("uniform random", func(t *testing.T) {
		buf, err := backend.NewBufferLen(ctx, "r", 256, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		nonZero := 0
		for _, v := range buf.Host() {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
			if v != 0 {
				nonZero++
			}
		}
		assert.Greater(t, nonZero, 200)
	})

	t.Run("seeded source repeats", func(t *testing.T) {
		a, err := backend.NewBufferLen(ctx, "a", 8, rand.New(rand.NewPCG(7, 7)))
		require.NoError(t, err)
		b, err := backend.NewBufferLen(ctx, "b", 8, rand.New(rand.NewPCG(7, 7)))
		require.NoError(t, err)
		assert.Equal(t, a.Host(), b.Host())
	})
}

func TestNewBufferSeq(t *testing.T) {
	ctx := newContext(t)

	buf, err := backend.NewBufferSeq(ctx, "s", slices.Values([]float32{4, 5}))

	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, buf.Host())
}

func TestNewBuffer_ZeroLength(t *testing.T) {
	ctx := newContext(t)

	tests := []struct {
		name string
		make func() (*backend.Buffer, error)
	}{
		{"values", func() (*backend.Buffer, error) { return backend.NewBufferValues(ctx, "v") }},
		{"len", func() (*backend.Buffer, error) { return backend.NewBufferLen(ctx, "l", 0, nil) }},
		{"seq", func() (*backend.Buffer, error) {
			return backend.NewBufferSeq(ctx, "s", slices.Values([]float32(nil)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.make()
			assert.Nil(t, buf)
			assert.ErrorIs(t, err, backend.ErrInvalidLength)
			assert.ErrorIs(t, err, backend.ErrConfiguration)
		})
	}
}

func TestBuffer_AtSetBounds(t *testing.T) {
	ctx := newContext(t)
	buf, err := backend.NewBufferValues(ctx, "b", 1, 2)
	require.NoError(t, err)

	require.NoError(t, buf.Set(1, 7))
	v, err := buf.At(1)
	require.NoError(t, err)
	assert.Equal(t, float32(7), v)

	_, err = buf.At(2)
	assert.ErrorIs(t, err, backend.ErrIndexOutOfRange)
	_, err = buf.At(-1)
	assert.ErrorIs(t, err, backend.ErrIndexOutOfRange)
	assert.ErrorIs(t, buf.Set(5, 0), backend.ErrIndexOutOfRange)
}

func TestBuffer_UploadDownload(t *testing.T) {
	ctx := newContext(t)
	buf, err := backend.NewBufferValues(ctx, "b", 1, 2, 3)
	require.NoError(t, err)
	require.NoError(t, buf.Upload(false))

	for i := range buf.Len() {
		require.NoError(t, buf.Set(i, 0))
	}

	require.NoError(t, buf.Download(false))
	require.NoError(t, ctx.Queue().Finish())
	assert.Equal(t, []float32{1, 2, 3}, buf.Host())
}

func TestBuffer_Release(t *testing.T) {
	ctx := cpu.New()
	defer ctx.Release()
	buf, err := backend.NewBufferValues(ctx, "b", 1)
	require.NoError(t, err)

	buf.Release()

	assert.Equal(t, int64(0), ctx.MemoryStats().ActiveBuffers)
}

func TestDispatch_Validate(t *testing.T) {
	ctx := newContext(t)
	buf, err := backend.NewBufferLen(ctx, "b", 4, nil)
	require.NoError(t, err)
	a := buf.Allocation()

	tests := []struct {
		name    string
		d       backend.Dispatch
		wantErr error
	}{
		{"copy", backend.Copy(a, a, 4, 4), nil},
		{"forward", backend.Forward(a, a, a, 2, 2, a, 2), nil},
		{"step", backend.BackpropStep(a, a, a, a, a, a, a, 2, 2, 2), nil},
		{"apply", backend.ApplyGradient(a, a, a, a, 2, 2, 1, 0.1, 2), nil},
		{"unknown", backend.Dispatch{Kernel: "cost", Lanes: 1}, backend.ErrUnknownKernel},
		{"missing buffer", backend.Dispatch{Kernel: backend.KernelZero, Params: []uint32{1}, Lanes: 1}, backend.ErrBadArguments},
		{"nil buffer", backend.Zero(nil, 1, 1), backend.ErrBadArguments},
		{"no lanes", backend.Zero(a, 4, 0), backend.ErrBadArguments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyGradient_LearningRateBits(t *testing.T) {
	d := backend.ApplyGradient(nil, nil, nil, nil, 3, 2, 4, 0.125, 3)

	assert.Equal(t, []uint32{3, 2, 4}, d.Params[:3])
	assert.Equal(t, float32(0.125), d.Float(3))
}

func TestDeviceError(t *testing.T) {
	cause := errors.New("lost")
	err := backend.Fail("dispatch", "forward", cause)

	assert.EqualError(t, err, `device dispatch "forward": lost`)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, backend.Fail("finish", "", err))
	assert.NoError(t, backend.Fail("read", "x", nil))
}
