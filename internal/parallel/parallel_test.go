package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	err := For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int64(n), counter)
}

func TestFor_EveryLaneOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	seen := make([]int32, 257)
	err := For(len(seen), func(lane int) {
		atomic.AddInt32(&seen[lane], 1)
	}, cfg)

	require.NoError(t, err)
	for lane, c := range seen {
		assert.Equal(t, int32(1), c, "lane %d", lane)
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var order []int
	err := For(5, func(lane int) {
		order = append(order, lane)
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_ZeroLanes(t *testing.T) {
	called := false
	err := For(0, func(_ int) { called = true }, DefaultConfig())

	require.NoError(t, err)
	assert.False(t, called)
}

func TestFor_Panic(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"sequential", Config{Enabled: false}},
		{"parallel", Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := For(16, func(lane int) {
				if lane == 9 {
					panic("boom")
				}
			}, tt.cfg)

			var pe *PanicError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 9, pe.Lane)
			assert.Equal(t, "boom", pe.Value)
		})
	}
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfgSeq)
		}
	})
}
