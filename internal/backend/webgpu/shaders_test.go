package webgpu

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyml/internal/backend"
)

func TestShaders_CoverKernelSet(t *testing.T) {
	for _, name := range backend.Kernels {
		code, ok := shaders[name]
		require.True(t, ok, "no shader for %s", name)

		sig, ok := backend.SignatureOf(name)
		require.True(t, ok)

		// Buffers plus the Params uniform, numbered from 0.
		assert.Equal(t, sig.Buffers+1, strings.Count(code, "@binding("), name)
		for i := 0; i <= sig.Buffers; i++ {
			assert.Contains(t, code, "@binding("+itoa(i)+")", name)
		}
		assert.Equal(t, 1, strings.Count(code, "var<uniform> params: Params"), name)
		assert.Contains(t, code, "@workgroup_size(64)", name)
		assert.Contains(t, code, "fn main(", name)
	}
	assert.Len(t, shaders, len(backend.Kernels))
}

func TestPackParams(t *testing.T) {
	d := backend.ApplyGradient(nil, nil, nil, nil, 3, 2, 4, 0.5, 8)
	packed := packParams(d.Params)
	assert.Equal(t, [4]uint32{3, 2, 4, math.Float32bits(0.5)}, packed)

	assert.Equal(t, [4]uint32{7, 0, 0, 0}, packParams([]uint32{7}))
}

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		lanes int
		want  uint32
	}{
		{1, 1},
		{63, 1},
		{64, 1},
		{65, 2},
		{784, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workgroups(tt.lanes), "lanes %d", tt.lanes)
	}
}

func TestParsePowerPreference(t *testing.T) {
	for _, p := range []PowerPreference{PowerDefault, PowerLow, PowerHigh} {
		got, err := ParsePowerPreference(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePowerPreference("")
	require.NoError(t, err)
	assert.Equal(t, PowerDefault, got)

	_, err = ParsePowerPreference("turbo")
	assert.Error(t, err)
}

func itoa(i int) string {
	return string(rune('0' + i))
}
