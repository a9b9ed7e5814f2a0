package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "lazyml "+version+"\n", stdout.String())
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Commands:")

	err := run([]string{"bogus"}, &stdout, &stderr)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestRunXOR_TrainThenLoad(t *testing.T) {
	model := filepath.Join(t.TempDir(), "xor.lazyml")
	args := []string{"-seed", "7", "-iterations", "50", "-model", model}

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(append([]string{"xor"}, args...), &stdout, &stderr))
	trained := stdout.String()
	assert.Equal(t, 2, strings.Count(trained, "COST:"))
	assert.Equal(t, 8, strings.Count(trained, " = "))
	assert.FileExists(t, model)

	stdout.Reset()
	require.NoError(t, run(append([]string{"xor"}, args...), &stdout, &stderr))
	loaded := stdout.String()
	assert.Equal(t, 1, strings.Count(loaded, "COST:"))

	// The loaded network reports what the trained one ended with.
	after := trained[strings.LastIndex(trained, "COST:"):]
	assert.Equal(t, after, loaded)
}

func TestRunXOR_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"xor", "-backend", "tpu", "-model", ""}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")

	err = run([]string{"xor", "-power", "max", "-backend", "webgpu"}, &stdout, &stderr)
	require.Error(t, err)

	err = run([]string{"xor", "-nope"}, &stdout, &stderr)
	require.Error(t, err)
}

func TestRunMNIST_MissingData(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"mnist", "-data", t.TempDir(), "-model", ""}, &stdout, &stderr)
	require.Error(t, err)
}

func TestParseHidden(t *testing.T) {
	tests := []struct {
		in      string
		want    []uint32
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "16,16", want: []uint32{16, 16}},
		{in: " 32 , 8 ", want: []uint32{32, 8}},
		{in: "0", wantErr: true},
		{in: "4,x", wantErr: true},
		{in: "-3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHidden(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
