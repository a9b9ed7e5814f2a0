// Package webgpu implements backend.Context on a WebGPU device.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Every kernel is a WGSL compute shader with one invocation per lane. Commands
// are recorded into command buffers and submitted together at the next
// blocking call or Finish.
package webgpu

import "errors"

// PowerPreference selects which adapter to request.
type PowerPreference int

const (
	// PowerDefault lets the driver choose.
	PowerDefault PowerPreference = iota
	// PowerLow prefers an integrated GPU.
	PowerLow
	// PowerHigh prefers a discrete GPU.
	PowerHigh
)

// String returns the flag spelling of p.
func (p PowerPreference) String() string {
	switch p {
	case PowerLow:
		return "low"
	case PowerHigh:
		return "high"
	default:
		return "default"
	}
}

// ParsePowerPreference parses "default", "low" or "high".
func ParsePowerPreference(s string) (PowerPreference, error) {
	switch s {
	case "", "default":
		return PowerDefault, nil
	case "low":
		return PowerLow, nil
	case "high":
		return PowerHigh, nil
	default:
		return PowerDefault, errors.New("webgpu: power preference must be default, low or high")
	}
}

// Config configures device selection.
type Config struct {
	PowerPreference PowerPreference
}

// DefaultConfig requests a high performance adapter.
func DefaultConfig() Config {
	return Config{PowerPreference: PowerHigh}
}

// ErrUnavailable is returned by New when no WebGPU device can be created.
var ErrUnavailable = errors.New("webgpu: not available")

// MemoryStats reports live device buffers.
type MemoryStats struct {
	ActiveBuffers  int64
	AllocatedBytes uint64
}

// workgroupSize matches @workgroup_size in every shader.
const workgroupSize = 64

// workgroups returns the number of workgroups covering lanes invocations.
func workgroups(lanes int) uint32 {
	//nolint:gosec // G115: lanes is positive and bounded by a layer width
	return uint32((lanes + workgroupSize - 1) / workgroupSize)
}

// paramsSize is the byte size of the Params uniform shared by every shader.
const paramsSize = 16
