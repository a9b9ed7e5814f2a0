package serialization

import "unsafe"

// Format constants.
const (
	// ElementSize is the byte width of one stored value in this build.
	ElementSize = int(unsafe.Sizeof(float32(0)))

	// MaxLayers is the largest layer count the u16 field can hold.
	MaxLayers = 1<<16 - 1

	// MaxParameters bounds the number of stored values. On read it keeps a
	// corrupt header from triggering a huge allocation.
	MaxParameters = 1 << 28
)

// Model holds the topology and trained parameters of a dense network in host
// memory. Weights[i] is the neurons[i] x neurons[i+1] row-major matrix of
// transition i and Biases[i] its neurons[i+1] bias vector.
type Model struct {
	Neurons []uint32
	Weights [][]float32
	Biases  [][]float32
}

// Transitions returns the number of weight matrices.
func (m *Model) Transitions() int {
	return len(m.Neurons) - 1
}

// Parameters returns the total number of stored values.
func (m *Model) Parameters() uint64 {
	var total uint64
	for i := 1; i < len(m.Neurons); i++ {
		rows, cols := uint64(m.Neurons[i-1]), uint64(m.Neurons[i])
		total += rows*cols + cols
	}
	return total
}
