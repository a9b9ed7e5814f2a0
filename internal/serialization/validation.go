package serialization

import "fmt"

// ValidateTopology checks the layer widths of a model: at least two layers,
// no zero-width layer, no more than MaxLayers layers and no more than
// MaxParameters stored values.
func ValidateTopology(neurons []uint32) error {
	if len(neurons) < 2 {
		return &ValidationError{
			Field: "neurons", Index: -1, Err: ErrInvalidTopology,
			Details: fmt.Sprintf("need at least 2 layers, got %d", len(neurons)),
		}
	}
	if len(neurons) > MaxLayers {
		return &ValidationError{
			Field: "neurons", Index: -1, Err: ErrTooLarge,
			Details: fmt.Sprintf("%d layers, max %d", len(neurons), MaxLayers),
		}
	}
	for i, n := range neurons {
		if n == 0 {
			return &ValidationError{Field: "neurons", Index: i, Err: ErrInvalidTopology, Details: "layer has 0 neurons"}
		}
	}

	// Each term is below 2^64-2^32 and total stays at most MaxParameters
	// before an addition, so the sum cannot wrap.
	var total uint64
	for i := 1; i < len(neurons); i++ {
		rows, cols := uint64(neurons[i-1]), uint64(neurons[i])
		total += rows*cols + cols
		if total > MaxParameters {
			return &ValidationError{
				Field: "neurons", Index: -1, Err: ErrTooLarge,
				Details: fmt.Sprintf("more than %d parameters", MaxParameters),
			}
		}
	}
	return nil
}

// Validate checks that every parameter slice matches the topology.
func (m *Model) Validate() error {
	if err := ValidateTopology(m.Neurons); err != nil {
		return err
	}
	if len(m.Weights) != m.Transitions() {
		return &ValidationError{
			Field: "weights", Index: -1, Err: ErrShapeMismatch,
			Details: fmt.Sprintf("%d matrices for %d transitions", len(m.Weights), m.Transitions()),
		}
	}
	if len(m.Biases) != m.Transitions() {
		return &ValidationError{
			Field: "biases", Index: -1, Err: ErrShapeMismatch,
			Details: fmt.Sprintf("%d vectors for %d transitions", len(m.Biases), m.Transitions()),
		}
	}
	for i := 0; i < m.Transitions(); i++ {
		rows, cols := int(m.Neurons[i]), int(m.Neurons[i+1])
		if len(m.Weights[i]) != rows*cols {
			return &ValidationError{
				Field: "weights", Index: i, Err: ErrShapeMismatch,
				Details: fmt.Sprintf("got %d values, want %dx%d", len(m.Weights[i]), rows, cols),
			}
		}
		if len(m.Biases[i]) != cols {
			return &ValidationError{
				Field: "biases", Index: i, Err: ErrShapeMismatch,
				Details: fmt.Sprintf("got %d values, want %d", len(m.Biases[i]), cols),
			}
		}
	}
	return nil
}
