package network

import "gonum.org/v1/gonum/floats"

// Cost returns the mean squared error over the batch, normalized by both the
// number of samples and the output width:
//
//	(1/n) * (1/width) * sum_i sum_j (run(inputs[i])[j] - outputs[i][j])^2
func (n *Network) Cost(inputs, outputs [][]float32) (float32, error) {
	if err := n.checkBatch(inputs, outputs); err != nil {
		return 0, err
	}

	width := n.OutputSize()
	got := make([]float32, width)
	got64 := make([]float64, width)
	want64 := make([]float64, width)

	var sum float64
	for i := range inputs {
		if err := n.RunInto(inputs[i], got); err != nil {
			return 0, err
		}
		widen(got64, got)
		widen(want64, outputs[i])
		d := floats.Distance(got64, want64, 2)
		sum += d * d
	}
	return float32(sum / float64(len(inputs)) / float64(width)), nil
}

func widen(dst []float64, src []float32) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}
