package network

import "github.com/born-ml/lazyml/internal/backend"

// backprop accumulates the gradient of the squared error for one sample into
// the weight and bias grad buffers. It must follow a forward on the same
// sample, and the activation grad buffers must have been zeroed first.
func (n *Network) backprop(expected backend.Allocation) error {
	last := len(n.neurons) - 1
	width := n.neurons[last]
	out := n.activations[last]

	// Seed grad.activations[L-1] with the expected output, then turn it into
	// output - expected.
	if err := n.dispatch(backend.Copy(out.grad.Allocation(), expected, width, n.lanes)); err != nil {
		return err
	}
	if err := n.dispatch(backend.BackpropInit(out.main.Allocation(), out.grad.Allocation(), width, n.lanes)); err != nil {
		return err
	}

	for l := last; l > 0; l-- {
		d := backend.BackpropStep(
			n.weights[l-1].main.Allocation(),
			n.weights[l-1].grad.Allocation(),
			n.biases[l-1].grad.Allocation(),
			n.activations[l].main.Allocation(),
			n.activations[l-1].main.Allocation(),
			n.activations[l].grad.Allocation(),
			n.activations[l-1].grad.Allocation(),
			n.neurons[l],
			n.neurons[l-1],
			n.lanes,
		)
		if err := n.dispatch(d); err != nil {
			return err
		}
	}
	return nil
}
