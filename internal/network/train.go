package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/lazyml/internal/backend"
)

// Train runs full-batch gradient descent for the given number of epochs.
// Every epoch zeroes the weight and bias gradients, accumulates them over all
// samples, then applies their mean scaled by learningRate.
func (n *Network) Train(inputs, outputs [][]float32, iterations uint32, learningRate float32) error {
	return n.TrainContext(context.Background(), inputs, outputs, iterations, learningRate)
}

// TrainContext is Train with cancellation checked between epochs. A
// cancelled run keeps the updates of every completed epoch.
func (n *Network) TrainContext(ctx context.Context, inputs, outputs [][]float32, iterations uint32, learningRate float32) error {
	if err := n.checkBatch(inputs, outputs); err != nil {
		return err
	}

	in, out, err := n.uploadBatch(inputs, outputs)
	defer releaseAll(in)
	defer releaseAll(out)
	if err != nil {
		return err
	}
	return n.train(ctx, in, out, iterations, learningRate)
}

// TrainBuffers trains on samples that already live on the device.
func (n *Network) TrainBuffers(ctx context.Context, inputs, outputs []*backend.Buffer, iterations uint32, learningRate float32) error {
	if len(inputs) == 0 || len(inputs) != len(outputs) {
		return fmt.Errorf("%w: %d inputs and %d outputs", ErrShapeMismatch, len(inputs), len(outputs))
	}
	for i := range inputs {
		if inputs[i].Len() != n.InputSize() {
			return fmt.Errorf("%w: input %d has %d values, network expects %d", ErrShapeMismatch, i, inputs[i].Len(), n.InputSize())
		}
		if outputs[i].Len() != n.OutputSize() {
			return fmt.Errorf("%w: output %d has %d values, network expects %d", ErrShapeMismatch, i, outputs[i].Len(), n.OutputSize())
		}
	}
	return n.train(ctx, inputs, outputs, iterations, learningRate)
}

func (n *Network) train(ctx context.Context, inputs, outputs []*backend.Buffer, iterations uint32, learningRate float32) error {
	samples := uint32(len(inputs))
	start := time.Now()

	for epoch := uint32(0); epoch < iterations; epoch++ {
		if err := ctx.Err(); err != nil {
			if ferr := n.queue.Finish(); ferr != nil {
				return ferr
			}
			n.logger.Info("training cancelled", slog.Uint64("epoch", uint64(epoch)))
			return err
		}

		if err := n.zeroGradient(); err != nil {
			return err
		}
		for i := range inputs {
			if err := n.zeroGradientActivations(); err != nil {
				return err
			}
			if err := n.forward(inputs[i].Allocation()); err != nil {
				return err
			}
			if err := n.backprop(outputs[i].Allocation()); err != nil {
				return err
			}
		}
		if err := n.applyGradient(samples, learningRate); err != nil {
			return err
		}

		n.logger.Debug("epoch done", slog.Uint64("epoch", uint64(epoch)))
	}

	if err := n.queue.Finish(); err != nil {
		return err
	}
	n.logger.Info("training finished",
		slog.Uint64("epochs", uint64(iterations)),
		slog.Int("samples", len(inputs)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// zeroGradient clears every weight and bias grad buffer.
func (n *Network) zeroGradient() error {
	for i := range n.weights {
		if err := n.dispatch(backend.Zero(n.weights[i].grad.Allocation(), uint32(n.weights[i].grad.Len()), n.lanes)); err != nil {
			return err
		}
		if err := n.dispatch(backend.Zero(n.biases[i].grad.Allocation(), uint32(n.biases[i].grad.Len()), n.lanes)); err != nil {
			return err
		}
	}
	return nil
}

// zeroGradientActivations clears the per-sample scratch grad buffers.
func (n *Network) zeroGradientActivations() error {
	for l := range n.activations {
		if err := n.dispatch(backend.Zero(n.activations[l].grad.Allocation(), n.neurons[l], n.lanes)); err != nil {
			return err
		}
	}
	return nil
}

// applyGradient subtracts learningRate/samples times the accumulated gradient
// from every weight and bias.
func (n *Network) applyGradient(samples uint32, learningRate float32) error {
	for i := range n.weights {
		d := backend.ApplyGradient(
			n.weights[i].main.Allocation(),
			n.weights[i].grad.Allocation(),
			n.biases[i].main.Allocation(),
			n.biases[i].grad.Allocation(),
			n.neurons[i+1],
			n.neurons[i],
			samples,
			learningRate,
			n.lanes,
		)
		if err := n.dispatch(d); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) checkBatch(inputs, outputs [][]float32) error {
	if len(inputs) != len(outputs) {
		return fmt.Errorf("%w: %d inputs but %d outputs", ErrShapeMismatch, len(inputs), len(outputs))
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	for i := range inputs {
		if len(inputs[i]) != n.InputSize() {
			return fmt.Errorf("%w: input %d has %d values, network expects %d", ErrShapeMismatch, i, len(inputs[i]), n.InputSize())
		}
		if len(outputs[i]) != n.OutputSize() {
			return fmt.Errorf("%w: output %d has %d values, network expects %d", ErrShapeMismatch, i, len(outputs[i]), n.OutputSize())
		}
	}
	return nil
}

// uploadBatch copies every sample to the device without blocking. On error
// the buffers created so far are still returned for release.
func (n *Network) uploadBatch(inputs, outputs [][]float32) (in, out []*backend.Buffer, err error) {
	in = make([]*backend.Buffer, 0, len(inputs))
	out = make([]*backend.Buffer, 0, len(outputs))
	for i := range inputs {
		x, err := backend.NewBufferValues(n.ctx, fmt.Sprintf("sample[%d].input", i), inputs[i]...)
		if err != nil {
			return in, out, err
		}
		in = append(in, x)
		if err := x.Upload(false); err != nil {
			return in, out, err
		}

		y, err := backend.NewBufferValues(n.ctx, fmt.Sprintf("sample[%d].output", i), outputs[i]...)
		if err != nil {
			return in, out, err
		}
		out = append(out, y)
		if err := y.Upload(false); err != nil {
			return in, out, err
		}
	}
	return in, out, nil
}

func releaseAll(bufs []*backend.Buffer) {
	for _, b := range bufs {
		b.Release()
	}
}
