package network

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/serialization"
)

// Save downloads the trained parameters and writes them to path.
func (n *Network) Save(path string) error {
	m, err := n.model()
	if err != nil {
		return err
	}

	w, err := serialization.NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteModel(m); err != nil {
		_ = w.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	n.logger.Info("network saved", slog.String("path", path), slog.Uint64("parameters", m.Parameters()))
	return nil
}

// WriteTo downloads the trained parameters and encodes them to w.
// It implements io.WriterTo.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	m, err := n.model()
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	err = serialization.Encode(cw, m)
	return cw.n, err
}

func (n *Network) model() (*serialization.Model, error) {
	weights, biases, err := n.Parameters()
	if err != nil {
		return nil, err
	}
	return &serialization.Model{Neurons: n.Neurons(), Weights: weights, Biases: biases}, nil
}

// Load reads a network saved by Save and uploads it to ctx. opts.Rand is
// unused. A file that is malformed or written with a different element size
// yields ErrConfiguration, and nothing is allocated.
func Load(ctx backend.Context, path string, opts Options) (*Network, error) {
	r, err := serialization.NewMmapReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m, err := r.ReadModel()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, configError(err))
	}
	return fromModel(ctx, m, opts)
}

// Read decodes a network encoded by WriteTo and uploads it to ctx.
func Read(ctx backend.Context, r io.Reader, opts Options) (*Network, error) {
	m, err := serialization.Decode(r)
	if err != nil {
		return nil, configError(err)
	}
	return fromModel(ctx, m, opts)
}

func fromModel(ctx backend.Context, m *serialization.Model, opts Options) (*Network, error) {
	if err := m.Validate(); err != nil {
		return nil, configError(err)
	}

	n, err := allocate(ctx, m.Neurons, nil, opts.Logger)
	if err != nil {
		return nil, err
	}
	for i := range n.weights {
		copy(n.weights[i].main.Host(), m.Weights[i])
		copy(n.biases[i].main.Host(), m.Biases[i])
		if err := n.weights[i].main.Upload(false); err != nil {
			n.Release()
			return nil, err
		}
		if err := n.biases[i].main.Upload(false); err != nil {
			n.Release()
			return nil, err
		}
	}

	n.logger.Info("network loaded",
		slog.String("device", ctx.Name()),
		slog.Any("neurons", n.neurons),
		slog.Int("lanes", n.lanes))
	return n, nil
}

// configError marks format and topology problems as ErrConfiguration. I/O
// errors pass through unchanged.
func configError(err error) error {
	switch {
	case errors.Is(err, serialization.ErrElementSize),
		errors.Is(err, serialization.ErrInvalidTopology),
		errors.Is(err, serialization.ErrShapeMismatch),
		errors.Is(err, serialization.ErrTooLarge):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	default:
		return err
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	k, err := c.w.Write(p)
	c.n += int64(k)
	return k, err
}
