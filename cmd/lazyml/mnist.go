package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/born-ml/lazyml/internal/dataset"
)

func runMNIST(args []string, stdout, stderr io.Writer) error {
	var c common
	fs := flag.NewFlagSet("mnist", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs, "mnist.lazyml")
	dataDir := fs.String("data", "data", "directory holding the MNIST IDX files")
	samples := fs.Int("samples", 1000, "samples to load (0 = all)")
	hidden := fs.String("hidden", "16,16", "comma separated hidden layer widths")
	iterations := fs.Uint("iterations", 500, "training epochs")
	lr := fs.Float64("lr", 20, "learning rate")
	test := fs.Bool("test", false, "evaluate on the t10k files instead of training")
	if err := fs.Parse(args); err != nil {
		return err
	}

	widths, err := parseHidden(*hidden)
	if err != nil {
		return err
	}
	set, err := dataset.LoadMNIST(*dataDir, !*test, *samples)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		return fmt.Errorf("no samples in %s", *dataDir)
	}

	neurons := make([]uint32, 0, len(widths)+2)
	//nolint:gosec // G115: image size is bounded by the IDX reader
	neurons = append(neurons, uint32(len(set.Inputs[0])))
	neurons = append(neurons, widths...)
	neurons = append(neurons, dataset.MNISTClasses)

	device, release, err := c.open()
	if err != nil {
		return err
	}
	defer release()

	logger := c.logger(stderr)
	net, loaded, err := c.loadOrCreate(device, neurons, c.options(logger))
	if err != nil {
		return err
	}
	defer net.Release()

	if err := printEvaluation(stdout, net, set); err != nil {
		return err
	}
	if loaded || *test {
		return nil
	}

	//nolint:gosec // G115: epoch counts fit in uint32
	if err := net.Train(set.Inputs, set.Outputs, uint32(*iterations), float32(*lr)); err != nil {
		return err
	}
	if err := printEvaluation(stdout, net, set); err != nil {
		return err
	}
	if c.model == "" {
		return nil
	}
	return net.Save(c.model)
}

func printEvaluation(w io.Writer, net runner, set *dataset.Set) error {
	cost, err := net.Cost(set.Inputs, set.Outputs)
	if err != nil {
		return err
	}
	correct := 0
	for i, x := range set.Inputs {
		out, err := net.Run(x)
		if err != nil {
			return err
		}
		if dataset.Argmax(out) == dataset.Argmax(set.Outputs[i]) {
			correct++
		}
	}
	fmt.Fprintf(w, "COST: %g\n", cost)
	fmt.Fprintf(w, "ACCURACY: %d/%d (%.2f%%)\n", correct, set.Len(), 100*float64(correct)/float64(set.Len()))
	return nil
}

// parseHidden parses "16,16" into layer widths. An empty string means no
// hidden layer.
func parseHidden(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	widths := make([]uint32, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil || w == 0 {
			return nil, fmt.Errorf("invalid hidden width %q", p)
		}
		widths = append(widths, uint32(w))
	}
	return widths, nil
}
