package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/born-ml/lazyml/internal/dataset"
)

func runXOR(args []string, stdout, stderr io.Writer) error {
	var c common
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs, "xor.lazyml")
	iterations := fs.Uint("iterations", 10000, "training epochs")
	lr := fs.Float64("lr", 4, "learning rate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	device, release, err := c.open()
	if err != nil {
		return err
	}
	defer release()

	logger := c.logger(stderr)
	net, loaded, err := c.loadOrCreate(device, []uint32{2, 2, 1}, c.options(logger))
	if err != nil {
		return err
	}
	defer net.Release()

	set := dataset.XOR()
	if err := printXOR(stdout, net, set); err != nil {
		return err
	}
	if loaded {
		return nil
	}

	//nolint:gosec // G115: epoch counts fit in uint32
	if err := net.Train(set.Inputs, set.Outputs, uint32(*iterations), float32(*lr)); err != nil {
		return err
	}
	if err := printXOR(stdout, net, set); err != nil {
		return err
	}
	if c.model == "" {
		return nil
	}
	return net.Save(c.model)
}

type runner interface {
	Run(input []float32) ([]float32, error)
	Cost(inputs, outputs [][]float32) (float32, error)
}

func printXOR(w io.Writer, net runner, set *dataset.Set) error {
	cost, err := net.Cost(set.Inputs, set.Outputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "COST: %g\n", cost)
	for _, x := range set.Inputs {
		out, err := net.Run(x)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%g %g = %.4f\n", x[0], x[1], out[0])
	}
	return nil
}
