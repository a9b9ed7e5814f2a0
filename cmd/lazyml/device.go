package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/born-ml/lazyml"
	"github.com/born-ml/lazyml/backend/cpu"
	"github.com/born-ml/lazyml/backend/webgpu"
)

// common holds the flags shared by every training command.
type common struct {
	backend string
	power   string
	seed    uint64
	model   string
	verbose bool
}

func (c *common) register(fs *flag.FlagSet, model string) {
	fs.StringVar(&c.backend, "backend", "cpu", "accelerator: cpu or webgpu")
	fs.StringVar(&c.power, "power", "high", "webgpu adapter preference: default, low or high")
	fs.Uint64Var(&c.seed, "seed", 0, "weight initialization seed (0 = clock)")
	fs.StringVar(&c.model, "model", model, "model file: loaded if present, written after training")
	fs.BoolVar(&c.verbose, "v", false, "log every epoch")
}

func (c *common) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c *common) options(logger *slog.Logger) lazyml.Options {
	seed := c.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // G115: any bits make a seed
	}
	return lazyml.Options{
		Rand:   rand.New(rand.NewPCG(seed, seed)),
		Logger: logger,
	}
}

// open returns the selected accelerator and its release function.
func (c *common) open() (lazyml.Context, func(), error) {
	switch c.backend {
	case "cpu":
		device := cpu.New()
		return device, device.Release, nil
	case "webgpu":
		power, err := webgpu.ParsePowerPreference(c.power)
		if err != nil {
			return nil, nil, err
		}
		gpu, err := webgpu.New(webgpu.Config{PowerPreference: power})
		if err != nil {
			return nil, nil, err
		}
		return gpu, gpu.Release, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", c.backend)
	}
}

// loadOrCreate loads c.model when it exists, otherwise creates a fresh network.
func (c *common) loadOrCreate(ctx lazyml.Context, neurons []uint32, opts lazyml.Options) (net *lazyml.Network, loaded bool, err error) {
	if c.model != "" {
		if _, err := os.Stat(c.model); err == nil {
			net, err := lazyml.Load(ctx, c.model, opts)
			return net, true, err
		}
	}
	net, err = lazyml.New(ctx, neurons, opts)
	return net, false, err
}
