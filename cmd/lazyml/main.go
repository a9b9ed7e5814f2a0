// Package main provides the lazyml CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "lazyml:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown command")

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "lazyml %s\n", version)
		return nil
	case "xor":
		return runXOR(args[1:], stdout, stderr)
	case "mnist":
		return runMNIST(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("%w %q", errUsage, args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "lazyml - dense networks trained on an accelerator")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  xor        Train (or load) a 2-2-1 network on the XOR table")
	fmt.Fprintln(w, "  mnist      Train (or load) a digit classifier on MNIST IDX files")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'lazyml <command> -h' for flags.")
}
