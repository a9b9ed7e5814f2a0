// Package serialization reads and writes trained dense networks.
//
// The format is a fixed-width little-endian layout with no padding:
//
//	[u16: element size in bytes (4 for float32)]
//	[u16: layer count L]
//	[u32: neurons[0]] ... [u32: neurons[L-1]]
//	for each transition i = 1..L-1:
//	  [element size * neurons[i-1] * neurons[i] bytes: weights, row-major]
//	  [element size * neurons[i] bytes: biases]
//
// Only trained parameters are stored. Activations and gradient buffers are
// transient and never written. A file written with a different element size
// cannot be read.
//
// Example usage:
//
//	w, err := serialization.NewWriter("xor.lazyml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//	if err := w.WriteModel(model); err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := serialization.NewReader("xor.lazyml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	model, err := r.ReadModel()
package serialization
