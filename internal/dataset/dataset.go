// Package dataset loads training sets as input and expected-output vectors.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Common errors.
var (
	ErrInvalidIDX    = errors.New("invalid IDX file")
	ErrTooLarge      = errors.New("dataset too large")
	ErrLabelRange    = errors.New("label out of range")
	ErrCountMismatch = errors.New("image and label counts differ")
)

// Set is a list of samples, Inputs[i] paired with Outputs[i].
type Set struct {
	Inputs  [][]float32
	Outputs [][]float32
}

// Len returns the number of samples.
func (s *Set) Len() int {
	return len(s.Inputs)
}

// XOR returns the four-sample exclusive-or truth table.
func XOR() *Set {
	return &Set{
		Inputs:  [][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		Outputs: [][]float32{{0}, {1}, {1}, {0}},
	}
}

// MNISTClasses is the number of digit classes.
const MNISTClasses = 10

// MNIST file names inside a data directory.
const (
	TrainImages = "train-images-idx3-ubyte"
	TrainLabels = "train-labels-idx1-ubyte"
	TestImages  = "t10k-images-idx3-ubyte"
	TestLabels  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST loads MNIST from the official IDX files in dir.
//
// Pixels are scaled to [0, 1] and labels become one-hot vectors of
// MNISTClasses values. At most maxSamples samples are loaded when
// maxSamples > 0.
//
// Download MNIST from: http://yann.lecun.com/exdb/mnist/
func LoadMNIST(dir string, train bool, maxSamples int) (*Set, error) {
	imageFile, labelFile := TestImages, TestLabels
	if train {
		imageFile, labelFile = TrainImages, TrainLabels
	}

	images, err := readImages(filepath.Join(dir, imageFile), maxSamples)
	if err != nil {
		return nil, err
	}
	labels, err := readLabels(filepath.Join(dir, labelFile), maxSamples)
	if err != nil {
		return nil, err
	}
	return FromIDX(images, labels, MNISTClasses)
}

// FromIDX pairs raw images with labels, scaling pixels to [0, 1] and one-hot
// encoding labels over classes.
func FromIDX(images [][]byte, labels []byte, classes int) (*Set, error) {
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrCountMismatch, len(images), len(labels))
	}

	s := &Set{
		Inputs:  make([][]float32, len(images)),
		Outputs: make([][]float32, len(labels)),
	}
	for i, img := range images {
		s.Inputs[i] = make([]float32, len(img))
		for j, p := range img {
			// Normalize: 0-255 → 0.0-1.0
			s.Inputs[i][j] = float32(p) / 255.0
		}
		out, err := OneHot(int(labels[i]), classes)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		s.Outputs[i] = out
	}
	return s, nil
}

// OneHot returns a vector of classes zeros with a 1 at label.
func OneHot(label, classes int) ([]float32, error) {
	if label < 0 || label >= classes {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrLabelRange, label, classes)
	}
	out := make([]float32, classes)
	out[label] = 1
	return out, nil
}

// Argmax returns the index of the largest value, the predicted class of a
// one-hot style output. It returns -1 for an empty slice.
func Argmax(values []float32) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

func readImages(path string, limit int) ([][]byte, error) {
	//nolint:gosec // G304: path comes from the data directory flag
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	images, _, _, err := ReadIDXImages(bufio.NewReader(file), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return images, nil
}

func readLabels(path string, limit int) ([]byte, error) {
	//nolint:gosec // G304: path comes from the data directory flag
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	labels, err := ReadIDXLabels(bufio.NewReader(file), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}
