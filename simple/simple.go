// Package simple holds a small multilayer perceptron used for inference only.
// Weights come from a checkpoint directory of .npy arrays; the model never
// trains.
package simple

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/pkg/errors"
)

// Config holds the architecture of the MLP.
type Config struct {
	// InputDim is the width of one input row.
	InputDim int

	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 64 will be used.
	HiddenSizes []int

	// OutputDim is the width of one output row.
	OutputDim int

	// Seed controls the placeholder weight init used before a checkpoint is
	// loaded. If zero, a time-based seed is used.
	Seed int64
}

// Model is a small configurable MLP with ReLU hidden activations and a linear
// output layer.
type Model struct {
	// Config used for initialization.
	Config Config

	// layerSizes includes input size, hidden sizes, then output size.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1
	weights [][][]float32

	// biases[l] is a vector of length out for layer l -> l+1
	biases [][]float32

	// loaded is set once a checkpoint has replaced the initial weights.
	loaded bool
}

// NewModel creates a new Model instance with the provided configuration.
// Weights are initialized with small random values until LoadCheckpoint is
// called.
func NewModel(cfg Config) (*Model, error) {
	if cfg.InputDim <= 0 {
		return nil, errors.Errorf("input dimension must be positive, got %d", cfg.InputDim)
	}
	if cfg.OutputDim <= 0 {
		return nil, errors.Errorf("output dimension must be positive, got %d", cfg.OutputDim)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64}
	}
	for i, h := range cfg.HiddenSizes {
		if h <= 0 {
			return nil, errors.Errorf("hidden layer %d has non-positive size %d", i, h)
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	m := &Model{Config: cfg}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, cfg.OutputDim)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float32, L)
	m.biases = make([][]float32, L)
	for l := 0; l < L; l++ {
		in := sizes[l]
		out := sizes[l+1]
		// Xavier/Glorot uniform initialization heuristic
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		mat := make([][]float32, out)
		for j := 0; j < out; j++ {
			row := make([]float32, in)
			for i := 0; i < in; i++ {
				row[i] = (rng.Float32()*2.0 - 1.0) * limit
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float32, out)
	}

	return m, nil
}

// NumLayers is the number of weight layers (hidden + output).
func (m *Model) NumLayers() int { return len(m.weights) }

// Loaded reports whether a checkpoint has been loaded.
func (m *Model) Loaded() bool { return m.loaded }

// WeightFile and BiasFile name the checkpoint arrays of layer l.
func WeightFile(l int) string { return fmt.Sprintf("layer%d_weight.npy", l) }
func BiasFile(l int) string   { return fmt.Sprintf("layer%d_bias.npy", l) }

// LoadCheckpoint replaces the weights with the arrays stored in dir. Every
// layer needs layer{l}_weight.npy of shape [out, in] and layer{l}_bias.npy of
// shape [out]. A missing file or any shape mismatch with the configured
// architecture is an error and leaves the model unchanged.
func (m *Model) LoadCheckpoint(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to open checkpoint %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("checkpoint %s is not a directory", dir)
	}

	L := len(m.weights)
	weights := make([][][]float32, L)
	biases := make([][]float32, L)
	for l := 0; l < L; l++ {
		in, out := m.layerSizes[l], m.layerSizes[l+1]

		w, err := datasets.ReadNpy(filepath.Join(dir, WeightFile(l)))
		if err != nil {
			return errors.Wrapf(err, "layer %d weight", l)
		}
		if w.Rank() != 2 || w.Dim(0) != out || w.Dim(1) != in {
			return errors.Errorf("layer %d weight: checkpoint shape %v does not match architecture [%d %d]", l, w.Shape, out, in)
		}
		b, err := datasets.ReadNpy(filepath.Join(dir, BiasFile(l)))
		if err != nil {
			return errors.Wrapf(err, "layer %d bias", l)
		}
		if b.Rank() != 1 || b.Dim(0) != out {
			return errors.Errorf("layer %d bias: checkpoint shape %v does not match architecture [%d]", l, b.Shape, out)
		}

		weights[l] = w.Rows()
		biases[l] = b.Data
	}

	// Extra layers in the checkpoint mean a deeper network than configured.
	if _, err := os.Stat(filepath.Join(dir, WeightFile(L))); err == nil {
		return errors.Errorf("checkpoint %s has more than %d layers", dir, L)
	}

	m.weights = weights
	m.biases = biases
	m.loaded = true
	return nil
}

// activationReLU applies ReLU in-place over the slice.
func activationReLU(x []float32) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

// forwardSingle performs a forward pass for a single input vector and returns
// the output activation.
func (m *Model) forwardSingle(input []float32) ([]float32, error) {
	if len(input) != m.layerSizes[0] {
		return nil, errors.Errorf("input has dimension %d, want %d", len(input), m.layerSizes[0])
	}
	act := make([]float32, len(input))
	copy(act, input)

	L := len(m.weights)
	for l := 0; l < L; l++ {
		W := m.weights[l]
		b := m.biases[l]
		next := make([]float32, len(b))
		for j := range next {
			sum := b[j]
			row := W[j]
			for i := range act {
				sum += row[i] * act[i]
			}
			next[j] = sum
		}
		// ReLU for hidden, linear for last layer
		if l < L-1 {
			activationReLU(next)
		}
		act = next
	}
	return act, nil
}

// PredictBatch returns model outputs for a batch of input rows. It does a
// purely forward pass. The returned [][]float32 has shape [batch][OutputDim].
func (m *Model) PredictBatch(inputs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		pred, err := m.forwardSingle(in)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out[i] = pred
	}
	return out, nil
}

// MeanPool averages rows column-wise. It returns a zero vector of width dim
// when rows is empty.
func MeanPool(rows [][]float32, dim int) []float32 {
	out := make([]float32, dim)
	if len(rows) == 0 {
		return out
	}
	for _, r := range rows {
		for j := 0; j < dim && j < len(r); j++ {
			out[j] += r[j]
		}
	}
	inv := 1 / float32(len(rows))
	for j := range out {
		out[j] *= inv
	}
	return out
}
