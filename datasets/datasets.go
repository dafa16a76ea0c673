package datasets

import (
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// This file provides the two sequence sources that feed the evaluation loop.
//
// Both sources read a dataset root laid out per sequence and yield one Sample
// per sequence, in a fixed (sorted) order, with a leading batch dimension of
// 1. Data is read lazily: constructors only index the sequences and Sample(i)
// reads the files of sequence i.
//
// Layout and intended usage:
//
// PointCloudSequenceSource ("proxd")
//   - <root>/context/<seq>.txt holds the prompt (first line)
//   - <root>/{mask,given_objs,given_cats,target_obj,target_cat}/<seq>.npy
//   - <root>/orient/<seq>.npy optionally holds the sequence yaw
//
// HumaniseSequenceSource ("humanise")
//   - <root>/sequences/<seq>.json holds every field plus the prompt text
//
// Tensor shapes of a Sample:
//   - Mask            [1, F]
//   - GivenObjects    [1, N, 7] (translation xyz, size xyz, angle)
//   - GivenCategories [1, N, C] one-hot
//   - TargetObject    [1, P, 3] ground-truth point cloud
//   - TargetCategory  [1, C] one-hot

// ObjectParams is the width of one object row: translation(3), size(3), angle.
const ObjectParams = 7

// Dataset is the contract shared by both sequence sources.
type Dataset interface {
	Len() int
	Sample(i int) (*Sample, error)

	// MaxCategories is the width of the one-hot category vectors, used to
	// size the layout network.
	MaxCategories() int
	Name() string
}

// Sample is one sequence, already converted to gomlx tensors.
type Sample struct {
	Mask            *tensors.Tensor
	GivenObjects    *tensors.Tensor
	GivenCategories *tensors.Tensor
	TargetObject    *tensors.Tensor
	TargetCategory  *tensors.Tensor

	// Label is the free-text prompt of the sequence. It is the key into the
	// LookupTable.
	Label string

	// Sequence is the dataset-internal name of the sequence.
	Sequence string
}

// Options are shared by both sequence sources.
type Options struct {
	// MaxFrame truncates or zero-pads the mask to this many frames. Zero
	// keeps the mask as stored.
	MaxFrame int

	// JumpStep keeps every JumpStep-th frame of the mask before MaxFrame is
	// applied. Values below 2 keep every frame.
	JumpStep int

	// FixOrientation rotates each sequence about the vertical (y) axis by
	// minus its stored yaw.
	FixOrientation bool
}

// Dataset type selectors accepted by Open.
const (
	TypeProxd    = "proxd"
	TypeHumanise = "humanise"
)

// Open returns the sequence source selected by datatype.
func Open(datatype, root string, opts Options) (Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(datatype)) {
	case TypeProxd:
		return NewPointCloudSequenceSource(root, opts)
	case TypeHumanise:
		return NewHumaniseSequenceSource(root, opts)
	default:
		return nil, errors.Errorf("unknown dataset type %q (want %q or %q)", datatype, TypeProxd, TypeHumanise)
	}
}
