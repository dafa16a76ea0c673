package models

import (
	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Layout is the box predicted by the composed model. Sizes and translations
// come as three single-axis tensors each, shaped [B, 1, 1]; ClassLabels holds
// logits shaped [B, 1, C].
type Layout struct {
	SizesX        *tensors.Tensor
	SizesY        *tensors.Tensor
	SizesZ        *tensors.Tensor
	TranslationsX *tensors.Tensor
	TranslationsY *tensors.Tensor
	TranslationsZ *tensors.Tensor
	Angles        *tensors.Tensor
	ClassLabels   *tensors.Tensor
}

// MemberNames lists the layout members in their fixed order. The same names
// are used on the wire.
var MemberNames = []string{
	"sizes_x", "sizes_y", "sizes_z",
	"translations_x", "translations_y", "translations_z",
	"angles", "class_labels",
}

// Members returns the eight member tensors in MemberNames order.
func (l *Layout) Members() []*tensors.Tensor {
	return []*tensors.Tensor{
		l.SizesX, l.SizesY, l.SizesZ,
		l.TranslationsX, l.TranslationsY, l.TranslationsZ,
		l.Angles, l.ClassLabels,
	}
}

// layoutFromMembers is the inverse of Members.
func layoutFromMembers(m []*tensors.Tensor) (*Layout, error) {
	if len(m) != len(MemberNames) {
		return nil, errors.Errorf("layout has %d members, want %d", len(m), len(MemberNames))
	}
	return &Layout{
		SizesX: m[0], SizesY: m[1], SizesZ: m[2],
		TranslationsX: m[3], TranslationsY: m[4], TranslationsZ: m[5],
		Angles: m[6], ClassLabels: m[7],
	}, nil
}

// Sizes concatenates SizesX, SizesY and SizesZ, in that order, into one
// 3-vector per batch item.
func (l *Layout) Sizes() ([]geometry.Point3, error) {
	return concatAxes(l.SizesX, l.SizesY, l.SizesZ)
}

// Translations concatenates TranslationsX, TranslationsY and TranslationsZ, in
// that order, into one 3-vector per batch item.
func (l *Layout) Translations() ([]geometry.Point3, error) {
	return concatAxes(l.TranslationsX, l.TranslationsY, l.TranslationsZ)
}

// Boxes pairs translations (centers) with sizes (half extents).
func (l *Layout) Boxes() ([]geometry.Box, error) {
	sizes, err := l.Sizes()
	if err != nil {
		return nil, errors.Wrap(err, "sizes")
	}
	centers, err := l.Translations()
	if err != nil {
		return nil, errors.Wrap(err, "translations")
	}
	if len(sizes) != len(centers) {
		return nil, errors.Errorf("%d sizes but %d translations", len(sizes), len(centers))
	}
	boxes := make([]geometry.Box, len(sizes))
	for i := range boxes {
		boxes[i] = geometry.Box{Center: centers[i], Size: sizes[i]}
	}
	return boxes, nil
}

// PredictedClasses is the argmax of the class logits after dropping the
// singleton object dimension, one index per batch item.
func (l *Layout) PredictedClasses() ([]int, error) {
	logits, err := datasets.FromTensor(l.ClassLabels)
	if err != nil {
		return nil, errors.Wrap(err, "class labels")
	}
	if logits.Rank() == 3 && logits.Dim(1) != 1 {
		return nil, errors.Errorf("class labels have shape %v, want [B 1 C]", logits.Shape)
	}
	return logits.ArgMax(), nil
}

// NumClasses is the width of the class logits.
func (l *Layout) NumClasses() int {
	if l.ClassLabels == nil {
		return 0
	}
	dims := l.ClassLabels.Shape().Dimensions
	if len(dims) == 0 {
		return 0
	}
	return dims[len(dims)-1]
}

// validate checks that every member is present and that all members agree on
// the batch size.
func (l *Layout) validate(numClasses int) error {
	for i, m := range l.Members() {
		if m == nil {
			return errors.Errorf("layout member %s is missing", MemberNames[i])
		}
	}
	batch := -1
	for i, m := range l.Members()[:7] {
		n := m.Shape().Size()
		if batch < 0 {
			batch = n
		} else if n != batch {
			return errors.Errorf("layout member %s has %d values, want %d", MemberNames[i], n, batch)
		}
	}
	if numClasses > 0 && l.NumClasses() != numClasses {
		return errors.Errorf("class logits have width %d, want %d", l.NumClasses(), numClasses)
	}
	return nil
}

func concatAxes(x, y, z *tensors.Tensor) ([]geometry.Point3, error) {
	axes := make([][]float32, 3)
	for k, t := range []*tensors.Tensor{x, y, z} {
		a, err := datasets.FromTensor(t)
		if err != nil {
			return nil, errors.Wrapf(err, "axis %d", k)
		}
		axes[k] = a.Data
	}
	if len(axes[0]) != len(axes[1]) || len(axes[0]) != len(axes[2]) {
		return nil, errors.Errorf("axis tensors disagree on batch size: %d, %d, %d", len(axes[0]), len(axes[1]), len(axes[2]))
	}
	out := make([]geometry.Point3, len(axes[0]))
	for i := range out {
		out[i] = geometry.Point3{float64(axes[0][i]), float64(axes[1][i]), float64(axes[2][i])}
	}
	return out, nil
}

// NewLayout builds a layout from per-batch sizes, translations, angles and
// class logits. It is the shape the layout service returns, [B,1,1] per axis
// and [B,1,C] logits.
func NewLayout(sizes, translations []geometry.Point3, angles []float32, logits [][]float32) (*Layout, error) {
	b := len(sizes)
	if len(translations) != b || len(angles) != b || len(logits) != b {
		return nil, errors.Errorf("inconsistent batch: %d sizes, %d translations, %d angles, %d logits",
			b, len(translations), len(angles), len(logits))
	}
	if b == 0 {
		return nil, errors.New("empty layout batch")
	}
	axis := func(pts []geometry.Point3, k int) *tensors.Tensor {
		data := make([]float32, b)
		for i, p := range pts {
			data[i] = float32(p[k])
		}
		return tensors.FromFlatDataAndDimensions(data, b, 1, 1)
	}
	c := len(logits[0])
	flat, err := datasets.MatrixArray(logits, c)
	if err != nil {
		return nil, errors.Wrap(err, "class logits")
	}
	return &Layout{
		SizesX:        axis(sizes, 0),
		SizesY:        axis(sizes, 1),
		SizesZ:        axis(sizes, 2),
		TranslationsX: axis(translations, 0),
		TranslationsY: axis(translations, 1),
		TranslationsZ: axis(translations, 2),
		Angles:        tensors.FromFlatDataAndDimensions(append([]float32(nil), angles...), b, 1, 1),
		ClassLabels:   tensors.FromFlatDataAndDimensions(flat.Data, b, 1, c),
	}, nil
}
