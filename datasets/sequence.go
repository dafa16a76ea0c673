package datasets

import (
	"github.com/pkg/errors"
)

// rawSequence holds the arrays of one sequence as read from disk, before
// options are applied.
type rawSequence struct {
	name      string
	label     string
	mask      []float32
	givenObjs *Array // [N, 7]
	givenCats *Array // [N, C]
	targetObj *Array // [P, 3]
	targetCat *Array // [C]
	yaw       float32
}

// validate checks the shapes of the arrays against each other.
func (r *rawSequence) validate() error {
	if r.givenObjs.Rank() != 2 || r.givenObjs.Dim(1) != ObjectParams {
		return errors.Errorf("sequence %s: given objects have shape %v, want [N %d]", r.name, r.givenObjs.Shape, ObjectParams)
	}
	if r.givenCats.Rank() != 2 || r.givenCats.Dim(0) != r.givenObjs.Dim(0) {
		return errors.Errorf("sequence %s: given categories have shape %v, want [%d C]", r.name, r.givenCats.Shape, r.givenObjs.Dim(0))
	}
	if r.targetObj.Rank() != 2 || r.targetObj.Dim(1) != 3 || r.targetObj.Dim(0) == 0 {
		return errors.Errorf("sequence %s: target object has shape %v, want [P 3] with P > 0", r.name, r.targetObj.Shape)
	}
	if r.targetCat.Rank() != 1 || r.targetCat.Dim(0) == 0 {
		return errors.Errorf("sequence %s: target category has shape %v, want [C]", r.name, r.targetCat.Shape)
	}
	if r.givenObjs.Dim(0) > 0 && r.givenCats.Dim(1) != r.targetCat.Dim(0) {
		return errors.Errorf("sequence %s: %d given category columns but %d target categories", r.name, r.givenCats.Dim(1), r.targetCat.Dim(0))
	}
	return nil
}

// sample applies opts and converts the sequence to a batched Sample.
func (r *rawSequence) sample(opts Options) (*Sample, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	mask := frameMask(r.mask, opts.JumpStep, opts.MaxFrame)
	maskArr, err := NewArray(mask, len(mask))
	if err != nil {
		return nil, errors.Wrapf(err, "sequence %s: mask", r.name)
	}

	objs := &Array{Data: append([]float32(nil), r.givenObjs.Data...), Shape: r.givenObjs.Shape}
	points := &Array{Data: append([]float32(nil), r.targetObj.Data...), Shape: r.targetObj.Shape}
	if opts.FixOrientation && r.yaw != 0 {
		theta := -float64(r.yaw)
		for _, row := range objs.Rows() {
			rotateY(row[0:3], theta)
			row[6] -= r.yaw
		}
		for _, p := range points.Rows() {
			rotateY(p, theta)
		}
	}

	return &Sample{
		Mask:            maskArr.Batched().Tensor(),
		GivenObjects:    objs.Batched().Tensor(),
		GivenCategories: r.givenCats.Batched().Tensor(),
		TargetObject:    points.Batched().Tensor(),
		TargetCategory:  r.targetCat.Batched().Tensor(),
		Label:           r.label,
		Sequence:        r.name,
	}, nil
}
