package datasets

import "github.com/pkg/errors"

// LoadAssociatedJoints reads a [vertices, joints] skinning weight matrix and
// returns, per vertex, the joint with the largest weight.
func LoadAssociatedJoints(path string) ([]int, error) {
	w, err := ReadNpy(path)
	if err != nil {
		return nil, err
	}
	if w.Rank() != 2 || w.Dim(1) == 0 {
		return nil, errors.Errorf("%s: weights have shape %v, want [vertices joints]", path, w.Shape)
	}
	return w.ArgMax(), nil
}
