package evaluate

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Results accumulates per-sequence metrics in loop order.
type Results struct {
	Chamfer []float64
	Correct []float64
}

// Add records one sequence. correct is the number of batch items whose
// predicted class matched the target.
func (r *Results) Add(chamfer float64, correct int) {
	r.Chamfer = append(r.Chamfer, chamfer)
	r.Correct = append(r.Correct, float64(correct))
}

// Len is the number of recorded sequences.
func (r *Results) Len() int { return len(r.Chamfer) }

// MeanChamfer is the arithmetic mean of the recorded Chamfer distances.
func (r *Results) MeanChamfer() (float64, error) {
	m, err := stats.Mean(r.Chamfer)
	return m, errors.Wrap(err, "mean chamfer distance")
}

// Accuracy is the arithmetic mean of the correctness flags.
func (r *Results) Accuracy() (float64, error) {
	m, err := stats.Mean(r.Correct)
	return m, errors.Wrap(err, "category accuracy")
}
