// Package evaluate runs the composed model over a dataset and scores every
// sequence by Chamfer distance and category accuracy.
package evaluate

import (
	"context"
	"math/rand"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/Noofbiz/sceneEval/models"
	"github.com/Noofbiz/sceneEval/report"
	"github.com/Noofbiz/sceneEval/store"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"go.uber.org/zap"
)

// Predictor is the composed contact and layout model.
type Predictor interface {
	Predict(ctx context.Context, givenObjs, givenCats, mask *tensors.Tensor) (*models.Layout, error)
}

// Ledger receives per-sequence outcomes and the final metrics of a run.
type Ledger interface {
	RecordSample(runID string, rec store.SampleRecord) error
	FinishRun(runID string, chamfer, accuracy float64) error
}

// SampleFunc draws n surface points of a box.
type SampleFunc func(rng *rand.Rand, b geometry.Box, n int) ([]geometry.Point3, error)

// RenderFunc draws one sequence's prediction against its ground truth.
type RenderFunc func(stem, label string, pred, ground []geometry.Point3) error

// Evaluator holds everything one evaluation run needs.
type Evaluator struct {
	Dataset   datasets.Dataset
	Model     Predictor
	Lookup    *datasets.LookupTable
	OutputDir string

	// Rand drives box surface sampling. It is owned by the run.
	Rand         *rand.Rand
	PointsPerBox int
	Sampler      SampleFunc

	// Ledger is optional; RunID names the run in it.
	Ledger Ledger
	RunID  string

	// Render is optional and decides itself which sequences to draw.
	Render RenderFunc

	Log *zap.SugaredLogger
}

// Summary is the outcome of a completed run.
type Summary struct {
	Samples     int
	Chamfer     float64
	Accuracy    float64
	ResultsPath string
	Results     *Results
}

// Run evaluates every sequence in dataset order, appending a line per
// sequence to results.txt and writing the predicted point cloud to
// predictions/. Any error aborts the run; lines already written stay on disk.
func (e *Evaluator) Run(ctx context.Context) (*Summary, error) {
	if e.Dataset == nil || e.Model == nil || e.Lookup == nil {
		return nil, errors.New("evaluator needs a dataset, a model and a lookup table")
	}
	if e.Rand == nil {
		return nil, errors.New("evaluator needs a random source")
	}
	if e.Log == nil {
		e.Log = zap.NewNop().Sugar()
	}
	if e.Sampler == nil {
		e.Sampler = geometry.BoxToPoints
	}
	if e.PointsPerBox <= 0 {
		e.PointsPerBox = geometry.DefaultPoints
	}

	out, err := report.CreateResults(e.OutputDir)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	res := &Results{}
	if n := e.Dataset.Len(); n > 0 {
		var loopErr error
		err = tqdm.With(iterators.Interval(0, n), "Evaluating", func(v interface{}) (brk bool) {
			i := v.(int)
			if loopErr = ctx.Err(); loopErr != nil {
				return true
			}
			if loopErr = e.evalSample(ctx, i, out, res); loopErr != nil {
				loopErr = errors.Wrapf(loopErr, "sequence %d", i)
				return true
			}
			return false
		})
		if loopErr != nil {
			return nil, loopErr
		}
		if err != nil {
			return nil, errors.Wrap(err, "evaluation loop")
		}
	}

	chamfer, err := res.MeanChamfer()
	if err != nil {
		return nil, err
	}
	accuracy, err := res.Accuracy()
	if err != nil {
		return nil, err
	}
	if err := out.WriteSummary(chamfer, accuracy); err != nil {
		return nil, err
	}
	e.Log.Infow("evaluation finished", "sequences", res.Len(), "chamfer", chamfer, "accuracy", accuracy)

	if e.Ledger != nil {
		if err := e.Ledger.FinishRun(e.RunID, chamfer, accuracy); err != nil {
			return nil, err
		}
	}
	if path, err := report.PlotChamferHist(e.OutputDir, res.Chamfer); err != nil {
		e.Log.Warnw("failed to plot chamfer histogram", "error", err)
	} else {
		e.Log.Debugw("wrote chamfer histogram", "path", path)
	}

	return &Summary{
		Samples:     res.Len(),
		Chamfer:     chamfer,
		Accuracy:    accuracy,
		ResultsPath: out.Path(),
		Results:     res,
	}, nil
}

func (e *Evaluator) evalSample(ctx context.Context, i int, out *report.ResultsFile, res *Results) error {
	s, err := e.Dataset.Sample(i)
	if err != nil {
		return err
	}

	layout, err := e.Model.Predict(ctx, s.GivenObjects, s.GivenCategories, s.Mask)
	if err != nil {
		return errors.Wrap(err, "prediction")
	}
	boxes, err := layout.Boxes()
	if err != nil {
		return err
	}
	pred := make([][]geometry.Point3, len(boxes))
	for b, box := range boxes {
		if pred[b], err = e.Sampler(e.Rand, box, e.PointsPerBox); err != nil {
			return errors.Wrapf(err, "failed to sample box %d", b)
		}
	}
	ground, err := pointClouds(s.TargetObject)
	if err != nil {
		return errors.Wrap(err, "target object")
	}
	chamfer, err := geometry.BatchChamfer(pred, ground)
	if err != nil {
		return err
	}

	predClasses, err := layout.PredictedClasses()
	if err != nil {
		return err
	}
	target, err := datasets.FromTensor(s.TargetCategory)
	if err != nil {
		return errors.Wrap(err, "target category")
	}
	targetClasses := target.ArgMax()
	if len(targetClasses) != len(predClasses) {
		return errors.Errorf("%d predicted classes for %d targets", len(predClasses), len(targetClasses))
	}
	correct := 0
	for b := range predClasses {
		if predClasses[b] == targetClasses[b] {
			correct++
		}
	}
	res.Add(chamfer, correct)

	stem, err := e.Lookup.Stem(s.Label)
	if err != nil {
		return err
	}
	if err := out.WriteSample(stem, chamfer); err != nil {
		return err
	}
	path, err := report.SavePrediction(e.OutputDir, stem, pred[0])
	if err != nil {
		return err
	}
	e.Log.Debugw("evaluated sequence", "index", i, "stem", stem, "chamfer", chamfer, "correct", correct)

	if e.Ledger != nil {
		err := e.Ledger.RecordSample(e.RunID, store.SampleRecord{
			Index:          i,
			Stem:           stem,
			Label:          s.Label,
			Chamfer:        chamfer,
			Correct:        correct,
			PredClass:      predClasses[0],
			TargetClass:    targetClasses[0],
			PredictionPath: path,
		})
		if err != nil {
			return err
		}
	}
	if e.Render != nil {
		if err := e.Render(stem, s.Label, pred[0], ground[0]); err != nil {
			return errors.Wrapf(err, "failed to render %s", stem)
		}
	}
	return nil
}

// pointClouds splits a [B, P, 3] tensor into one cloud per batch item.
func pointClouds(t *tensors.Tensor) ([][]geometry.Point3, error) {
	a, err := datasets.FromTensor(t)
	if err != nil {
		return nil, err
	}
	if a.Rank() != 3 || a.Dim(2) != 3 {
		return nil, errors.Errorf("point cloud has shape %v, want [B P 3]", a.Shape)
	}
	rows := a.Rows()
	b, p := a.Dim(0), a.Dim(1)
	out := make([][]geometry.Point3, b)
	for i := 0; i < b; i++ {
		cloud := make([]geometry.Point3, p)
		for j := range cloud {
			r := rows[i*p+j]
			cloud[j] = geometry.Point3{float64(r[0]), float64(r[1]), float64(r[2])}
		}
		out[i] = cloud
	}
	return out, nil
}
