package models

import (
	"context"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/Noofbiz/sceneEval/simple"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// LocalContactPredictor runs a small MLP in process. Each given object
// becomes one row (its 7 parameters followed by its one-hot category),
// zero-padded or truncated to f_vert; the per-object outputs are mean-pooled
// into one d_hid wide feature vector per batch item.
type LocalContactPredictor struct {
	model *simple.Model
	cfg   ContactConfig
}

// NewLocalContactPredictor builds the MLP described by cfg and loads its
// weights from the checkpoint directory.
func NewLocalContactPredictor(cfg ContactConfig, checkpoint string) (*LocalContactPredictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hidden := make([]int, cfg.NLayer)
	for i := range hidden {
		hidden[i] = cfg.DimFF
	}
	m, err := simple.NewModel(simple.Config{
		InputDim:    cfg.FVert,
		HiddenSizes: hidden,
		OutputDim:   cfg.DHid,
		Seed:        1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build contact model")
	}
	if err := m.LoadCheckpoint(checkpoint); err != nil {
		return nil, errors.Wrap(err, "failed to load contact model")
	}
	return &LocalContactPredictor{model: m, cfg: cfg}, nil
}

// PredictContact implements ContactPredictor. The result is [B, d_hid].
func (p *LocalContactPredictor) PredictContact(ctx context.Context, in ContactInput) (*tensors.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objs, err := datasets.FromTensor(in.GivenObjects)
	if err != nil {
		return nil, errors.Wrap(err, "given objects")
	}
	cats, err := datasets.FromTensor(in.GivenCategories)
	if err != nil {
		return nil, errors.Wrap(err, "given categories")
	}
	if objs.Rank() != 3 || cats.Rank() != 3 || objs.Dim(0) != cats.Dim(0) || objs.Dim(1) != cats.Dim(1) {
		return nil, errors.Errorf("given objects %v and categories %v do not match", objs.Shape, cats.Shape)
	}

	batch, n := objs.Dim(0), objs.Dim(1)
	objRows, catRows := objs.Rows(), cats.Rows()
	out := make([]float32, 0, batch*p.cfg.DHid)
	for b := 0; b < batch; b++ {
		rows := make([][]float32, n)
		for j := 0; j < n; j++ {
			row := make([]float32, p.cfg.FVert)
			k := copy(row, objRows[b*n+j])
			if k < len(row) {
				copy(row[k:], catRows[b*n+j])
			}
			rows[j] = row
		}
		preds, err := p.model.PredictBatch(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "batch item %d", b)
		}
		out = append(out, simple.MeanPool(preds, p.cfg.DHid)...)
	}
	return tensors.FromFlatDataAndDimensions(out, batch, p.cfg.DHid), nil
}
