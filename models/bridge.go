package models

import (
	"context"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Bridge composes a contact predictor with a layout synthesizer.
type Bridge struct {
	Layout     LayoutSynthesizer
	Contact    ContactPredictor
	Datatype   string
	NumClasses int

	// AssociatedJoints is passed to the contact predictor when set.
	AssociatedJoints []int
}

// NewBridge checks its arguments and returns the composed model.
func NewBridge(layout LayoutSynthesizer, contact ContactPredictor, datatype string, numClasses int) (*Bridge, error) {
	if layout == nil || contact == nil {
		return nil, errors.New("bridge needs both a layout synthesizer and a contact predictor")
	}
	if datatype != datasets.TypeProxd && datatype != datasets.TypeHumanise {
		return nil, errors.Errorf("unknown datatype %q", datatype)
	}
	if numClasses <= 0 {
		return nil, errors.Errorf("number of classes must be positive, got %d", numClasses)
	}
	return &Bridge{
		Layout:     layout,
		Contact:    contact,
		Datatype:   datatype,
		NumClasses: numClasses,
	}, nil
}

// Predict runs the contact predictor and then the layout synthesizer on its
// features.
func (b *Bridge) Predict(ctx context.Context, givenObjs, givenCats, mask *tensors.Tensor) (*Layout, error) {
	contact, err := b.Contact.PredictContact(ctx, ContactInput{
		Mask:             mask,
		GivenObjects:     givenObjs,
		GivenCategories:  givenCats,
		AssociatedJoints: b.AssociatedJoints,
		Datatype:         b.Datatype,
	})
	if err != nil {
		return nil, errors.Wrap(err, "contact prediction")
	}
	layout, err := b.Layout.Synthesize(ctx, LayoutInput{
		Mask:            mask,
		GivenObjects:    givenObjs,
		GivenCategories: givenCats,
		Contact:         contact,
		Datatype:        b.Datatype,
		NumClasses:      b.NumClasses,
	})
	if err != nil {
		return nil, errors.Wrap(err, "layout synthesis")
	}
	if err := layout.validate(b.NumClasses); err != nil {
		return nil, errors.Wrap(err, "invalid layout")
	}
	return layout, nil
}
