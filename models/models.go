// Package models assembles the composed prediction model: a contact predictor
// whose features condition a layout synthesizer. Both networks run either on
// a remote inference service or, for the contact predictor, in process.
package models

import (
	"context"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ContactInput is what the contact predictor sees for one batch.
type ContactInput struct {
	Mask            *tensors.Tensor
	GivenObjects    *tensors.Tensor
	GivenCategories *tensors.Tensor

	// AssociatedJoints is set only when orientations are fixed.
	AssociatedJoints []int
	Datatype         string
}

// LayoutInput is what the layout synthesizer sees for one batch.
type LayoutInput struct {
	Mask            *tensors.Tensor
	GivenObjects    *tensors.Tensor
	GivenCategories *tensors.Tensor
	Contact         *tensors.Tensor
	Datatype        string
	NumClasses      int
}

// ContactPredictor turns a motion sequence and its scene into contact
// features.
type ContactPredictor interface {
	PredictContact(ctx context.Context, in ContactInput) (*tensors.Tensor, error)
}

// LayoutSynthesizer proposes the next object given the scene and contact
// features.
type LayoutSynthesizer interface {
	Synthesize(ctx context.Context, in LayoutInput) (*Layout, error)
}
