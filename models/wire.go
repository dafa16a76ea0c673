package models

import (
	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Tensors travel as {"shape": [...], "data": [...]} structs.
const (
	fieldShape = "shape"
	fieldData  = "data"
)

func tensorToValue(t *tensors.Tensor) (*structpb.Value, error) {
	a, err := datasets.FromTensor(t)
	if err != nil {
		return nil, err
	}
	shape := make([]interface{}, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = d
	}
	data := make([]interface{}, len(a.Data))
	for i, v := range a.Data {
		data[i] = float64(v)
	}
	s, err := structpb.NewStruct(map[string]interface{}{
		fieldShape: shape,
		fieldData:  data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tensor")
	}
	return structpb.NewStructValue(s), nil
}

func valueToTensor(v *structpb.Value) (*tensors.Tensor, error) {
	s := v.GetStructValue()
	if s == nil {
		return nil, errors.New("tensor value is not a struct")
	}
	shapeVal, ok := s.GetFields()[fieldShape]
	if !ok {
		return nil, errors.New("tensor has no shape")
	}
	dataVal, ok := s.GetFields()[fieldData]
	if !ok {
		return nil, errors.New("tensor has no data")
	}

	dims := shapeVal.GetListValue().GetValues()
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d.GetNumberValue())
	}
	vals := dataVal.GetListValue().GetValues()
	data := make([]float32, len(vals))
	for i, d := range vals {
		data[i] = float32(d.GetNumberValue())
	}
	a, err := datasets.NewArray(data, shape...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode tensor")
	}
	return a.Tensor(), nil
}

// newRequest builds a request struct. Values may be plain Go values accepted by
// structpb.NewValue or already-encoded *structpb.Value.
func newRequest(fields map[string]interface{}) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, f := range fields {
		switch v := f.(type) {
		case *structpb.Value:
			out.Fields[k] = v
		case *tensors.Tensor:
			tv, err := tensorToValue(v)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", k)
			}
			out.Fields[k] = tv
		default:
			pv, err := structpb.NewValue(f)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", k)
			}
			out.Fields[k] = pv
		}
	}
	return out, nil
}

func intsValue(xs []int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
