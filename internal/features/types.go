// Package features converts merged alignments and raw sequences into the
// fixed-shape numerical feature bundles consumed by the inference stage.
package features

import (
	"encoding/json"
	"fmt"
)

// Tensor is a dense float32 array with an explicit shape, row-major.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// IntTensor is a dense int32 array with an explicit shape, row-major.
type IntTensor struct {
	Shape []int   `json:"shape"`
	Data  []int32 `json:"data"`
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{Shape: shape, Data: make([]float32, volume(shape))}
}

// NewIntTensor allocates a zeroed integer tensor with the given shape.
func NewIntTensor(shape ...int) *IntTensor {
	return &IntTensor{Shape: shape, Data: make([]int32, volume(shape))}
}

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Rows returns the leading dimension.
func (t *IntTensor) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// At returns element (i, j) of a rank-2 tensor.
func (t *IntTensor) At(i, j int) int32 {
	return t.Data[i*t.Shape[1]+j]
}

// Set assigns element (i, j) of a rank-2 tensor.
func (t *IntTensor) Set(i, j int, v int32) {
	t.Data[i*t.Shape[1]+j] = v
}

// Copy returns a deep copy.
func (t *IntTensor) Copy() *IntTensor {
	return &IntTensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]int32(nil), t.Data...),
	}
}

// Copy returns a deep copy.
func (t *Tensor) Copy() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}

// Bundle maps feature names to arrays (Tensor, IntTensor), strings or
// string lists.
type Bundle map[string]any

// Copy returns a deep copy of the bundle.
func (b Bundle) Copy() Bundle {
	out := make(Bundle, len(b))
	for k, v := range b {
		switch t := v.(type) {
		case *Tensor:
			out[k] = t.Copy()
		case *IntTensor:
			out[k] = t.Copy()
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Int returns the named IntTensor or an error naming the offender.
func (b Bundle) Int(name string) (*IntTensor, error) {
	v, ok := b[name]
	if !ok {
		return nil, fmt.Errorf("feature %q missing", name)
	}
	t, ok := v.(*IntTensor)
	if !ok {
		return nil, fmt.Errorf("feature %q is %T, expected *IntTensor", name, v)
	}
	return t, nil
}

// MarshalJSON serializes the bundle for the external predictor process.
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v
	}
	return json.Marshal(out)
}
