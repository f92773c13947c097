package layers

import (
	"fmt"
	"math"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// ReLU zeroes negative activations.
type ReLU struct {
	mask []bool
}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(input.Shape...)
	r.mask = make([]bool, len(input.Data))
	for i, v := range input.Data {
		if v > 0 {
			out.Data[i] = v
			r.mask[i] = true
		}
	}
	return out, nil
}

func (r *ReLU) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if r.mask == nil {
		return nil, fmt.Errorf("relu: no cached input for backward pass")
	}
	gradIn := tensor.New(gradOut.Shape...)
	for i, g := range gradOut.Data {
		if r.mask[i] {
			gradIn.Data[i] = g
		}
	}
	return gradIn, nil
}

func (r *ReLU) Params() []*nn.Param { return nil }
func (r *ReLU) SetMode(nn.Mode)     {}

// Sigmoid maps activations to (0, 1); used by the SE gate.
type Sigmoid struct {
	out *tensor.Tensor
}

func NewSigmoid() *Sigmoid { return &Sigmoid{} }

func (s *Sigmoid) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(input.Shape...)
	for i, v := range input.Data {
		out.Data[i] = 1 / (1 + math.Exp(-v))
	}
	s.out = out
	return out, nil
}

func (s *Sigmoid) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if s.out == nil {
		return nil, fmt.Errorf("sigmoid: no cached output for backward pass")
	}
	gradIn := tensor.New(gradOut.Shape...)
	for i, g := range gradOut.Data {
		y := s.out.Data[i]
		gradIn.Data[i] = g * y * (1 - y)
	}
	return gradIn, nil
}

func (s *Sigmoid) Params() []*nn.Param { return nil }
func (s *Sigmoid) SetMode(nn.Mode)     {}
