// Package nn implements the classifier network and its training loop: 1-D
// convolutional layers with residual and squeeze-and-excitation structure,
// softmax cross-entropy, an AdamW optimizer, and an epoch-driven trainer with
// validation-selected checkpointing.
package nn

import (
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Mode selects between stochastic training behavior (batch statistics,
// dropout active) and deterministic evaluation behavior (running statistics,
// dropout disabled). It is carried explicitly by the network; nothing toggles
// it implicitly.
type Mode int

const (
	Train Mode = iota
	Eval
)

// Param is one learnable (or tracked) array of a layer. Grad is nil for
// tracked-but-not-trained state such as normalization running statistics;
// the optimizer skips those, the checkpoint includes them.
type Param struct {
	Name string
	Data *tensor.Tensor
	Grad *tensor.Tensor
}

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	// Backward takes the gradient of the loss with respect to the module's
	// output and returns the gradient with respect to its input, accumulating
	// parameter gradients along the way.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
	Params() []*Param
	SetMode(m Mode)
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for _, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Params collects the parameters of all layers.
func (s *Sequential) Params() []*Param {
	var ps []*Param
	for _, layer := range s.Layers {
		ps = append(ps, layer.Params()...)
	}
	return ps
}

// SetMode propagates the mode to all layers.
func (s *Sequential) SetMode(m Mode) {
	for _, layer := range s.Layers {
		layer.SetMode(m)
	}
}
