package layers

import (
	"fmt"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// SEGate is a squeeze-and-excitation channel gate: a global average over
// time is squeezed through a two-layer bottleneck ending in a sigmoid,
// producing one weight per channel that rescales the block's output. This
// lets the network re-weight the four EMG channels per example.
type SEGate struct {
	channels int

	fc1     *Linear
	reluAct *ReLU
	fc2     *Linear
	sigAct  *Sigmoid

	lastInput *tensor.Tensor
	gate      *tensor.Tensor // [B, C]
	name      string
}

// NewSEGate builds an SE gate with the given bottleneck reduction factor.
func NewSEGate(name string, channels, reduction int) *SEGate {
	reduced := channels / reduction
	if reduced < 1 {
		reduced = 1
	}
	return &SEGate{
		channels: channels,
		fc1:      NewLinear(name+".fc1", channels, reduced),
		reluAct:  NewReLU(),
		fc2:      NewLinear(name+".fc2", reduced, channels),
		sigAct:   NewSigmoid(),
		name:     name,
	}
}

func (s *SEGate) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 || input.Shape[1] != s.channels {
		return nil, fmt.Errorf("%s: expected [batch, %d, length] input, got shape %v", s.name, s.channels, input.Shape)
	}
	batch, length := input.Shape[0], input.Shape[2]
	s.lastInput = input

	// Squeeze: global average over time.
	squeezed := tensor.New(batch, s.channels)
	for b := 0; b < batch; b++ {
		for c := 0; c < s.channels; c++ {
			base := b*s.channels*length + c*length
			sum := 0.0
			for i := 0; i < length; i++ {
				sum += input.Data[base+i]
			}
			squeezed.Data[b*s.channels+c] = sum / float64(length)
		}
	}

	// Excite: bottleneck -> per-channel gate in (0, 1).
	h, err := s.fc1.Forward(squeezed)
	if err != nil {
		return nil, err
	}
	if h, err = s.reluAct.Forward(h); err != nil {
		return nil, err
	}
	if h, err = s.fc2.Forward(h); err != nil {
		return nil, err
	}
	gate, err := s.sigAct.Forward(h)
	if err != nil {
		return nil, err
	}
	s.gate = gate

	// Rescale each channel by its gate value.
	out := tensor.New(input.Shape...)
	for b := 0; b < batch; b++ {
		for c := 0; c < s.channels; c++ {
			g := gate.Data[b*s.channels+c]
			base := b*s.channels*length + c*length
			for i := 0; i < length; i++ {
				out.Data[base+i] = input.Data[base+i] * g
			}
		}
	}
	return out, nil
}

func (s *SEGate) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if s.lastInput == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", s.name)
	}
	batch, length := gradOut.Shape[0], gradOut.Shape[2]

	// Direct path: d out/d x through the rescale, plus the gate's gradient.
	gradIn := tensor.New(s.lastInput.Shape...)
	gradGate := tensor.New(batch, s.channels)
	for b := 0; b < batch; b++ {
		for c := 0; c < s.channels; c++ {
			g := s.gate.Data[b*s.channels+c]
			base := b*s.channels*length + c*length
			sum := 0.0
			for i := 0; i < length; i++ {
				gradIn.Data[base+i] = gradOut.Data[base+i] * g
				sum += gradOut.Data[base+i] * s.lastInput.Data[base+i]
			}
			gradGate.Data[b*s.channels+c] = sum
		}
	}

	// Gate path back through sigmoid, bottleneck and squeeze.
	grad, err := s.sigAct.Backward(gradGate)
	if err != nil {
		return nil, err
	}
	if grad, err = s.fc2.Backward(grad); err != nil {
		return nil, err
	}
	if grad, err = s.reluAct.Backward(grad); err != nil {
		return nil, err
	}
	if grad, err = s.fc1.Backward(grad); err != nil {
		return nil, err
	}

	inv := 1 / float64(length)
	for b := 0; b < batch; b++ {
		for c := 0; c < s.channels; c++ {
			g := grad.Data[b*s.channels+c] * inv
			base := b*s.channels*length + c*length
			for i := 0; i < length; i++ {
				gradIn.Data[base+i] += g
			}
		}
	}
	return gradIn, nil
}

func (s *SEGate) Params() []*nn.Param {
	return append(s.fc1.Params(), s.fc2.Params()...)
}

func (s *SEGate) SetMode(nn.Mode) {}
