package layers

import (
	"fmt"
	"math/rand"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Dropout zeroes each activation with probability p during training, scaling
// survivors by 1/(1-p) so the expected activation is unchanged. In Eval mode
// it is the identity.
type Dropout struct {
	p    float64
	mode nn.Mode
	mask []float64
}

func NewDropout(p float64) *Dropout { return &Dropout{p: p} }

func (d *Dropout) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if d.mode == nn.Eval || d.p == 0 {
		d.mask = nil
		return input, nil
	}
	out := tensor.New(input.Shape...)
	d.mask = make([]float64, len(input.Data))
	keep := 1 / (1 - d.p)
	for i, v := range input.Data {
		if rand.Float64() >= d.p {
			d.mask[i] = keep
			out.Data[i] = v * keep
		}
	}
	return out, nil
}

func (d *Dropout) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if d.mask == nil {
		if d.mode == nn.Eval || d.p == 0 {
			return gradOut, nil
		}
		return nil, fmt.Errorf("dropout: no cached mask for backward pass")
	}
	gradIn := tensor.New(gradOut.Shape...)
	for i, g := range gradOut.Data {
		gradIn.Data[i] = g * d.mask[i]
	}
	return gradIn, nil
}

func (d *Dropout) Params() []*nn.Param { return nil }
func (d *Dropout) SetMode(m nn.Mode)   { d.mode = m }
