package layers

import (
	"fmt"
	"math"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// BatchNorm1D normalizes each channel over the batch and time axes. In Train
// mode it uses batch statistics and updates running statistics; in Eval mode
// it uses the accumulated running statistics, making evaluation
// deterministic. Running statistics are tracked state and travel with the
// checkpoint.
type BatchNorm1D struct {
	channels int
	eps      float64
	momentum float64
	mode     nn.Mode

	gamma *tensor.Tensor // [C]
	beta  *tensor.Tensor // [C]

	runningMean *tensor.Tensor // [C]
	runningVar  *tensor.Tensor // [C]

	gradGamma *tensor.Tensor
	gradBeta  *tensor.Tensor

	// training caches
	xhat   *tensor.Tensor
	invStd []float64

	name string
}

// NewBatchNorm1D creates a BatchNorm1D with unit scale and zero shift.
func NewBatchNorm1D(name string, channels int) *BatchNorm1D {
	bn := &BatchNorm1D{
		channels:    channels,
		eps:         1e-5,
		momentum:    0.1,
		gamma:       tensor.New(channels),
		beta:        tensor.New(channels),
		runningMean: tensor.New(channels),
		runningVar:  tensor.New(channels),
		gradGamma:   tensor.New(channels),
		gradBeta:    tensor.New(channels),
		name:        name,
	}
	for c := 0; c < channels; c++ {
		bn.gamma.Data[c] = 1
		bn.runningVar.Data[c] = 1
	}
	return bn
}

// Forward normalizes [B, C, L] input per channel.
func (bn *BatchNorm1D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 || input.Shape[1] != bn.channels {
		return nil, fmt.Errorf("%s: expected [batch, %d, length] input, got shape %v", bn.name, bn.channels, input.Shape)
	}
	batch, length := input.Shape[0], input.Shape[2]
	n := batch * length
	out := tensor.New(input.Shape...)

	if bn.mode == nn.Train {
		if n < 2 {
			return nil, fmt.Errorf("%s: need at least 2 values per channel for batch statistics, got %d", bn.name, n)
		}
		bn.xhat = tensor.New(input.Shape...)
		bn.invStd = make([]float64, bn.channels)
		for c := 0; c < bn.channels; c++ {
			mean, biasedVar := channelMoments(input, c)
			inv := 1 / math.Sqrt(biasedVar+bn.eps)
			bn.invStd[c] = inv

			for b := 0; b < batch; b++ {
				base := b*bn.channels*length + c*length
				for i := 0; i < length; i++ {
					xh := (input.Data[base+i] - mean) * inv
					bn.xhat.Data[base+i] = xh
					out.Data[base+i] = bn.gamma.Data[c]*xh + bn.beta.Data[c]
				}
			}

			// Running stats use the unbiased variance.
			unbiased := biasedVar * float64(n) / float64(n-1)
			bn.runningMean.Data[c] = (1-bn.momentum)*bn.runningMean.Data[c] + bn.momentum*mean
			bn.runningVar.Data[c] = (1-bn.momentum)*bn.runningVar.Data[c] + bn.momentum*unbiased
		}
		return out, nil
	}

	// Eval mode: purely a function of the running statistics.
	for c := 0; c < bn.channels; c++ {
		inv := 1 / math.Sqrt(bn.runningVar.Data[c]+bn.eps)
		shift := bn.beta.Data[c] - bn.gamma.Data[c]*bn.runningMean.Data[c]*inv
		scale := bn.gamma.Data[c] * inv
		for b := 0; b < batch; b++ {
			base := b*bn.channels*length + c*length
			for i := 0; i < length; i++ {
				out.Data[base+i] = scale*input.Data[base+i] + shift
			}
		}
	}
	return out, nil
}

func channelMoments(t *tensor.Tensor, c int) (mean, biasedVar float64) {
	batch, channels, length := t.Shape[0], t.Shape[1], t.Shape[2]
	n := float64(batch * length)
	sum := 0.0
	for b := 0; b < batch; b++ {
		base := b*channels*length + c*length
		for i := 0; i < length; i++ {
			sum += t.Data[base+i]
		}
	}
	mean = sum / n
	sq := 0.0
	for b := 0; b < batch; b++ {
		base := b*channels*length + c*length
		for i := 0; i < length; i++ {
			d := t.Data[base+i] - mean
			sq += d * d
		}
	}
	return mean, sq / n
}

// Backward propagates through the batch-statistics normalization. Only valid
// after a Train-mode forward pass; validation never backpropagates.
func (bn *BatchNorm1D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if bn.xhat == nil {
		return nil, fmt.Errorf("%s: no cached batch statistics for backward pass", bn.name)
	}
	batch, length := gradOut.Shape[0], gradOut.Shape[2]
	n := float64(batch * length)

	bn.gradGamma.Zero()
	bn.gradBeta.Zero()
	gradIn := tensor.New(gradOut.Shape...)

	for c := 0; c < bn.channels; c++ {
		sumG, sumGX := 0.0, 0.0
		for b := 0; b < batch; b++ {
			base := b*bn.channels*length + c*length
			for i := 0; i < length; i++ {
				g := gradOut.Data[base+i]
				sumG += g
				sumGX += g * bn.xhat.Data[base+i]
			}
		}
		bn.gradBeta.Data[c] = sumG
		bn.gradGamma.Data[c] = sumGX

		k := bn.gamma.Data[c] * bn.invStd[c] / n
		for b := 0; b < batch; b++ {
			base := b*bn.channels*length + c*length
			for i := 0; i < length; i++ {
				g := gradOut.Data[base+i]
				gradIn.Data[base+i] = k * (n*g - sumG - bn.xhat.Data[base+i]*sumGX)
			}
		}
	}
	return gradIn, nil
}

func (bn *BatchNorm1D) Params() []*nn.Param {
	return []*nn.Param{
		{Name: bn.name + ".weight", Data: bn.gamma, Grad: bn.gradGamma},
		{Name: bn.name + ".bias", Data: bn.beta, Grad: bn.gradBeta},
		{Name: bn.name + ".running_mean", Data: bn.runningMean},
		{Name: bn.name + ".running_var", Data: bn.runningVar},
	}
}

func (bn *BatchNorm1D) SetMode(m nn.Mode) { bn.mode = m }
