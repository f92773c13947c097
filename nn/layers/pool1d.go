package layers

import (
	"fmt"
	"math"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// MaxPool1D takes the maximum over strided, zero-padded windows along the
// time axis. Padding positions never win; only real samples are compared.
type MaxPool1D struct {
	kernel, stride, pad int

	argmax  []int // flat input index that produced each output, -1 if none
	inShape []int
}

func NewMaxPool1D(kernel, stride, pad int) *MaxPool1D {
	return &MaxPool1D{kernel: kernel, stride: stride, pad: pad}
}

func (p *MaxPool1D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 {
		return nil, fmt.Errorf("maxpool: input must be [batch, channels, length], got shape %v", input.Shape)
	}
	batch, channels, inLen := input.Shape[0], input.Shape[1], input.Shape[2]
	outLen := (inLen+2*p.pad-p.kernel)/p.stride + 1
	if outLen < 1 {
		return nil, fmt.Errorf("maxpool: input length %d too short for kernel %d", inLen, p.kernel)
	}

	out := tensor.New(batch, channels, outLen)
	p.argmax = make([]int, batch*channels*outLen)
	p.inShape = input.Shape

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			inBase := b*channels*inLen + c*inLen
			outBase := b*channels*outLen + c*outLen
			for o := 0; o < outLen; o++ {
				start := o*p.stride - p.pad
				best := math.Inf(-1)
				bestIdx := -1
				for k := 0; k < p.kernel; k++ {
					in := start + k
					if in < 0 || in >= inLen {
						continue
					}
					if v := input.Data[inBase+in]; v > best {
						best = v
						bestIdx = inBase + in
					}
				}
				out.Data[outBase+o] = best
				p.argmax[outBase+o] = bestIdx
			}
		}
	}
	return out, nil
}

func (p *MaxPool1D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if p.argmax == nil {
		return nil, fmt.Errorf("maxpool: no cached input for backward pass")
	}
	gradIn := tensor.New(p.inShape...)
	for i, g := range gradOut.Data {
		if idx := p.argmax[i]; idx >= 0 {
			gradIn.Data[idx] += g
		}
	}
	return gradIn, nil
}

func (p *MaxPool1D) Params() []*nn.Param { return nil }
func (p *MaxPool1D) SetMode(nn.Mode)     {}

// GlobalAvgPool1D collapses [B, C, L] to [B, C] by averaging over time.
type GlobalAvgPool1D struct {
	inShape []int
}

func NewGlobalAvgPool1D() *GlobalAvgPool1D { return &GlobalAvgPool1D{} }

func (p *GlobalAvgPool1D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 {
		return nil, fmt.Errorf("avgpool: input must be [batch, channels, length], got shape %v", input.Shape)
	}
	batch, channels, length := input.Shape[0], input.Shape[1], input.Shape[2]
	out := tensor.New(batch, channels)
	p.inShape = input.Shape
	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			base := b*channels*length + c*length
			sum := 0.0
			for i := 0; i < length; i++ {
				sum += input.Data[base+i]
			}
			out.Data[b*channels+c] = sum / float64(length)
		}
	}
	return out, nil
}

func (p *GlobalAvgPool1D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if p.inShape == nil {
		return nil, fmt.Errorf("avgpool: no cached input for backward pass")
	}
	batch, channels, length := p.inShape[0], p.inShape[1], p.inShape[2]
	gradIn := tensor.New(p.inShape...)
	inv := 1 / float64(length)
	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			g := gradOut.Data[b*channels+c] * inv
			base := b*channels*length + c*length
			for i := 0; i < length; i++ {
				gradIn.Data[base+i] = g
			}
		}
	}
	return gradIn, nil
}

func (p *GlobalAvgPool1D) Params() []*nn.Param { return nil }
func (p *GlobalAvgPool1D) SetMode(nn.Mode)     {}
