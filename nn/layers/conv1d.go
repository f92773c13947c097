// Package layers contains the building blocks of the classifier: strided 1-D
// convolution, batch normalization, pooling, dropout, fully-connected,
// squeeze-and-excitation gating and the residual block composing them.
package layers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Conv1D is a strided, zero-padded 1-D convolution over [B, C, L] input.
type Conv1D struct {
	inChan, outChan, kernel, stride, pad int

	W *tensor.Tensor // [outChan, inChan, kernel]
	B *tensor.Tensor // [outChan]

	gradW *tensor.Tensor
	gradB *tensor.Tensor

	lastInput *tensor.Tensor
	name      string
}

// NewConv1D creates a Conv1D with He-initialized weights.
func NewConv1D(name string, inChan, outChan, kernel, stride, pad int) *Conv1D {
	c := &Conv1D{
		inChan:  inChan,
		outChan: outChan,
		kernel:  kernel,
		stride:  stride,
		pad:     pad,
		W:       tensor.New(outChan, inChan, kernel),
		B:       tensor.New(outChan),
		gradW:   tensor.New(outChan, inChan, kernel),
		gradB:   tensor.New(outChan),
		name:    name,
	}
	scale := math.Sqrt(2.0 / float64(inChan*kernel))
	for i := range c.W.Data {
		c.W.Data[i] = rand.NormFloat64() * scale
	}
	return c
}

func (c *Conv1D) outLen(in int) int {
	return (in+2*c.pad-c.kernel)/c.stride + 1
}

// Forward computes [B, outChan, Lout] with Lout = (L + 2*pad - kernel)/stride + 1.
func (c *Conv1D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 {
		return nil, fmt.Errorf("%s: input must be [batch, channels, length], got shape %v", c.name, input.Shape)
	}
	batch, inChan, inLen := input.Shape[0], input.Shape[1], input.Shape[2]
	if inChan != c.inChan {
		return nil, fmt.Errorf("%s: expected %d input channels, got %d", c.name, c.inChan, inChan)
	}
	if inLen+2*c.pad < c.kernel {
		return nil, fmt.Errorf("%s: input length %d too short for kernel %d with pad %d", c.name, inLen, c.kernel, c.pad)
	}

	outLen := c.outLen(inLen)
	output := tensor.New(batch, c.outChan, outLen)
	c.lastInput = input

	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.outChan; oc++ {
			outBase := b*c.outChan*outLen + oc*outLen
			for o := 0; o < outLen; o++ {
				sum := c.B.Data[oc]
				start := o*c.stride - c.pad
				for ic := 0; ic < c.inChan; ic++ {
					inBase := b*c.inChan*inLen + ic*inLen
					wBase := oc*c.inChan*c.kernel + ic*c.kernel
					for k := 0; k < c.kernel; k++ {
						in := start + k
						if in < 0 || in >= inLen {
							continue
						}
						sum += input.Data[inBase+in] * c.W.Data[wBase+k]
					}
				}
				output.Data[outBase+o] = sum
			}
		}
	}
	return output, nil
}

// Backward accumulates weight and bias gradients and returns the input
// gradient. Parameter gradients are zeroed at the start of each call; the
// optimizer consumes them once per batch.
func (c *Conv1D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastInput == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", c.name)
	}
	batch, inLen := c.lastInput.Shape[0], c.lastInput.Shape[2]
	outLen := gradOut.Shape[2]

	c.gradW.Zero()
	c.gradB.Zero()
	gradIn := tensor.New(c.lastInput.Shape...)

	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.outChan; oc++ {
			gradBase := b*c.outChan*outLen + oc*outLen
			for o := 0; o < outLen; o++ {
				g := gradOut.Data[gradBase+o]
				c.gradB.Data[oc] += g
				start := o*c.stride - c.pad
				for ic := 0; ic < c.inChan; ic++ {
					inBase := b*c.inChan*inLen + ic*inLen
					wBase := oc*c.inChan*c.kernel + ic*c.kernel
					for k := 0; k < c.kernel; k++ {
						in := start + k
						if in < 0 || in >= inLen {
							continue
						}
						c.gradW.Data[wBase+k] += c.lastInput.Data[inBase+in] * g
						gradIn.Data[inBase+in] += c.W.Data[wBase+k] * g
					}
				}
			}
		}
	}
	return gradIn, nil
}

func (c *Conv1D) Params() []*nn.Param {
	return []*nn.Param{
		{Name: c.name + ".weight", Data: c.W, Grad: c.gradW},
		{Name: c.name + ".bias", Data: c.B, Grad: c.gradB},
	}
}

func (c *Conv1D) SetMode(nn.Mode) {}
