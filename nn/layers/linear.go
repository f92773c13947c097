package layers

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Linear is a fully-connected layer over [B, in] input.
type Linear struct {
	inDim, outDim int

	W *tensor.Tensor // [outDim, inDim]
	B *tensor.Tensor // [outDim]

	gradW *tensor.Tensor
	gradB *tensor.Tensor

	lastInput *tensor.Tensor
	name      string
}

// NewLinear creates a Linear layer with He-initialized weights.
func NewLinear(name string, inDim, outDim int) *Linear {
	l := &Linear{
		inDim:  inDim,
		outDim: outDim,
		W:      tensor.New(outDim, inDim),
		B:      tensor.New(outDim),
		gradW:  tensor.New(outDim, inDim),
		gradB:  tensor.New(outDim),
		name:   name,
	}
	scale := math.Sqrt(2.0 / float64(inDim))
	for i := range l.W.Data {
		l.W.Data[i] = rand.NormFloat64() * scale
	}
	return l
}

// Forward computes y = x W^T + b for a [B, in] batch.
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 || input.Shape[1] != l.inDim {
		return nil, fmt.Errorf("%s: expected [batch, %d] input, got shape %v", l.name, l.inDim, input.Shape)
	}
	batch := input.Shape[0]
	l.lastInput = input

	out := tensor.New(batch, l.outDim)
	x := mat.NewDense(batch, l.inDim, input.Data)
	w := mat.NewDense(l.outDim, l.inDim, l.W.Data)
	y := mat.NewDense(batch, l.outDim, out.Data)
	y.Mul(x, w.T())
	for b := 0; b < batch; b++ {
		for j := 0; j < l.outDim; j++ {
			out.Data[b*l.outDim+j] += l.B.Data[j]
		}
	}
	return out, nil
}

// Backward computes gradW = g^T x, gradB = column sums of g, and returns
// gradIn = g W.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", l.name)
	}
	batch := gradOut.Shape[0]

	g := mat.NewDense(batch, l.outDim, gradOut.Data)
	x := mat.NewDense(batch, l.inDim, l.lastInput.Data)
	w := mat.NewDense(l.outDim, l.inDim, l.W.Data)

	gw := mat.NewDense(l.outDim, l.inDim, l.gradW.Data)
	gw.Mul(g.T(), x)

	l.gradB.Zero()
	for b := 0; b < batch; b++ {
		for j := 0; j < l.outDim; j++ {
			l.gradB.Data[j] += gradOut.Data[b*l.outDim+j]
		}
	}

	gradIn := tensor.New(batch, l.inDim)
	gi := mat.NewDense(batch, l.inDim, gradIn.Data)
	gi.Mul(g, w)
	return gradIn, nil
}

func (l *Linear) Params() []*nn.Param {
	return []*nn.Param{
		{Name: l.name + ".weight", Data: l.W, Grad: l.gradW},
		{Name: l.name + ".bias", Data: l.B, Grad: l.gradB},
	}
}

func (l *Linear) SetMode(nn.Mode) {}
