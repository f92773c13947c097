package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// SoftmaxCrossEntropy computes mean cross-entropy over a batch of logits and
// keeps the softmax output for the backward pass.
type SoftmaxCrossEntropy struct {
	probs  *tensor.Tensor
	labels []int
}

// Forward takes logits [B, numClasses] and true class indices, returning the
// mean loss.
func (l *SoftmaxCrossEntropy) Forward(logits *tensor.Tensor, labels []int) (float64, error) {
	if len(logits.Shape) != 2 {
		return 0, fmt.Errorf("loss expects [batch, classes] logits, got shape %v", logits.Shape)
	}
	batch, classes := logits.Shape[0], logits.Shape[1]
	if len(labels) != batch {
		return 0, fmt.Errorf("loss: %d labels for batch of %d", len(labels), batch)
	}
	l.probs = Softmax(logits)
	l.labels = append(l.labels[:0], labels...)

	loss := 0.0
	for b := 0; b < batch; b++ {
		cls := labels[b]
		if cls < 0 || cls >= classes {
			return 0, fmt.Errorf("loss: class %d out of range [0,%d)", cls, classes)
		}
		p := l.probs.Data[b*classes+cls]
		if p < 1e-10 {
			p = 1e-10
		}
		loss -= math.Log(p)
	}
	return loss / float64(batch), nil
}

// Backward returns the gradient of the mean loss with respect to the logits:
// (softmax - onehot) / batch.
func (l *SoftmaxCrossEntropy) Backward() *tensor.Tensor {
	batch, classes := l.probs.Shape[0], l.probs.Shape[1]
	grad := l.probs.Clone()
	for b := 0; b < batch; b++ {
		grad.Data[b*classes+l.labels[b]] -= 1
	}
	inv := 1 / float64(batch)
	for i := range grad.Data {
		grad.Data[i] *= inv
	}
	return grad
}

// Softmax applies a numerically stable row-wise softmax to [B, C] logits.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	batch, classes := logits.Shape[0], logits.Shape[1]
	out := tensor.New(batch, classes)
	for b := 0; b < batch; b++ {
		row := logits.Data[b*classes : (b+1)*classes]
		dst := out.Data[b*classes : (b+1)*classes]
		max := floats.Max(row)
		sum := 0.0
		for i, v := range row {
			e := math.Exp(v - max)
			dst[i] = e
			sum += e
		}
		for i := range dst {
			dst[i] /= sum
		}
	}
	return out
}

// Argmax returns the predicted class per row of [B, C] logits.
func Argmax(logits *tensor.Tensor) []int {
	batch, classes := logits.Shape[0], logits.Shape[1]
	out := make([]int, batch)
	for b := 0; b < batch; b++ {
		out[b] = floats.MaxIdx(logits.Data[b*classes : (b+1)*classes])
	}
	return out
}
