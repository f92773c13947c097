package nn

import (
	"math"
	"testing"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

func TestSoftmaxRowsSumToOne(t *testing.T) {
	logits := tensor.New(3, 4)
	copy(logits.Data, []float64{1, 2, 3, 4, -10, 0, 10, 5, 100, 100, 100, 100})
	probs := Softmax(logits)
	for b := 0; b < 3; b++ {
		sum := 0.0
		for c := 0; c < 4; c++ {
			p := probs.Data[b*4+c]
			if p < 0 || p > 1 {
				t.Fatalf("prob out of range: %g", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("row %d sums to %g", b, sum)
		}
	}
}

func TestSoftmaxLargeLogitsStable(t *testing.T) {
	logits := tensor.New(1, 3)
	copy(logits.Data, []float64{1000, 999, 998})
	probs := Softmax(logits)
	for _, p := range probs.Data {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("softmax overflowed: %v", probs.Data)
		}
	}
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	const classes = 10
	logits := tensor.New(4, classes)
	var loss SoftmaxCrossEntropy
	got, err := loss.Forward(logits, []int{0, 3, 5, 9})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	want := math.Log(classes)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("uniform loss = %g, want ln(%d) = %g", got, classes, want)
	}
}

func TestCrossEntropyGradient(t *testing.T) {
	logits := tensor.New(2, 3)
	copy(logits.Data, []float64{2, 1, 0.5, -1, 0, 1})
	labels := []int{0, 2}

	var loss SoftmaxCrossEntropy
	if _, err := loss.Forward(logits, labels); err != nil {
		t.Fatalf("forward: %v", err)
	}
	grad := loss.Backward()

	// Each row of the gradient sums to zero: softmax mass minus one-hot.
	for b := 0; b < 2; b++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			sum += grad.Data[b*3+c]
		}
		if math.Abs(sum) > 1e-12 {
			t.Fatalf("grad row %d sums to %g", b, sum)
		}
	}

	// Finite-difference check on every logit.
	const eps = 1e-6
	for i := range logits.Data {
		var l SoftmaxCrossEntropy
		orig := logits.Data[i]
		logits.Data[i] = orig + eps
		plus, _ := l.Forward(logits, labels)
		logits.Data[i] = orig - eps
		minus, _ := l.Forward(logits, labels)
		logits.Data[i] = orig

		numeric := (plus - minus) / (2 * eps)
		if math.Abs(numeric-grad.Data[i]) > 1e-6 {
			t.Fatalf("grad[%d]: analytic %g, numeric %g", i, grad.Data[i], numeric)
		}
	}
}

func TestCrossEntropyRejectsBadLabel(t *testing.T) {
	logits := tensor.New(1, 3)
	var loss SoftmaxCrossEntropy
	if _, err := loss.Forward(logits, []int{3}); err == nil {
		t.Fatal("expected out-of-range class error")
	}
	if _, err := loss.Forward(logits, []int{0, 1}); err == nil {
		t.Fatal("expected label/batch mismatch error")
	}
}

func TestArgmax(t *testing.T) {
	logits := tensor.New(2, 4)
	copy(logits.Data, []float64{0.1, 0.9, 0.3, 0.2, -5, -1, -3, -2})
	preds := Argmax(logits)
	if preds[0] != 1 || preds[1] != 1 {
		t.Fatalf("preds = %v, want [1 1]", preds)
	}
}
