package layers

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// scalarLoss contracts a forward pass with fixed weights r so the module's
// output reduces to one differentiable number.
func scalarLoss(t *testing.T, m nn.Module, in *tensor.Tensor, r []float64) float64 {
	t.Helper()
	out, err := m.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out.Data) != len(r) {
		t.Fatalf("output has %d values, projection has %d", len(out.Data), len(r))
	}
	loss := 0.0
	for i, v := range out.Data {
		loss += v * r[i]
	}
	return loss
}

// checkInputGradient compares the module's backward pass against a central
// finite difference of the projected loss, element by element.
func checkInputGradient(t *testing.T, m nn.Module, in *tensor.Tensor, outSize int, tol float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	r := make([]float64, outSize)
	for i := range r {
		r[i] = rng.NormFloat64()
	}

	out, err := m.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out.Data) != outSize {
		t.Fatalf("expected %d outputs, got %d", outSize, len(out.Data))
	}
	gradOut := tensor.New(out.Shape...)
	copy(gradOut.Data, r)
	analytic, err := m.Backward(gradOut)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}

	const eps = 1e-5
	for i := range in.Data {
		orig := in.Data[i]
		in.Data[i] = orig + eps
		plus := scalarLoss(t, m, in, r)
		in.Data[i] = orig - eps
		minus := scalarLoss(t, m, in, r)
		in.Data[i] = orig

		numeric := (plus - minus) / (2 * eps)
		if diff := math.Abs(numeric - analytic.Data[i]); diff > tol {
			t.Fatalf("input grad %d: analytic %.6f, numeric %.6f (diff %.2e)", i, analytic.Data[i], numeric, diff)
		}
	}
}

func randomInput(shape ...int) *tensor.Tensor {
	rng := rand.New(rand.NewSource(11))
	in := tensor.New(shape...)
	for i := range in.Data {
		// Keep values away from the ReLU kink so finite differences stay smooth.
		v := rng.NormFloat64()
		if math.Abs(v) < 0.05 {
			v += 0.1
		}
		in.Data[i] = v
	}
	return in
}

func TestConv1DGradient(t *testing.T) {
	conv := NewConv1D("conv", 2, 3, 3, 2, 1)
	in := randomInput(2, 2, 8)
	// L = 8, pad 1, kernel 3, stride 2 -> Lout 4; output 2*3*4.
	checkInputGradient(t, conv, in, 24, 1e-6)
}

func TestConv1DOutputShape(t *testing.T) {
	conv := NewConv1D("conv", 4, 16, 7, 2, 3)
	out, err := conv.Forward(tensor.New(1, 4, 100))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.Shape[0] != 1 || out.Shape[1] != 16 || out.Shape[2] != 50 {
		t.Fatalf("unexpected output shape: %v", out.Shape)
	}
}

func TestConv1DRejectsWrongChannels(t *testing.T) {
	conv := NewConv1D("conv", 4, 8, 3, 1, 1)
	if _, err := conv.Forward(tensor.New(1, 3, 20)); err == nil {
		t.Fatal("expected channel mismatch error")
	}
}

func TestConv1DWeightGradient(t *testing.T) {
	conv := NewConv1D("conv", 1, 1, 3, 1, 1)
	in := randomInput(1, 1, 6)
	rng := rand.New(rand.NewSource(7))
	r := make([]float64, 6)
	for i := range r {
		r[i] = rng.NormFloat64()
	}

	out, err := conv.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	gradOut := tensor.New(out.Shape...)
	copy(gradOut.Data, r)
	if _, err := conv.Backward(gradOut); err != nil {
		t.Fatalf("backward: %v", err)
	}

	const eps = 1e-5
	for i := range conv.W.Data {
		orig := conv.W.Data[i]
		conv.W.Data[i] = orig + eps
		plus := scalarLoss(t, conv, in, r)
		conv.W.Data[i] = orig - eps
		minus := scalarLoss(t, conv, in, r)
		conv.W.Data[i] = orig

		numeric := (plus - minus) / (2 * eps)
		if diff := math.Abs(numeric - conv.gradW.Data[i]); diff > 1e-6 {
			t.Fatalf("weight grad %d: analytic %.6f, numeric %.6f", i, conv.gradW.Data[i], numeric)
		}
	}
}

func TestLinearGradient(t *testing.T) {
	lin := NewLinear("fc", 5, 4)
	in := randomInput(3, 5)
	checkInputGradient(t, lin, in, 12, 1e-6)
}

func TestBatchNorm1DGradient(t *testing.T) {
	bn := NewBatchNorm1D("bn", 3)
	bn.SetMode(nn.Train)
	// Nudge scale and shift off the identity so the gradient exercises both.
	for c := 0; c < 3; c++ {
		bn.gamma.Data[c] = 1.3
		bn.beta.Data[c] = -0.2
	}
	in := randomInput(2, 3, 4)
	checkInputGradient(t, bn, in, 24, 1e-5)
}

func TestBatchNorm1DEvalIsDeterministic(t *testing.T) {
	bn := NewBatchNorm1D("bn", 2)
	bn.SetMode(nn.Train)
	if _, err := bn.Forward(randomInput(4, 2, 8)); err != nil {
		t.Fatalf("train forward: %v", err)
	}

	bn.SetMode(nn.Eval)
	in := randomInput(2, 2, 5)
	a, err := bn.Forward(in)
	if err != nil {
		t.Fatalf("eval forward: %v", err)
	}
	b, err := bn.Forward(in)
	if err != nil {
		t.Fatalf("eval forward: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("eval output changed between identical calls at %d", i)
		}
	}
}

func TestBatchNorm1DTrainNormalizes(t *testing.T) {
	bn := NewBatchNorm1D("bn", 1)
	bn.SetMode(nn.Train)
	in := tensor.New(2, 1, 4)
	for i := range in.Data {
		in.Data[i] = float64(i)*2 + 5
	}
	out, err := bn.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	mean, sq := 0.0, 0.0
	for _, v := range out.Data {
		mean += v
	}
	mean /= float64(len(out.Data))
	for _, v := range out.Data {
		sq += (v - mean) * (v - mean)
	}
	variance := sq / float64(len(out.Data))
	if math.Abs(mean) > 1e-9 {
		t.Fatalf("normalized mean = %g, want ~0", mean)
	}
	if math.Abs(variance-1) > 1e-3 {
		t.Fatalf("normalized variance = %g, want ~1", variance)
	}
}

func TestSEGateGradient(t *testing.T) {
	se := NewSEGate("se", 4, 2)
	in := randomInput(2, 4, 6)
	checkInputGradient(t, se, in, 48, 1e-5)
}

func TestSEGateOutputBounded(t *testing.T) {
	se := NewSEGate("se", 4, 4)
	in := randomInput(1, 4, 10)
	out, err := se.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	// The gate is in (0, 1), so every output has the input's sign and no
	// larger magnitude.
	for i := range out.Data {
		if math.Abs(out.Data[i]) > math.Abs(in.Data[i]) {
			t.Fatalf("gate amplified value at %d: in %g, out %g", i, in.Data[i], out.Data[i])
		}
		if in.Data[i]*out.Data[i] < 0 {
			t.Fatalf("gate flipped sign at %d: in %g, out %g", i, in.Data[i], out.Data[i])
		}
	}
}

func TestResidualSEBlockGradient(t *testing.T) {
	blk := NewResidualSEBlock("blk", 2, 4, 2, 0)
	blk.SetMode(nn.Train)
	in := randomInput(2, 2, 8)
	// stride 2 on 8 samples -> length 4; output 2*4*4.
	checkInputGradient(t, blk, in, 32, 1e-4)
}

func TestResidualSEBlockIdentitySkipShapes(t *testing.T) {
	blk := NewResidualSEBlock("blk", 16, 16, 1, 0)
	blk.SetMode(nn.Train)
	out, err := blk.Forward(randomInput(2, 16, 20))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.Shape[0] != 2 || out.Shape[1] != 16 || out.Shape[2] != 20 {
		t.Fatalf("identity-skip block changed shape: %v", out.Shape)
	}
	if blk.proj != nil {
		t.Fatal("identity-skip block should not build a projection")
	}
}

func TestResidualSEBlockProjectedSkip(t *testing.T) {
	blk := NewResidualSEBlock("blk", 16, 32, 2, 0)
	if blk.proj == nil {
		t.Fatal("channel/stride change requires a projected skip")
	}
	blk.SetMode(nn.Train)
	out, err := blk.Forward(randomInput(2, 16, 20))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.Shape[0] != 2 || out.Shape[1] != 32 || out.Shape[2] != 10 {
		t.Fatalf("unexpected output shape: %v", out.Shape)
	}
}
