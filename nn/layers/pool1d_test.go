package layers

import (
	"math"
	"testing"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/nn"
	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

func TestMaxPool1DForward(t *testing.T) {
	p := NewMaxPool1D(3, 2, 1)
	in := tensor.New(1, 1, 6)
	copy(in.Data, []float64{1, 5, 2, 8, 3, 4})
	out, err := p.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.Shape[2] != 3 {
		t.Fatalf("unexpected output length: %v", out.Shape)
	}
	want := []float64{5, 8, 8}
	for i, w := range want {
		if out.Data[i] != w {
			t.Fatalf("out[%d] = %g, want %g", i, out.Data[i], w)
		}
	}
}

func TestMaxPool1DPaddingNeverWins(t *testing.T) {
	// All-negative input: zero padding must not beat real samples.
	p := NewMaxPool1D(3, 2, 1)
	in := tensor.New(1, 1, 6)
	copy(in.Data, []float64{-1, -5, -2, -8, -3, -4})
	out, err := p.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for i, v := range out.Data {
		if v >= 0 {
			t.Fatalf("out[%d] = %g, padding won over negative samples", i, v)
		}
	}
}

func TestMaxPool1DBackwardRoutesToArgmax(t *testing.T) {
	p := NewMaxPool1D(2, 2, 0)
	in := tensor.New(1, 1, 4)
	copy(in.Data, []float64{1, 3, 7, 2})
	if _, err := p.Forward(in); err != nil {
		t.Fatalf("forward: %v", err)
	}
	grad := tensor.New(1, 1, 2)
	copy(grad.Data, []float64{10, 20})
	gi, err := p.Backward(grad)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	want := []float64{0, 10, 20, 0}
	for i, w := range want {
		if gi.Data[i] != w {
			t.Fatalf("gradIn[%d] = %g, want %g", i, gi.Data[i], w)
		}
	}
}

func TestGlobalAvgPool1D(t *testing.T) {
	p := NewGlobalAvgPool1D()
	in := tensor.New(1, 2, 4)
	copy(in.Data, []float64{1, 2, 3, 4, 10, 20, 30, 40})
	out, err := p.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out.Shape) != 2 || out.Shape[0] != 1 || out.Shape[1] != 2 {
		t.Fatalf("unexpected output shape: %v", out.Shape)
	}
	if math.Abs(out.Data[0]-2.5) > 1e-12 || math.Abs(out.Data[1]-25) > 1e-12 {
		t.Fatalf("unexpected averages: %v", out.Data)
	}

	grad := tensor.New(1, 2)
	copy(grad.Data, []float64{4, 8})
	gi, err := p.Backward(grad)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	for i := 0; i < 4; i++ {
		if gi.Data[i] != 1 {
			t.Fatalf("gradIn[%d] = %g, want 1", i, gi.Data[i])
		}
	}
	for i := 4; i < 8; i++ {
		if gi.Data[i] != 2 {
			t.Fatalf("gradIn[%d] = %g, want 2", i, gi.Data[i])
		}
	}
}

func TestDropoutEvalIsIdentity(t *testing.T) {
	d := NewDropout(0.5)
	d.SetMode(nn.Eval)
	in := randomInput(2, 3, 4)
	out, err := d.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for i := range in.Data {
		if out.Data[i] != in.Data[i] {
			t.Fatalf("eval dropout modified value at %d", i)
		}
	}
}

func TestDropoutTrainScalesSurvivors(t *testing.T) {
	d := NewDropout(0.5)
	d.SetMode(nn.Train)
	in := tensor.New(1, 1, 1000)
	for i := range in.Data {
		in.Data[i] = 1
	}
	out, err := d.Forward(in)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	zeros := 0
	for _, v := range out.Data {
		switch v {
		case 0:
			zeros++
		case 2:
			// survivor scaled by 1/(1-p)
		default:
			t.Fatalf("unexpected dropout output %g", v)
		}
	}
	if zeros < 350 || zeros > 650 {
		t.Fatalf("dropped %d of 1000 at p=0.5", zeros)
	}
}
