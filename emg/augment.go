package emg

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tcy21414/Wireless-Multi-channel-EMG-on-Headphone-for-Silent-Speech/tensor"
)

// Augmenter applies three independent stochastic transforms to a window, each
// with probability 0.5, always in the order shift -> noise -> scale/offset.
// Every call re-draws all random parameters. The stored original is never
// mutated.
type Augmenter struct {
	MaxShift   int     // time shift drawn from [-MaxShift, +MaxShift]
	NoiseLevel float64 // noise std as a fraction of the window std
	ScaleLow   float64
	ScaleHigh  float64
	OffsetLow  float64
	OffsetHigh float64

	rng *rand.Rand
}

// minStd guards the noise transform against zero-variance windows.
const minStd = 1e-6

// NewAugmenter returns an Augmenter with the reference transform bounds,
// seeded so repeated runs are reproducible.
func NewAugmenter(seed uint64) *Augmenter {
	return &Augmenter{
		MaxShift:   100,
		NoiseLevel: 0.02,
		ScaleLow:   0.9,
		ScaleHigh:  1.1,
		OffsetLow:  -0.1,
		OffsetHigh: 0.1,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Apply returns a transformed copy of w.
func (a *Augmenter) Apply(w *tensor.Tensor) *tensor.Tensor {
	out := w.Clone()
	if a.rng.Float64() < 0.5 {
		shift := a.rng.Intn(2*a.MaxShift+1) - a.MaxShift
		out = timeShift(out, shift)
	}
	if a.rng.Float64() < 0.5 {
		a.addNoise(out)
	}
	if a.rng.Float64() < 0.5 {
		scale := a.ScaleLow + a.rng.Float64()*(a.ScaleHigh-a.ScaleLow)
		offset := a.OffsetLow + a.rng.Float64()*(a.OffsetHigh-a.OffsetLow)
		scaleOffset(out, scale, offset)
	}
	return out
}

// timeShift moves all channels together by shift samples along the time axis.
// Vacated positions are zero-filled; nothing wraps around. shift == 0 returns
// w unchanged; a shift of the window length or more leaves no samples behind.
func timeShift(w *tensor.Tensor, shift int) *tensor.Tensor {
	if shift == 0 {
		return w
	}
	channels, n := w.Shape[0], w.Shape[1]
	out := tensor.New(w.Shape...)
	if shift >= n || shift <= -n {
		return out
	}
	for c := 0; c < channels; c++ {
		src := w.Data[c*n : (c+1)*n]
		dst := out.Data[c*n : (c+1)*n]
		if shift > 0 {
			copy(dst[shift:], src[:n-shift])
		} else {
			copy(dst[:n+shift], src[-shift:])
		}
	}
	return out
}

// addNoise adds per-sample Gaussian noise with std proportional to the
// window's overall std, substituting 1.0 when the window is (near) constant.
func (a *Augmenter) addNoise(w *tensor.Tensor) {
	std := stat.PopStdDev(w.Data, nil)
	if std < minStd {
		std = 1.0
	}
	n := distuv.Normal{Mu: 0, Sigma: std * a.NoiseLevel, Src: a.rng}
	for i := range w.Data {
		w.Data[i] += n.Rand()
	}
}

// scaleOffset applies the same scalar gain and offset to the whole window.
func scaleOffset(w *tensor.Tensor, scale, offset float64) {
	for i := range w.Data {
		w.Data[i] = w.Data[i]*scale + offset
	}
}
