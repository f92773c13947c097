// Package dsp provides the signal conditioning applied to raw EMG channels
// before they enter the classifier: Butterworth bandpass design and a
// zero-phase forward-backward application so filtered samples stay
// time-aligned with the raw recording.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Bandpass filters x through an order-n Butterworth bandpass with cutoffs
// lowcut..highcut (Hz) at sampling rate fs, applied forward and backward so
// the output has zero net phase shift. The output has the same length as x.
//
// The signal must be longer than three times the filter length; shorter
// inputs would not cover the filter's settling region and are rejected.
func Bandpass(x []float64, lowcut, highcut, fs float64, order int) ([]float64, error) {
	b, a, err := butterBandpass(order, lowcut, highcut, fs)
	if err != nil {
		return nil, err
	}
	return filtfilt(b, a, x)
}

// butterBandpass designs digital bandpass coefficients via the analog
// Butterworth prototype, lowpass-to-bandpass transform, and bilinear
// transform with frequency prewarping. a[0] is normalized to 1.
func butterBandpass(order int, lowcut, highcut, fs float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("dsp: filter order must be >= 1, got %d", order)
	}
	nyq := fs / 2
	if !(0 < lowcut && lowcut < highcut && highcut < nyq) {
		return nil, nil, fmt.Errorf("dsp: cutoffs must satisfy 0 < lowcut < highcut < fs/2, got lowcut=%g highcut=%g fs=%g", lowcut, highcut, fs)
	}

	// Analog lowpass prototype: poles on the left unit semicircle, no zeros.
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		m := float64(-order + 1 + 2*k)
		poles[k] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}
	gain := 1.0

	// Prewarp the band edges for the bilinear transform.
	w1 := 2 * fs * math.Tan(math.Pi*lowcut/fs)
	w2 := 2 * fs * math.Tan(math.Pi*highcut/fs)
	bw := w2 - w1
	w0 := math.Sqrt(w1 * w2)

	// Lowpass -> bandpass: each prototype pole splits into a conjugate pair
	// around the center frequency; order zeros appear at s=0.
	bpPoles := make([]complex128, 0, 2*order)
	for _, p := range poles {
		ps := p * complex(bw/2, 0)
		d := cmplx.Sqrt(ps*ps - complex(w0*w0, 0))
		bpPoles = append(bpPoles, ps+d, ps-d)
	}
	bpZeros := make([]complex128, order) // all at s = 0
	gain *= math.Pow(bw, float64(order))

	// Bilinear transform s -> 2*fs*(z-1)/(z+1).
	fs2 := complex(2*fs, 0)
	zZeros := make([]complex128, 0, 2*order)
	zPoles := make([]complex128, 0, 2*order)
	num := complex(1, 0)
	den := complex(1, 0)
	for _, z := range bpZeros {
		zZeros = append(zZeros, (fs2+z)/(fs2-z))
		num *= fs2 - z
	}
	for _, p := range bpPoles {
		zPoles = append(zPoles, (fs2+p)/(fs2-p))
		den *= fs2 - p
	}
	// Degree deficit of the numerator maps to zeros at z = -1.
	for len(zZeros) < len(zPoles) {
		zZeros = append(zZeros, -1)
	}
	gain *= real(num / den)

	b = polyFromRoots(zZeros)
	for i := range b {
		b[i] *= gain
	}
	a = polyFromRoots(zPoles)
	return b, a, nil
}

// polyFromRoots expands prod(x - r_i) into real coefficients, highest order
// first. Complex roots are assumed to come in conjugate pairs.
func polyFromRoots(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

// lfilter runs a direct-form II transposed IIR filter over x with initial
// state zi (length len(a)-1). a[0] must be 1.
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(a)
	z := append([]float64(nil), zi...)
	y := make([]float64, len(x))
	for i, xv := range x {
		yv := b[0]*xv + z[0]
		for j := 1; j < n-1; j++ {
			z[j-1] = b[j]*xv + z[j] - a[j]*yv
		}
		z[n-2] = b[n-1]*xv - a[n-1]*yv
		y[i] = yv
	}
	return y
}

// lfilterZi computes the steady-state initial filter delay values for a unit
// step input, by solving (I - companion(a)^T) zi = b[1:] - a[1:]*b[0].
func lfilterZi(b, a []float64) []float64 {
	n := len(a)
	m := n - 1
	im := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			// companion(a)[j][i], transposed
			var c float64
			if j == 0 {
				c = -a[i+1]
			} else if i == j-1 {
				c = 1
			}
			v := -c
			if i == j {
				v++
			}
			im.Set(i, j, v)
		}
	}
	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}
	var zi mat.VecDense
	if err := zi.SolveVec(im, rhs); err != nil {
		// A singular system means the designed filter is itself degenerate.
		panic(fmt.Sprintf("dsp: cannot compute initial filter state: %v", err))
	}
	out := make([]float64, m)
	for i := 0; i < m; i++ {
		out[i] = zi.AtVec(i)
	}
	return out
}

// filtfilt applies the filter forward then backward over x with odd
// reflection padding at both ends, cancelling the filter's phase response.
func filtfilt(b, a, x []float64) ([]float64, error) {
	ntaps := len(a)
	if len(b) > ntaps {
		ntaps = len(b)
	}
	// Pad b and a to equal length for the direct-form loop.
	bp := append(append([]float64(nil), b...), make([]float64, ntaps-len(b))...)
	ap := append(append([]float64(nil), a...), make([]float64, ntaps-len(a))...)

	edge := 3 * ntaps
	if len(x) <= edge {
		return nil, fmt.Errorf("dsp: signal length %d too short for zero-phase filtering, need more than %d samples", len(x), edge)
	}

	// Odd extension on both ends keeps the signal continuous in value and
	// slope across the boundary.
	ext := make([]float64, 0, len(x)+2*edge)
	for i := edge; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= edge; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	zi := lfilterZi(bp, ap)
	state := make([]float64, len(zi))

	for i := range zi {
		state[i] = zi[i] * ext[0]
	}
	y := lfilter(bp, ap, ext, state)

	reverse(y)
	for i := range zi {
		state[i] = zi[i] * y[0]
	}
	y = lfilter(bp, ap, y, state)
	reverse(y)

	return y[edge : edge+len(x)], nil
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
