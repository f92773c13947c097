package nn

import "math"

// AdamW is an adaptive moment optimizer with decoupled weight decay. Moment
// buffers are keyed by parameter name and created lazily on the first step.
type AdamW struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64

	step int
	m    map[string][]float64
	v    map[string][]float64
}

// NewAdamW returns an AdamW with the usual moment defaults.
func NewAdamW(lr, weightDecay float64) *AdamW {
	return &AdamW{
		LR:          lr,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: weightDecay,
		m:           make(map[string][]float64),
		v:           make(map[string][]float64),
	}
}

// Step applies one update to every trainable parameter. Params with a nil
// Grad (tracked state such as running statistics) are left alone.
func (o *AdamW) Step(params []*Param) {
	o.step++
	c1 := 1 - math.Pow(o.Beta1, float64(o.step))
	c2 := 1 - math.Pow(o.Beta2, float64(o.step))

	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		m, ok := o.m[p.Name]
		if !ok {
			m = make([]float64, len(p.Data.Data))
			o.m[p.Name] = m
			o.v[p.Name] = make([]float64, len(p.Data.Data))
		}
		v := o.v[p.Name]

		for i, g := range p.Grad.Data {
			m[i] = o.Beta1*m[i] + (1-o.Beta1)*g
			v[i] = o.Beta2*v[i] + (1-o.Beta2)*g*g
			mhat := m[i] / c1
			vhat := v[i] / c2
			p.Data.Data[i] -= o.LR * (mhat/(math.Sqrt(vhat)+o.Eps) + o.WeightDecay*p.Data.Data[i])
		}
	}
}
