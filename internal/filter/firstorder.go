package filter

import "math"

// FirstOrder is an exponential low-pass filter.
//
// Update uses the fixed step the filter was built with; UpdateDt integrates an
// arbitrary elapsed time. Both coefficients stay in [0, 1) for dt >= 0, so the
// output never overshoots the input.
type FirstOrder struct {
	x  float64
	ts float64
	dt float64
	k  float64
}

// NewFirstOrder returns a filter starting at x0 with time constant ts and a
// nominal step dt (both seconds).
func NewFirstOrder(x0, ts, dt float64) *FirstOrder {
	f := &FirstOrder{x: x0, ts: ts, dt: dt}
	f.k = discreteGain(dt, ts)
	return f
}

// discreteGain is the bilinear-style gain (dt/ts)/(1+dt/ts).
func discreteGain(dt, ts float64) float64 {
	if ts <= 0 {
		return 1
	}
	if dt <= 0 {
		return 0
	}
	r := dt / ts
	return r / (1 + r)
}

// Update advances the filter by one nominal step toward x.
func (f *FirstOrder) Update(x float64) float64 {
	f.x += f.k * (x - f.x)
	return f.x
}

// UpdateDt advances the filter by dt seconds toward x.
// Negative dt is treated as zero.
func (f *FirstOrder) UpdateDt(x, dt float64) float64 {
	if dt <= 0 {
		return f.x
	}
	if f.ts <= 0 {
		f.x = x
		return f.x
	}
	f.x += (x - f.x) * (1 - math.Exp(-dt/f.ts))
	return f.x
}

// Reset forces the filter output to x.
func (f *FirstOrder) Reset(x float64) { f.x = x }

// Value returns the current output.
func (f *FirstOrder) Value() float64 { return f.x }
