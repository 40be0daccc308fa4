package filter

// Fade is a rate-limited scalar moving linearly between two bounds.
//
// Driven, it climbs toward Max at 1/duration per second; otherwise it falls
// toward Min at the same rate. The value is clamped after every step, so any
// elapsed time, however long, leaves it inside [Min, Max].
type Fade struct {
	value float64
	min   float64
	max   float64
	rate  float64
}

// NewFade returns a fade resting at min.
func NewFade(min, max, duration float64) *Fade {
	if max < min {
		min, max = max, min
	}
	rate := 0.0
	if duration > 0 {
		rate = 1 / duration
	}
	return &Fade{value: min, min: min, max: max, rate: rate}
}

// Step advances the fade by dt seconds. Negative dt is treated as zero.
func (f *Fade) Step(drive bool, dt float64) float64 {
	if dt < 0 {
		dt = 0
	}
	if drive {
		if f.value < f.max {
			f.value += f.rate * dt
		}
	} else if f.value > f.min {
		f.value -= f.rate * dt
	}
	f.value = clamp(f.value, f.min, f.max)
	return f.value
}

// Set places the fade at v, clamped to its bounds.
func (f *Fade) Set(v float64) { f.value = clamp(v, f.min, f.max) }

// Value returns the current fade value.
func (f *Fade) Value() float64 { return f.value }

// Bounds returns the fade's lower and upper limits.
func (f *Fade) Bounds() (min, max float64) { return f.min, f.max }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
