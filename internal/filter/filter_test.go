package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstOrder_ConvergesWithoutOvershoot(t *testing.T) {
	f := NewFirstOrder(75, 10, 0.05)
	prev := f.Value()
	for i := 0; i < 20000; i++ {
		y := f.Update(10)
		if y > prev || y < 10 {
			t.Fatalf("step %d: y=%f prev=%f, want monotone decrease toward 10", i, y, prev)
		}
		prev = y
	}
	assert.InDelta(t, 10, f.Value(), 1e-6)
}

func TestFirstOrder_DiscreteGain(t *testing.T) {
	f := NewFirstOrder(0, 10, 0.05)
	k := (0.05 / 10) / (1 + 0.05/10)
	assert.InDelta(t, k*100, f.Update(100), 1e-12)
}

func TestFirstOrder_UpdateDtStableForAnyDt(t *testing.T) {
	for _, dt := range []float64{-1, 0, 1e-9, 0.05, 1, 1e3, 1e12, math.Inf(1)} {
		f := NewFirstOrder(0, 2, 0.05)
		y := f.UpdateDt(1, dt)
		require.Falsef(t, math.IsNaN(y), "dt=%v produced NaN", dt)
		assert.GreaterOrEqualf(t, y, 0.0, "dt=%v", dt)
		assert.LessOrEqualf(t, y, 1.0, "dt=%v", dt)
	}
}

func TestFirstOrder_Reset(t *testing.T) {
	f := NewFirstOrder(75, 10, 0.05)
	f.Update(0)
	f.Reset(42)
	assert.Equal(t, 42.0, f.Value())
}

func TestFade_StaysInBounds(t *testing.T) {
	cases := []struct {
		name     string
		min, max float64
	}{
		{"brake", 0, 1},
		{"assist", -1, 1},
	}
	dts := []float64{0, 0.01, 0.3, 5, 1e9, -3}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFade(tc.min, tc.max, 0.3)
			for i, dt := range dts {
				for _, drive := range []bool{true, false, true} {
					v := f.Step(drive, dt)
					if v < tc.min || v > tc.max {
						t.Fatalf("step %d dt=%v drive=%v: %v outside [%v,%v]", i, dt, drive, v, tc.min, tc.max)
					}
				}
			}
		})
	}
}

func TestFade_Rate(t *testing.T) {
	f := NewFade(0, 1, 0.3)
	assert.InDelta(t, 0.1/0.3, f.Step(true, 0.1), 1e-12)
	assert.Equal(t, 1.0, f.Step(true, 1))
	assert.InDelta(t, 1-0.15/0.3, f.Step(false, 0.15), 1e-12)
	assert.Equal(t, 0.0, f.Step(false, 10))
}

func TestFade_NegativeDtIsNoop(t *testing.T) {
	f := NewFade(-1, 1, 0.3)
	f.Set(0.25)
	assert.Equal(t, 0.25, f.Step(true, -1))
	assert.Equal(t, 0.25, f.Step(false, -1))
}

func TestRollingGrade_WarmUpThenMean(t *testing.T) {
	r := NewRollingGrade(5)
	alts := []float64{0, 1, 2, 3, 4}
	pos := []float64{0, 10, 20, 30, 40}

	for i := 0; i < 4; i++ {
		r.Add(pos[i], alts[i])
		_, ok := r.Mean()
		require.False(t, ok, "mean published during warm-up")
		assert.Equal(t, i+1, r.Len())
	}
	r.Add(pos[4], alts[4])

	m, ok := r.Mean()
	require.True(t, ok)

	// Every wrap-around pair climbs 1 m per 10 m, including 40 -> 0.
	assert.InDelta(t, 10.0, m, 1e-9)
	assert.InDelta(t, r.Recompute(), m, 1e-9)
}

func TestRollingGrade_IncrementalMatchesRecompute(t *testing.T) {
	r := NewRollingGrade(5)
	for i := 0; i < 5; i++ {
		r.Add(float64(i*10), float64(i))
	}

	r.Add(50, 7)
	m, _ := r.Mean()
	assert.InDelta(t, r.Recompute(), m, 1e-9)

	// A long, irregular sequence keeps the running mean on the exact mean.
	x := 50.0
	for i := 0; i < 500; i++ {
		x += 3 + float64(i%7)
		r.Add(x, math.Sin(float64(i))*5)
		m, _ = r.Mean()
		if d := math.Abs(m - r.Recompute()); d > 1e-6 {
			t.Fatalf("sample %d: running mean %v drifted from %v by %v", i, m, r.Recompute(), d)
		}
	}
}

func TestRollingGrade_ZeroRunSkipped(t *testing.T) {
	r := NewRollingGrade(3)
	r.Add(10, 1)
	r.Add(10, 5)
	r.Add(20, 6)

	m, ok := r.Mean()
	require.True(t, ok)
	require.False(t, math.IsNaN(m) || math.IsInf(m, 0))

	// pairs: (10,1)-(10,5) run 0 -> 0; (10,5)-(20,6) -> 10%; (20,6)-(10,1) -> 50%
	assert.InDelta(t, 20.0, m, 1e-9)
}

func TestRollingGrade_Reset(t *testing.T) {
	r := NewRollingGrade(5)
	for i := 0; i < 7; i++ {
		r.Add(float64(i), float64(i))
	}
	r.Reset()
	m, ok := r.Mean()
	assert.False(t, ok)
	assert.Zero(t, m)
	assert.Zero(t, r.Len())
}

func TestGradeEstimator_SamplesByDistance(t *testing.T) {
	g := NewGradeEstimator(DefaultGradeSamples, 10)

	// 5 m/s for 1 s does not cross 10 m.
	assert.False(t, g.Update(5, 1, 0))
	assert.False(t, g.Update(5, 1, 0))
	assert.True(t, g.Update(5, 1, 1))
	assert.Equal(t, 1, g.Samples())

	// Stationary or reversing never records.
	assert.False(t, g.Update(0, 100, 0))
	assert.False(t, g.Update(-3, 100, 0))

	// Negative time is ignored.
	assert.False(t, g.Update(100, -1, 0))
}

func TestGradeEstimator_ConstantClimb(t *testing.T) {
	g := NewGradeEstimator(5, 10)
	alt := 0.0
	for i := 0; i < 40; i++ {
		alt += 0.55
		g.Update(11, 1, alt)
	}
	require.Equal(t, 5, g.Samples())
	assert.Greater(t, g.Grade(), 0.0)

	g.Reset()
	assert.Zero(t, g.Grade())
	assert.Zero(t, g.Samples())
}
