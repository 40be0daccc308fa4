package filter

// DefaultGradeSamples is the rolling window used for road grade.
const DefaultGradeSamples = 5

// RollingGrade keeps the mean percent grade over a circular buffer of
// (position, altitude) samples.
//
// Grades are taken between each slot and its successor in buffer order,
// wrapping from the last slot to the first. Until the buffer has been filled
// once no mean is available. On the filling sample the mean is computed over
// all N pairs; every later sample only recomputes the two pairs touching the
// slot it overwrote, so Add is O(1). A pair whose run is exactly zero counts
// as a zero grade.
type RollingGrade struct {
	n      int
	pos    []float64
	alt    []float64
	grades []float64

	next   int
	count  int
	rolled bool
	mean   float64
}

// NewRollingGrade returns an empty buffer holding n samples (minimum 2).
func NewRollingGrade(n int) *RollingGrade {
	if n < 2 {
		n = 2
	}
	return &RollingGrade{
		n:      n,
		pos:    make([]float64, n),
		alt:    make([]float64, n),
		grades: make([]float64, n),
	}
}

// Add records a sample, evicting the oldest one once the buffer is full.
func (r *RollingGrade) Add(position, altitude float64) {
	i := r.next
	r.pos[i] = position
	r.alt[i] = altitude
	r.next = (i + 1) % r.n

	if !r.rolled {
		r.count++
		if r.count == r.n {
			r.rolled = true
			r.mean = r.Recompute()
		}
		return
	}

	prev := (i - 1 + r.n) % r.n
	for _, j := range [2]int{prev, i} {
		g := r.pairGrade(j)
		r.mean += (g - r.grades[j]) / float64(r.n)
		r.grades[j] = g
	}
}

// Recompute rebuilds every pair grade and returns their mean. It does not
// change the incrementally maintained mean.
func (r *RollingGrade) Recompute() float64 {
	sum := 0.0
	for j := 0; j < r.n; j++ {
		r.grades[j] = r.pairGrade(j)
		sum += r.grades[j]
	}
	return sum / float64(r.n)
}

func (r *RollingGrade) pairGrade(j int) float64 {
	k := (j + 1) % r.n
	run := r.pos[j] - r.pos[k]
	if run == 0 {
		return 0
	}
	return (r.alt[j] - r.alt[k]) / run * 100
}

// Mean returns the current mean grade in percent and whether the buffer has
// filled at least once.
func (r *RollingGrade) Mean() (float64, bool) {
	return r.mean, r.rolled
}

// Ready reports whether a mean is available.
func (r *RollingGrade) Ready() bool { return r.rolled }

// Len returns the number of samples held.
func (r *RollingGrade) Len() int {
	if r.rolled {
		return r.n
	}
	return r.count
}

// Cap returns the buffer capacity.
func (r *RollingGrade) Cap() int { return r.n }

// Reset empties the buffer and zeroes the mean.
func (r *RollingGrade) Reset() {
	for i := range r.pos {
		r.pos[i] = 0
		r.alt[i] = 0
		r.grades[i] = 0
	}
	r.next = 0
	r.count = 0
	r.rolled = false
	r.mean = 0
}

// GradeEstimator samples altitude at fixed travelled-distance intervals and
// feeds a RollingGrade.
type GradeEstimator struct {
	grade   *RollingGrade
	step    float64
	acc     float64
	lastPos float64
}

// NewGradeEstimator records a sample every step meters over a window of n
// samples.
func NewGradeEstimator(n int, step float64) *GradeEstimator {
	return &GradeEstimator{grade: NewRollingGrade(n), step: step}
}

// Update integrates speed over dt and records a sample once the distance
// travelled since the previous sample exceeds the step. It returns true when
// a sample was recorded.
func (g *GradeEstimator) Update(speed, dt, altitude float64) bool {
	if speed <= 0 || dt <= 0 {
		return false
	}
	g.acc += speed * dt
	if g.acc <= g.step {
		return false
	}
	g.lastPos += g.acc
	g.grade.Add(g.lastPos, altitude)
	g.acc = 0
	return true
}

// SetStep changes the sampling distance. Non-positive values are ignored.
func (g *GradeEstimator) SetStep(step float64) {
	if step > 0 {
		g.step = step
	}
}

// Grade returns the mean percent grade, or 0 before the window has filled.
func (g *GradeEstimator) Grade() float64 {
	m, ok := g.grade.Mean()
	if !ok {
		return 0
	}
	return m
}

// Samples returns the number of samples currently held.
func (g *GradeEstimator) Samples() int { return g.grade.Len() }

// Reset drops all samples and the accumulated distance.
func (g *GradeEstimator) Reset() {
	g.grade.Reset()
	g.acc = 0
	g.lastPos = 0
}
