package projection

import (
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/nikoskalogridis/scenestate/internal/hardware"
)

// state is everything Project needs. A state is never mutated after it is
// published, so readers always see one calibration with one intrinsic set.
type state struct {
	calib   Calibration
	camera  Camera
	width   float64
	height  float64
	kvfc    *mat.Dense // intrinsics · view_from_calib
	inv     *mat.Dense // inverse of kvfc, nil if singular
	display DisplayTransform
}

// Projector projects calibrated points onto the display surface.
//
// SetCalibration and Resize must be called from a single goroutine; Project
// and the accessors may be called from any goroutine.
type Projector struct {
	hw  hardware.Type
	cur atomic.Pointer[state]
}

// NewProjector returns a projector for a width x height surface using the
// road camera and a zero calibration.
func NewProjector(hw hardware.Type, width, height int) *Projector {
	p := &Projector{hw: hw}
	p.cur.Store(p.build(NewCalibration(0, 0, 0), CameraRoad, float64(width), float64(height)))
	return p
}

func (p *Projector) build(c Calibration, cam Camera, w, h float64) *state {
	k := Intrinsics(p.hw, cam)

	var kvfc mat.Dense
	kvfc.Mul(k, c.Matrix())

	var inv *mat.Dense
	var d mat.Dense
	if err := d.Inverse(&kvfc); err == nil {
		inv = &d
	}

	wide := cam == CameraWide && p.hw.HasWideCamera()
	return &state{
		calib:   c,
		camera:  cam,
		width:   w,
		height:  h,
		kvfc:    &kvfc,
		inv:     inv,
		display: NewDisplayTransform(w, h, k, wide, YOffset(p.hw)),
	}
}

// SetCalibration atomically replaces the calibration.
func (p *Projector) SetCalibration(c Calibration) {
	s := p.cur.Load()
	p.cur.Store(p.build(c, s.camera, s.width, s.height))
}

// Resize recomputes the display transform for a new surface size or camera.
func (p *Projector) Resize(width, height int, cam Camera) {
	s := p.cur.Load()
	p.cur.Store(p.build(s.calib, cam, float64(width), float64(height)))
}

// Calibration returns the active calibration.
func (p *Projector) Calibration() Calibration { return p.cur.Load().calib }

// Camera returns the active camera.
func (p *Projector) Camera() Camera { return p.cur.Load().camera }

// Display returns the active display transform.
func (p *Projector) Display() DisplayTransform { return p.cur.Load().display }

// Project maps pt onto the surface. The second result is false when the
// point lies behind the camera or more than Margin pixels off the surface.
func (p *Projector) Project(pt Vec3) (Point, bool) {
	s := p.cur.Load()

	var kep mat.VecDense
	kep.MulVec(s.kvfc, mat.NewVecDense(3, []float64{pt.X, pt.Y, pt.Z}))

	z := kep.AtVec(2)
	if z <= 0 {
		return Point{}, false
	}
	out := s.display.Apply(kep.AtVec(0)/z, kep.AtVec(1)/z)

	visible := out.X >= -Margin && out.X <= s.width+Margin &&
		out.Y >= -Margin && out.Y <= s.height+Margin
	return out, visible
}

// Unproject returns the unit ray in calibrated space that projects onto px.
func (p *Projector) Unproject(px Point) Vec3 {
	s := p.cur.Load()
	if s.inv == nil {
		return Vec3{}
	}
	x, y := s.display.Invert(px)

	var ray mat.VecDense
	ray.MulVec(s.inv, mat.NewVecDense(3, []float64{x, y, 1}))
	return Vec3{ray.AtVec(0), ray.AtVec(1), ray.AtVec(2)}.Unit()
}
