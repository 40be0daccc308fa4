// Package projection maps calibrated vehicle-space points onto the display
// surface through the road camera model.
package projection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a point or ray in calibrated vehicle space: X forward, Y right,
// Z down.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Unit returns v scaled to length 1, or v itself when it is the zero vector.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return Vec3{v.X / n, v.Y / n, v.Z / n}
}

// Point is a display-space pixel coordinate.
type Point struct {
	X, Y float64
}

// EulerToRot returns the rotation Rz(yaw)·Ry(pitch)·Rx(roll).
func EulerToRot(roll, pitch, yaw float64) *mat.Dense {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})

	var zy, out mat.Dense
	zy.Mul(rz, ry)
	out.Mul(&zy, rx)
	return &out
}

// viewFromDevice permutes device axes (forward, right, down) into camera
// view axes (right, down, forward) as used by the intrinsics.
var viewFromDevice = mat.NewDense(3, 3, []float64{
	0, 1, 0,
	0, 0, 1,
	1, 0, 0,
})

// Calibration is an immutable view-from-calibrated-frame rotation.
// It is replaced wholesale when a new calibration message arrives.
type Calibration struct {
	RPY           [3]float64 `json:"rpy"`
	ViewFromCalib [9]float64 `json:"view_from_calib"`
}

// NewCalibration builds the rotation for roll, pitch and yaw in radians.
func NewCalibration(roll, pitch, yaw float64) Calibration {
	var vfc mat.Dense
	vfc.Mul(viewFromDevice, EulerToRot(roll, pitch, yaw))

	c := Calibration{RPY: [3]float64{roll, pitch, yaw}}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.ViewFromCalib[i*3+j] = vfc.At(i, j)
		}
	}
	return c
}

// Matrix returns a fresh 3x3 copy of the rotation.
func (c Calibration) Matrix() *mat.Dense {
	data := make([]float64, 9)
	copy(data, c.ViewFromCalib[:])
	return mat.NewDense(3, 3, data)
}
