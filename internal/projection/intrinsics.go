package projection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nikoskalogridis/scenestate/internal/hardware"
)

// Camera selects which road camera feeds the display.
type Camera int

const (
	CameraRoad Camera = iota
	CameraWide
)

func (c Camera) String() string {
	if c == CameraWide {
		return "wide"
	}
	return "road"
}

// Zoom is the nominal display zoom in pixels per unit focal length.
const Zoom = 2912.8

// Margin is how far outside the surface a projected point may land and
// still count as visible, so polygons that leave the screen are not
// clipped at the edge.
const Margin = 500.0

// Intrinsics returns the pinhole camera matrix for the given device and
// camera. Only TICI has a wide camera; asking any other device for it
// returns the road camera.
func Intrinsics(hw hardware.Type, cam Camera) *mat.Dense {
	switch {
	case cam == CameraWide && hw.HasWideCamera():
		return mat.NewDense(3, 3, []float64{
			620, 0, 964,
			0, 620, 604,
			0, 0, 1,
		})
	case hw == hardware.TICI:
		return mat.NewDense(3, 3, []float64{
			2648, 0, 964,
			0, 2648, 604,
			0, 0, 1,
		})
	default:
		return mat.NewDense(3, 3, []float64{
			910, 0, 582,
			0, 910, 437,
			0, 0, 1,
		})
	}
}

// YOffset is the vertical shift of the camera image on the surface.
func YOffset(hw hardware.Type) float64 {
	if hw == hardware.EON {
		return 0
	}
	return 150
}

// DisplayTransform maps normalised image coordinates onto the surface:
// p' = Scale·p + (TX, TY).
type DisplayTransform struct {
	Scale float64
	TX    float64
	TY    float64
}

// NewDisplayTransform centres the principal point on a width x height
// surface shifted down by yOffset. The wide camera is shown at half zoom.
func NewDisplayTransform(width, height float64, k mat.Matrix, wide bool, yOffset float64) DisplayTransform {
	fx, cx, cy := k.At(0, 0), k.At(0, 2), k.At(1, 2)
	zoom := Zoom / fx
	if wide {
		zoom *= 0.5
	}
	return DisplayTransform{
		Scale: zoom,
		TX:    width/2 - zoom*cx,
		TY:    height/2 + yOffset - zoom*cy,
	}
}

// Apply transforms an image-plane point to surface pixels.
func (d DisplayTransform) Apply(x, y float64) Point {
	return Point{X: d.Scale*x + d.TX, Y: d.Scale*y + d.TY}
}

// Invert maps surface pixels back to the image plane.
func (d DisplayTransform) Invert(p Point) (x, y float64) {
	if d.Scale == 0 {
		return 0, 0
	}
	return (p.X - d.TX) / d.Scale, (p.Y - d.TY) / d.Scale
}
