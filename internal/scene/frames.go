package scene

import (
	"time"

	"github.com/nikoskalogridis/scenestate/internal/projection"
)

// Frame identifies a camera frame delivered by a FrameSource.
type Frame struct {
	ID        uint64
	Camera    projection.Camera
	Timestamp float64
}

// FrameSource is the camera stream feeding the display. Recv may block for
// up to timeout.
type FrameSource interface {
	Connect(cam projection.Camera) bool
	Connected() bool
	Recv(timeout time.Duration) (*Frame, bool)
	Disconnect()
}

// noFrames is used when the host has no camera stream.
type noFrames struct{}

func (noFrames) Connect(projection.Camera) bool    { return false }
func (noFrames) Connected() bool                   { return false }
func (noFrames) Recv(time.Duration) (*Frame, bool) { return nil, false }
func (noFrames) Disconnect()                       {}
