package main

import (
	"sync"
	"time"

	"github.com/nikoskalogridis/scenestate/internal/projection"
	"github.com/nikoskalogridis/scenestate/internal/scene"
	"github.com/nikoskalogridis/scenestate/internal/timeutil"
)

// pacedFrames is a frame source that delivers empty frames at a fixed rate.
// It stands in for the camera stream on hosts without one, so onroad ticks
// keep the camera cadence.
type pacedFrames struct {
	clock  timeutil.Clock
	period time.Duration

	mu        sync.Mutex
	connected bool
	camera    projection.Camera
	nextID    uint64
	next      float64 // clock seconds of the next frame
}

var _ scene.FrameSource = (*pacedFrames)(nil)

func newPacedFrames(clock timeutil.Clock, hz int) *pacedFrames {
	if hz <= 0 {
		hz = scene.UIFreq
	}
	return &pacedFrames{
		clock:  clock,
		period: time.Second / time.Duration(hz),
	}
}

func (p *pacedFrames) Connect(cam projection.Camera) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	p.camera = cam
	p.next = p.clock.Seconds() + p.period.Seconds()
	return true
}

func (p *pacedFrames) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *pacedFrames) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
}

// Recv waits for the next frame slot. It gives up after timeout when the
// slot is further away than that.
func (p *pacedFrames) Recv(timeout time.Duration) (*scene.Frame, bool) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil, false
	}
	now := p.clock.Seconds()
	wait := time.Duration((p.next - now) * float64(time.Second))
	if wait > timeout {
		p.mu.Unlock()
		p.clock.Sleep(timeout)
		return nil, false
	}

	// Resync instead of bursting after a long stall.
	if wait < -p.period {
		p.next = now
		wait = 0
	}
	at := p.next
	p.next += p.period.Seconds()
	p.nextID++
	f := &scene.Frame{ID: p.nextID, Camera: p.camera, Timestamp: at}
	p.mu.Unlock()

	if wait > 0 {
		p.clock.Sleep(wait)
	}
	return f, true
}
