// Package device decides display power and backlight level from the scene.
//
// Device is a pure state machine: Update consumes one snapshot per tick and
// returns the hardware commands to run. Executor carries them out.
package device

import (
	"math"
	"time"

	"github.com/nikoskalogridis/scenestate/internal/filter"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

// Config tunes the wakefulness engine.
type Config struct {
	UIFreq int

	// AwakeTimeout is how long the display stays on after the last wake
	// reason.
	AwakeTimeout time.Duration

	AccelThreshold float64
	GyroThreshold  float64
	// AccelSamples is the window of the accelerometer baseline average.
	// Zero means five seconds of ticks.
	AccelSamples int

	BacklightOffroad float64
	BacklightTS      float64
	BacklightDT      float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		UIFreq:           scene.UIFreq,
		AwakeTimeout:     30 * time.Second,
		AccelThreshold:   0.2,
		GyroThreshold:    0.15,
		AccelSamples:     5 * scene.UIFreq,
		BacklightOffroad: 75,
		BacklightTS:      10,
		BacklightDT:      0.05,
	}
}

// Device tracks whether the display is awake and how bright it is.
type Device struct {
	cfg          Config
	timeoutTicks int

	awake   bool
	timeout int

	accelPrev float64
	gyroPrev  float64

	brightness     *filter.FirstOrder
	lastBrightness int

	powerPending bool
}

// New returns an awake device with a full timeout. The first Update reports
// the initial display power.
func New(cfg Config) *Device {
	d := DefaultConfig()
	if cfg.UIFreq <= 0 {
		cfg.UIFreq = d.UIFreq
	}
	if cfg.AwakeTimeout <= 0 {
		cfg.AwakeTimeout = d.AwakeTimeout
	}
	if cfg.AccelThreshold <= 0 {
		cfg.AccelThreshold = d.AccelThreshold
	}
	if cfg.GyroThreshold <= 0 {
		cfg.GyroThreshold = d.GyroThreshold
	}
	if cfg.AccelSamples <= 0 {
		cfg.AccelSamples = 5 * cfg.UIFreq
	}
	if cfg.BacklightOffroad <= 0 {
		cfg.BacklightOffroad = d.BacklightOffroad
	}
	if cfg.BacklightTS <= 0 {
		cfg.BacklightTS = d.BacklightTS
	}
	if cfg.BacklightDT <= 0 {
		cfg.BacklightDT = d.BacklightDT
	}

	ticks := int(cfg.AwakeTimeout.Seconds() * float64(cfg.UIFreq))
	return &Device{
		cfg:            cfg,
		timeoutTicks:   ticks,
		awake:          true,
		timeout:        ticks,
		brightness:     filter.NewFirstOrder(cfg.BacklightOffroad, cfg.BacklightTS, cfg.BacklightDT),
		lastBrightness: -1,
		powerPending:   true,
	}
}

// Awake reports whether the display is on.
func (d *Device) Awake() bool { return d.awake }

// Brightness returns the last brightness emitted.
func (d *Device) Brightness() int { return d.lastBrightness }

// TimeoutTicks returns the remaining ticks before the display sleeps.
func (d *Device) TimeoutTicks() int { return d.timeout }

// Update advances one tick. Brightness is computed with the awake state of
// the previous tick, then wakefulness is updated.
func (d *Device) Update(s *scene.Snapshot) []Command {
	var cmds []Command
	if d.powerPending {
		cmds = append(cmds, CmdSetDisplayPower{On: d.awake})
		d.powerPending = false
	}
	cmds = d.updateBrightness(s, cmds)
	return d.updateWakefulness(s, cmds)
}

// TargetBrightness maps the ambient light estimate in [0, 1] to a backlight
// percentage through the CIE 1931 lightness curve, clamped to [10, 100].
// Offroad the display is pinned to offroad.
func TargetBrightness(light float64, started bool, offroad float64) float64 {
	if !started {
		return offroad
	}
	b := 100 * light
	if b <= 8 {
		b /= 903.3
	} else {
		b = math.Pow((b+16)/116, 3)
	}
	return min(max(100*b, 10), 100)
}

func (d *Device) updateBrightness(s *scene.Snapshot, cmds []Command) []Command {
	target := TargetBrightness(s.LightSensor, s.Started, d.cfg.BacklightOffroad)
	b := int(d.brightness.Update(target))
	if !d.awake {
		b = 0
	}
	if b != d.lastBrightness {
		cmds = append(cmds, CmdSetBrightness{Percent: b})
	}
	d.lastBrightness = b
	return cmds
}

func (d *Device) updateWakefulness(s *scene.Snapshot, cmds []Command) []Command {
	d.timeout = max(d.timeout-1, 0)

	shouldWake := s.Started || s.Ignition
	if !shouldWake {
		accelTap := math.Abs(s.AccelSensor-d.accelPrev) > d.cfg.AccelThreshold
		gyroTap := math.Abs(s.GyroSensor-d.gyroPrev) > d.cfg.GyroThreshold
		shouldWake = accelTap && gyroTap

		n := float64(d.cfg.AccelSamples)
		d.gyroPrev = s.GyroSensor
		d.accelPrev = (d.accelPrev*(n-1) + s.AccelSensor) / n
	}
	return d.setAwake(d.timeout != 0, shouldWake, cmds)
}

// setAwake applies the power decision first and refreshes the countdown
// after, so a wake reason seen while asleep turns the display on one tick
// later.
func (d *Device) setAwake(on, reset bool, cmds []Command) []Command {
	if on != d.awake {
		d.awake = on
		cmds = append(cmds, CmdSetDisplayPower{On: on})
	}
	if reset {
		d.timeout = d.timeoutTicks
	}
	return cmds
}
