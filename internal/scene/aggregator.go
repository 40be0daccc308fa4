package scene

import (
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nikoskalogridis/scenestate/internal/filter"
	"github.com/nikoskalogridis/scenestate/internal/geometry"
	"github.com/nikoskalogridis/scenestate/internal/hardware"
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/params"
	"github.com/nikoskalogridis/scenestate/internal/projection"
	"github.com/nikoskalogridis/scenestate/internal/submaster"
	"github.com/nikoskalogridis/scenestate/internal/timeutil"
)

// UIFreq is the nominal onroad tick rate in Hz.
const UIFreq = 20

// Config tunes the aggregator. Zero fields take the DefaultConfig value.
type Config struct {
	UIFreq   int
	Hardware hardware.Type
	Width    int
	Height   int

	// OffroadInterval is the tick period while not started. Onroad ticks
	// are paced by the camera stream instead.
	OffroadInterval time.Duration
	// ParamsCheckInterval is how often the assist toggles are re-read.
	ParamsCheckInterval time.Duration
	// FrameTimeout bounds each camera receive.
	FrameTimeout time.Duration

	GradeSamples int
	GradeLenStep float64

	// AssistFadeDelay holds the assist indicator still after a session
	// starts.
	AssistFadeDelay time.Duration
	FadeDuration    time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		UIFreq:              UIFreq,
		Hardware:            hardware.PC,
		Width:               1920,
		Height:              1080,
		OffroadInterval:     100 * time.Millisecond,
		ParamsCheckInterval: 5 * time.Second,
		FrameTimeout:        1000 * time.Millisecond / UIFreq,
		GradeSamples:        filter.DefaultGradeSamples,
		GradeLenStep:        10,
		AssistFadeDelay:     10 * time.Second,
		FadeDuration:        300 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UIFreq <= 0 {
		c.UIFreq = d.UIFreq
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.OffroadInterval <= 0 {
		c.OffroadInterval = d.OffroadInterval
	}
	if c.ParamsCheckInterval <= 0 {
		c.ParamsCheckInterval = d.ParamsCheckInterval
	}
	if c.FrameTimeout <= 0 {
		c.FrameTimeout = d.FrameTimeout
	}
	if c.GradeSamples < 2 {
		c.GradeSamples = d.GradeSamples
	}
	if c.GradeLenStep <= 0 {
		c.GradeLenStep = d.GradeLenStep
	}
	if c.AssistFadeDelay <= 0 {
		c.AssistFadeDelay = d.AssistFadeDelay
	}
	if c.FadeDuration <= 0 {
		c.FadeDuration = d.FadeDuration
	}
	return c
}

// Options wires an Aggregator to its collaborators.
type Options struct {
	Config    Config
	SubMaster *submaster.SubMaster
	Params    params.Store
	Clock     timeutil.Clock
	Projector *projection.Projector
	// Frames may be nil when no camera stream is available.
	Frames    FrameSource
	Listeners []Listener
	Logger    *slog.Logger
}

// Aggregator owns the scene and advances it one tick at a time. Tick, SetAwake
// and Close are meant for the owning goroutine; Snapshot may be called from
// anywhere.
type Aggregator struct {
	cfg       Config
	sm        *submaster.SubMaster
	params    params.Store
	clock     timeutil.Clock
	proj      *projection.Projector
	builder   *geometry.Builder
	frames    FrameSource
	listeners []Listener
	logger    *slog.Logger

	s Snapshot

	brake  *filter.Fade
	assist *filter.Fade
	grade  *filter.GradeEstimator

	lastTime        float64
	lastAEgo        float64
	brakeLastT      float64
	assistLastT     float64
	gradeLastT      float64
	paramsCheckLast float64
	startedPrev     bool

	awake     atomic.Bool
	published atomic.Pointer[Snapshot]
}

// New builds an aggregator. SubMaster, Params, Clock and Projector are
// required.
func New(opts Options) (*Aggregator, error) {
	switch {
	case opts.SubMaster == nil:
		return nil, errors.New("scene: submaster is required")
	case opts.Params == nil:
		return nil, errors.New("scene: params store is required")
	case opts.Clock == nil:
		return nil, errors.New("scene: clock is required")
	case opts.Projector == nil:
		return nil, errors.New("scene: projector is required")
	}
	cfg := opts.Config.withDefaults()
	frames := opts.Frames
	if frames == nil {
		frames = noFrames{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fade := cfg.FadeDuration.Seconds()

	a := &Aggregator{
		cfg:             cfg,
		sm:              opts.SubMaster,
		params:          opts.Params,
		clock:           opts.Clock,
		proj:            opts.Projector,
		builder:         geometry.NewBuilder(opts.Projector),
		frames:          frames,
		listeners:       append([]Listener(nil), opts.Listeners...),
		logger:          logger,
		brake:           filter.NewFade(0, 1, fade),
		assist:          filter.NewFade(-1, 1, fade),
		grade:           filter.NewGradeEstimator(cfg.GradeSamples, cfg.GradeLenStep),
		paramsCheckLast: math.Inf(-1),
	}
	a.assist.Set(-1)
	a.s.PandaType = msg.PandaUnknown
	a.s.AssistFade = a.assist.Value()
	a.s.Camera = projection.CameraRoad
	a.s.Settings.GradeLenStep = cfg.GradeLenStep
	a.awake.Store(true)
	a.s.Awake = true

	first := a.s
	a.published.Store(&first)
	return a, nil
}

// AddListener registers l for subsequent ticks. It must not be called
// concurrently with Tick.
func (a *Aggregator) AddListener(l Listener) {
	a.listeners = append(a.listeners, l)
}

// Snapshot returns the most recently published scene.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.published.Load()
}

// SetAwake records the display state reported by the device engine; it is
// reflected from the next tick on.
func (a *Aggregator) SetAwake(on bool) {
	a.awake.Store(on)
}

// Interval is how long the host should wait before the next tick.
func (a *Aggregator) Interval() time.Duration {
	if a.s.Started {
		return 0
	}
	return a.cfg.OffroadInterval
}

// Close releases the camera stream.
func (a *Aggregator) Close() {
	if a.frames.Connected() {
		a.frames.Disconnect()
	}
}

// Tick runs one aggregation step and notifies listeners.
func (a *Aggregator) Tick() {
	t := a.clock.Seconds()

	a.updateParams(t)
	a.sm.Poll()
	a.updateState(t)
	changed := a.updateStatus(t)
	a.updateVision()

	a.s.Frame = a.sm.Frame()
	a.s.Time = t
	a.s.Awake = a.awake.Load()

	snap := a.s
	a.published.Store(&snap)

	if changed || a.s.Frame == 1 {
		for _, l := range a.listeners {
			l.OnOnroadTransition(snap.Started)
		}
	}
	for _, l := range a.listeners {
		l.OnTick(&snap)
	}
}

func (a *Aggregator) updateParams(t float64) {
	freq := uint64(a.cfg.UIFreq)
	if a.sm.Frame()%(5*freq) == 0 {
		a.s.Settings.IsMetric = params.GetBool(a.params, params.KeyIsMetric)
	}
	if t-a.paramsCheckLast > a.cfg.ParamsCheckInterval.Seconds() {
		st := &a.s.Settings
		st.OnePedalMode = params.GetBool(a.params, params.KeyOnePedalMode)
		st.DisableDisengageOnGas = params.GetBool(a.params, params.KeyDisableDisengageOnGas)
		st.OnePedalEngageOnGas = params.GetBool(a.params, params.KeyOnePedalModeEngageOnGas)
		st.OnePedalPauseSteering = params.GetBool(a.params, params.KeyOnePedalPauseSteering)
		a.paramsCheckLast = t
	}
}

func (a *Aggregator) updateState(t float64) {
	sm, s := a.sm, &a.s
	freq := uint64(a.cfg.UIFreq)

	if half := max(freq/2, 1); sm.Frame()%half == 0 {
		s.Engageable = submaster.Get[msg.ControlsState](sm, msg.TopicControlsState).Engageable
		s.DMActive = submaster.Get[msg.DriverMonitoringState](sm, msg.TopicDriverMonitoringState).IsActiveMode
	}
	if s.Started && sm.Updated(msg.TopicControlsState) {
		s.ControlsState = submaster.Get[msg.ControlsState](sm, msg.TopicControlsState)
		cs := submaster.Get[msg.CarState](sm, msg.TopicCarState)
		s.AngleSteersDesired = s.ControlsState.AngleError + cs.SteeringAngleDeg
	}
	if sm.Updated(msg.TopicCarState) {
		a.updateCarState(t)
	}
	if sm.Updated(msg.TopicRadarState) {
		s.RadarLead = submaster.Get[msg.RadarState](sm, msg.TopicRadarState).LeadOne
	}
	if sm.Updated(msg.TopicModelV2) && s.Calibrated {
		a.updateModel()
	}
	if sm.Updated(msg.TopicLiveCalibration) {
		a.updateCalibration()
	}
	if sm.Updated(msg.TopicPandaState) {
		ps := submaster.Get[msg.PandaState](sm, msg.TopicPandaState)
		s.PandaType = ps.PandaType
		s.Ignition = ps.IgnitionLine || ps.IgnitionCan
	} else if sm.Staleness(msg.TopicPandaState) > 5*freq {
		s.PandaType = msg.PandaUnknown
	}
	if sm.Updated(msg.TopicCarParams) {
		s.LongitudinalControl = submaster.Get[msg.CarParams](sm, msg.TopicCarParams).OpenpilotLongitudinalControl
	}
	if !s.Started && sm.Updated(msg.TopicSensorEvents) {
		for _, ev := range submaster.Get[msg.SensorEvents](sm, msg.TopicSensorEvents) {
			switch ev.Kind {
			case msg.SensorAcceleration:
				if v, ok := ev.Axis(2); ok {
					s.AccelSensor = v
				}
			case msg.SensorGyroUncalibrated:
				if v, ok := ev.Axis(1); ok {
					s.GyroSensor = v
				}
			}
		}
	}
	if sm.Updated(msg.TopicRoadCameraState) {
		cam := submaster.Get[msg.RoadCameraState](sm, msg.TopicRoadCameraState)
		s.LightSensor = LightEstimate(a.cfg.Hardware, cam.Gain, cam.IntegLines)
	}
	s.Started = submaster.Get[msg.DeviceState](sm, msg.TopicDeviceState).Started && s.Ignition

	if sm.Updated(msg.TopicDeviceState) {
		ds := submaster.Get[msg.DeviceState](sm, msg.TopicDeviceState)
		if len(ds.CPUTempC) > 0 {
			s.CPUTemp = ds.CPUTempC[0]
		}
		if n := len(ds.CPUUsagePercent); n > 0 {
			var sum float64
			for _, p := range ds.CPUUsagePercent {
				sum += p
			}
			s.CPUPercent = sum / float64(n)
		}
	}
	if sm.Updated(msg.TopicUbloxGnss) {
		if mr := submaster.Get[msg.UbloxGnss](sm, msg.TopicUbloxGnss).MeasurementReport; mr != nil {
			s.SatelliteCount = mr.NumMeas
		}
	}
	gps := submaster.Get[msg.GpsLocationExternal](sm, msg.TopicGpsLocationExternal)
	s.GPSAccuracy = gps.Accuracy
	s.Altitude = gps.Altitude

	if sm.Updated(msg.TopicLiveLocationKalman) {
		s.GPSOK = submaster.Get[msg.LiveLocationKalman](sm, msg.TopicLiveLocationKalman).GpsOK
	}
	if sm.Updated(msg.TopicLateralPlan) {
		s.LateralPlan = submaster.Get[msg.LateralPlan](sm, msg.TopicLateralPlan)
	}
	if sm.Updated(msg.TopicLongitudinalPlan) {
		s.LongitudinalPlan = submaster.Get[msg.LongitudinalPlan](sm, msg.TopicLongitudinalPlan)
	}
	a.lastTime = t
}

func (a *Aggregator) updateCarState(t float64) {
	s := &a.s
	cs := submaster.Get[msg.CarState](a.sm, msg.TopicCarState)
	s.CarState = cs

	s.BrakePercent = cs.FrictionBrakePercent
	s.BrakeIndicatorAlpha = a.brake.Step(cs.FrictionBrakePercent > 0, t-a.brakeLastT)
	a.brakeLastT = t

	if t-s.SessionStart > a.cfg.AssistFadeDelay.Seconds() {
		st := s.Settings
		drive := cs.OnePedalModeActive || cs.CoastOnePedalModeActive ||
			(s.Status == StatusDisengaged && s.ControlsState.VCruise < 5 &&
				(st.OnePedalMode || st.DisableDisengageOnGas))
		s.AssistFade = a.assist.Step(drive, t-a.assistLastT)
	}
	a.assistLastT = t

	s.SteerOverride = cs.SteeringPressed
	s.AngleSteers = cs.SteeringAngleDeg
	s.SteeringTorqueEps = cs.SteeringTorqueEps
	s.EngineRPM = int(math.Round(cs.EngineRPM/100)) * 100

	if dt := t - a.lastTime; dt > 0 {
		s.JEgo = (cs.AEgo - a.lastAEgo) / dt
	} else {
		s.JEgo = 0
	}
	s.AEgo = cs.AEgo
	a.lastAEgo = cs.AEgo

	a.grade.Update(cs.VEgo, t-a.gradeLastT, s.Altitude)
	a.gradeLastT = t
	s.PercentGrade = a.grade.Grade()
	s.GradeSamples = a.grade.Samples()
}

func (a *Aggregator) updateModel() {
	s := &a.s
	model := submaster.Get[msg.ModelV2](a.sm, msg.TopicModelV2)
	res := a.builder.Update(&model, &s.Geometry)
	s.MaxDistance = res.MaxDistance
	s.LaneLineProbs = res.LaneLineProbs
	s.RoadEdgeStds = res.RoadEdgeStds
	s.Leads = res.Leads
}

func (a *Aggregator) updateCalibration() {
	rpy := submaster.Get[msg.LiveCalibration](a.sm, msg.TopicLiveCalibration).RpyCalib
	if len(rpy) < 3 {
		a.logger.Debug("ignoring calibration without roll/pitch/yaw", "len", len(rpy))
		return
	}
	c := projection.NewCalibration(rpy[0], rpy[1], rpy[2])
	a.proj.SetCalibration(c)
	a.s.Calibration = c
	a.s.Calibrated = true
	a.s.WorldObjectsVisible = true
}

// updateStatus derives the engagement status and handles onroad transitions.
// It reports whether started changed on this tick.
func (a *Aggregator) updateStatus(t float64) bool {
	s := &a.s
	if s.Started && a.sm.Updated(msg.TopicControlsState) {
		cs := submaster.Get[msg.ControlsState](a.sm, msg.TopicControlsState)
		switch {
		case cs.AlertStatus == msg.AlertUserPrompt:
			s.Status = StatusWarning
		case cs.AlertStatus == msg.AlertCritical:
			s.Status = StatusAlert
		case cs.Enabled:
			s.Status = StatusEngaged
		default:
			s.Status = StatusDisengaged
		}
		s.Settings.SpeedLimitControl = params.GetBool(a.params, params.KeySpeedLimitControl)
	}

	changed := s.Started != a.startedPrev
	a.startedPrev = s.Started
	if !changed {
		return false
	}
	if s.Started {
		a.enterOnroad(t)
	} else {
		a.leaveOnroad()
	}
	return true
}

func (a *Aggregator) enterOnroad(t float64) {
	s, p := &a.s, a.params
	st := &s.Settings

	s.Status = StatusDisengaged
	s.StartedFrame = a.sm.Frame()
	s.SessionStart = t
	s.SessionID = uuid.NewString()

	st.EndToEnd = params.GetBool(p, params.KeyEndToEndToggle)
	st.LanelessMode = params.GetInt(p, params.KeyLanelessMode, 0)
	s.BrakePercent = float64(params.GetInt(p, params.KeyFrictionBrakePercent, 0))

	st.GradeLenStep = params.GetFloat(p, params.KeyPercentGradeLenStep, a.cfg.GradeLenStep)
	a.grade.Reset()
	a.grade.SetStep(st.GradeLenStep)
	s.PercentGrade = 0
	s.GradeSamples = 0

	st.MeasureNumSlots = min(max(params.GetInt(p, params.KeyMeasureNumSlots, 0), 0), MaxMeasureSlots)
	for i := range st.MeasureSlots {
		st.MeasureSlots[i] = params.GetInt(p, params.MeasureSlotKey(i), 0)
	}

	st.WideCamera = a.cfg.Hardware.HasWideCamera() && params.GetBool(p, params.KeyEnableWideCamera)
	s.Camera = projection.CameraRoad
	if st.WideCamera {
		s.Camera = projection.CameraWide
	}
	a.proj.Resize(a.cfg.Width, a.cfg.Height, s.Camera)

	st.SpeedLimitControl = params.GetBool(p, params.KeySpeedLimitControl)
	st.SpeedLimitPercOffset = params.GetBool(p, params.KeySpeedLimitPercOffset)
	st.ShowDebugUI = params.GetBool(p, params.KeyShowDebugUI)

	a.logger.Info("onroad",
		"session", s.SessionID,
		"frame", s.StartedFrame,
		"camera", s.Camera.String(),
		"laneless_mode", st.LanelessMode,
	)
}

func (a *Aggregator) leaveOnroad() {
	a.frames.Disconnect()
	a.logger.Info("offroad", "session", a.s.SessionID, "frames", a.sm.Frame()-a.s.StartedFrame)
}

func (a *Aggregator) updateVision() {
	s := &a.s
	if !a.frames.Connected() && s.Started {
		if a.frames.Connect(s.Camera) {
			a.logger.Debug("camera stream connected", "camera", s.Camera.String())
			s.WorldObjectsVisible = false
		}
	}
	switch {
	case a.frames.Connected():
		f, ok := a.frames.Recv(a.cfg.FrameTimeout)
		if ok && f != nil {
			s.FrameID = f.ID
			s.HasFrame = true
		} else if a.cfg.Hardware != hardware.PC {
			a.logger.Warn("camera frame timeout", "timeout", a.cfg.FrameTimeout)
		}
	case s.Started:
		a.clock.Sleep(time.Second / time.Duration(a.cfg.UIFreq))
	}
}
