// Package scene aggregates the subscribed topics into one snapshot per tick.
package scene

import (
	"github.com/nikoskalogridis/scenestate/internal/geometry"
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/projection"
)

// Status is the assist engagement state shown to the driver.
type Status int

const (
	StatusDisengaged Status = iota
	StatusEngaged
	StatusWarning
	StatusAlert
)

func (s Status) String() string {
	switch s {
	case StatusEngaged:
		return "engaged"
	case StatusWarning:
		return "warning"
	case StatusAlert:
		return "alert"
	default:
		return "disengaged"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MaxMeasureSlots is the number of configurable UI measurement slots.
const MaxMeasureSlots = 10

// Settings are the param-store values cached for the session.
type Settings struct {
	IsMetric bool

	OnePedalMode          bool
	DisableDisengageOnGas bool
	OnePedalEngageOnGas   bool
	OnePedalPauseSteering bool

	EndToEnd             bool
	LanelessMode         int
	WideCamera           bool
	SpeedLimitControl    bool
	SpeedLimitPercOffset bool
	ShowDebugUI          bool

	MeasureNumSlots int
	MeasureSlots    [MaxMeasureSlots]int

	GradeLenStep float64
}

// Snapshot is the scene as of the end of one tick.
//
// It holds only values and fixed-size arrays, so assigning a Snapshot makes
// an independent copy. Published snapshots are never modified.
type Snapshot struct {
	Frame uint64
	Time  float64

	Status       Status
	Started      bool
	StartedFrame uint64
	SessionID    string
	SessionStart float64
	Ignition     bool
	PandaType    msg.PandaType
	Awake        bool

	Calibration         projection.Calibration
	Calibrated          bool
	WorldObjectsVisible bool
	Camera              projection.Camera
	FrameID             uint64
	HasFrame            bool

	CarState         msg.CarState
	ControlsState    msg.ControlsState
	LateralPlan      msg.LateralPlan
	LongitudinalPlan msg.LongitudinalPlan
	RadarLead        msg.RadarLead

	Engageable          bool
	DMActive            bool
	LongitudinalControl bool

	GPSAccuracy    float64
	Altitude       float64
	SatelliteCount int
	GPSOK          bool

	CPUTemp    float64
	CPUPercent float64

	AccelSensor float64
	GyroSensor  float64
	LightSensor float64

	AngleSteers        float64
	AngleSteersDesired float64
	SteeringTorqueEps  float64
	SteerOverride      bool
	EngineRPM          int
	AEgo               float64
	JEgo               float64

	BrakePercent        float64
	BrakeIndicatorAlpha float64
	AssistFade          float64
	PercentGrade        float64
	GradeSamples        int

	MaxDistance   float64
	LaneLineProbs [4]float64
	RoadEdgeStds  [2]float64
	Geometry      geometry.Arena
	Leads         [2]geometry.LeadMarker

	Settings Settings
}

// Listener receives tick notifications synchronously on the tick goroutine.
// The snapshot must be treated as read-only.
type Listener interface {
	OnTick(s *Snapshot)
	OnOnroadTransition(onroad bool)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Tick   func(s *Snapshot)
	Onroad func(onroad bool)
}

func (l ListenerFuncs) OnTick(s *Snapshot) {
	if l.Tick != nil {
		l.Tick(s)
	}
}

func (l ListenerFuncs) OnOnroadTransition(onroad bool) {
	if l.Onroad != nil {
		l.Onroad(onroad)
	}
}
