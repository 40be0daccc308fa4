package main

import (
	"log/slog"
	"time"

	"github.com/nikoskalogridis/scenestate/internal/geometry"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

// Broadcast is a daemon-emitted state change destined for WebSocket clients.
type Broadcast interface {
	broadcastMarker()
}

// BroadcastScene carries the snapshot published by a tick.
type BroadcastScene struct {
	Snap *scene.Snapshot
	At   time.Time
}

// BroadcastOnroad reports an onroad/offroad transition.
type BroadcastOnroad struct {
	Onroad    bool
	SessionID string
	At        time.Time
}

// BroadcastDisplayPower reports a display power change.
type BroadcastDisplayPower struct {
	On bool
	At time.Time
}

func (BroadcastScene) broadcastMarker()        {}
func (BroadcastOnroad) broadcastMarker()       {}
func (BroadcastDisplayPower) broadcastMarker() {}

// broadcaster feeds Broadcasts into a bounded queue without ever blocking
// the tick loop. It implements scene.Listener.
type broadcaster struct {
	out      chan<- Broadcast
	snapshot func() *scene.Snapshot
	logger   *slog.Logger
}

// newBroadcaster reads the session id of transitions through snapshot,
// which must return the snapshot published by the current tick.
func newBroadcaster(out chan<- Broadcast, snapshot func() *scene.Snapshot, logger *slog.Logger) *broadcaster {
	return &broadcaster{out: out, snapshot: snapshot, logger: logger}
}

func (b *broadcaster) emit(ev Broadcast) {
	select {
	case b.out <- ev:
	default:
		b.logger.Debug("broadcast queue full, dropping", "type", wsTypeOf(ev))
	}
}

func (b *broadcaster) OnTick(s *scene.Snapshot) {
	b.emit(BroadcastScene{Snap: s, At: time.Now().UTC()})
}

func (b *broadcaster) OnOnroadTransition(onroad bool) {
	ev := BroadcastOnroad{Onroad: onroad, At: time.Now().UTC()}
	if s := b.snapshot(); s != nil && onroad {
		ev.SessionID = s.SessionID
	}
	b.emit(ev)
}

func (b *broadcaster) OnDisplayPower(on bool) {
	b.emit(BroadcastDisplayPower{On: on, At: time.Now().UTC()})
}

// ============================================================================
// Wire payloads
// ============================================================================

// wsSceneData is the JSON `data` payload of "state_init" and "scene_update".
type wsSceneData struct {
	Frame     uint64  `json:"frame"`
	Time      float64 `json:"time"`
	Status    string  `json:"status"`
	Started   bool    `json:"started"`
	SessionID string  `json:"session_id,omitempty"`
	PandaType string  `json:"panda_type"`
	Ignition  bool    `json:"ignition"`
	Awake     bool    `json:"awake"`
	IsMetric  bool    `json:"is_metric"`

	Engageable bool `json:"engageable"`
	DMActive   bool `json:"dm_active"`

	VEgo          float64 `json:"v_ego"`
	AEgo          float64 `json:"a_ego"`
	JEgo          float64 `json:"j_ego"`
	VCruise       float64 `json:"v_cruise"`
	AngleSteers   float64 `json:"angle_steers"`
	AngleDesired  float64 `json:"angle_steers_desired"`
	SteerOverride bool    `json:"steer_override"`
	EngineRPM     int     `json:"engine_rpm"`

	BrakePercent float64 `json:"brake_percent"`
	BrakeAlpha   float64 `json:"brake_alpha"`
	AssistFade   float64 `json:"assist_fade"`
	PercentGrade float64 `json:"percent_grade"`

	LightSensor    float64 `json:"light_sensor"`
	CPUTemp        float64 `json:"cpu_temp"`
	CPUPercent     float64 `json:"cpu_percent"`
	SatelliteCount int     `json:"satellite_count"`
	GPSOK          bool    `json:"gps_ok"`

	Calibrated          bool          `json:"calibrated"`
	WorldObjectsVisible bool          `json:"world_objects_visible"`
	Camera              string        `json:"camera"`
	MaxDistance         float64       `json:"max_distance"`
	LaneLineProbs       [4]float64    `json:"lane_line_probs"`
	RoadEdgeStds        [2]float64    `json:"road_edge_stds"`
	Paths               wsPaths       `json:"paths"`
	Leads               [2]wsLeadData `json:"leads"`
}

// wsPaths maps buffer names to [x, y] display points.
type wsPaths map[string][][2]float64

type wsLeadData struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Prob    float64 `json:"prob"`
	Valid   bool    `json:"valid"`
	Visible bool    `json:"visible"`
}

type wsOnroadData struct {
	Onroad    bool   `json:"onroad"`
	SessionID string `json:"session_id,omitempty"`
}

type wsDisplayPowerData struct {
	On bool `json:"on"`
}

func sceneData(s *scene.Snapshot) wsSceneData {
	d := wsSceneData{
		Frame:     s.Frame,
		Time:      s.Time,
		Status:    s.Status.String(),
		Started:   s.Started,
		SessionID: s.SessionID,
		PandaType: string(s.PandaType),
		Ignition:  s.Ignition,
		Awake:     s.Awake,
		IsMetric:  s.Settings.IsMetric,

		Engageable: s.Engageable,
		DMActive:   s.DMActive,

		VEgo:          s.CarState.VEgo,
		AEgo:          s.AEgo,
		JEgo:          s.JEgo,
		VCruise:       s.ControlsState.VCruise,
		AngleSteers:   s.AngleSteers,
		AngleDesired:  s.AngleSteersDesired,
		SteerOverride: s.SteerOverride,
		EngineRPM:     s.EngineRPM,

		BrakePercent: s.BrakePercent,
		BrakeAlpha:   s.BrakeIndicatorAlpha,
		AssistFade:   s.AssistFade,
		PercentGrade: s.PercentGrade,

		LightSensor:    s.LightSensor,
		CPUTemp:        s.CPUTemp,
		CPUPercent:     s.CPUPercent,
		SatelliteCount: s.SatelliteCount,
		GPSOK:          s.GPSOK,

		Calibrated:          s.Calibrated,
		WorldObjectsVisible: s.WorldObjectsVisible,
		Camera:              s.Camera.String(),
		MaxDistance:         s.MaxDistance,
		LaneLineProbs:       s.LaneLineProbs,
		RoadEdgeStds:        s.RoadEdgeStds,
		Paths:               make(wsPaths, geometry.NumBuffers),
	}
	for id := geometry.BufferID(0); id < geometry.NumBuffers; id++ {
		pts := s.Geometry.Get(id).Points()
		out := make([][2]float64, len(pts))
		for i, p := range pts {
			out[i] = [2]float64{p.X, p.Y}
		}
		d.Paths[id.String()] = out
	}
	for i, l := range s.Leads {
		d.Leads[i] = wsLeadData{X: l.Point.X, Y: l.Point.Y, Prob: l.Prob, Valid: l.Valid, Visible: l.Visible}
	}
	return d
}

// convertBroadcast maps a daemon broadcast onto its WS event.
func convertBroadcast(b Broadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastScene:
		if ev.Snap == nil {
			return wsOutboundEvent{}, false
		}
		return wsOutboundEvent{Type: wsTypeSceneUpdate, Data: sceneData(ev.Snap), At: ev.At}, true

	case BroadcastOnroad:
		return wsOutboundEvent{
			Type: wsTypeOnroadChanged,
			Data: wsOnroadData{Onroad: ev.Onroad, SessionID: ev.SessionID},
			At:   ev.At,
		}, true

	case BroadcastDisplayPower:
		return wsOutboundEvent{Type: wsTypeDisplayPower, Data: wsDisplayPowerData{On: ev.On}, At: ev.At}, true

	default:
		return wsOutboundEvent{}, false
	}
}

func wsTypeOf(b Broadcast) string {
	switch b.(type) {
	case BroadcastScene:
		return wsTypeSceneUpdate
	case BroadcastOnroad:
		return wsTypeOnroadChanged
	case BroadcastDisplayPower:
		return wsTypeDisplayPower
	default:
		return "unknown"
	}
}
