package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoskalogridis/scenestate/internal/geometry"
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/projection"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

func TestBroadcaster_EmitsListenerEvents(t *testing.T) {
	out := make(chan Broadcast, 4)
	snap := &scene.Snapshot{Frame: 12, Started: true, SessionID: "sess"}
	b := newBroadcaster(out, func() *scene.Snapshot { return snap }, slog.Default())

	var _ scene.Listener = b

	b.OnOnroadTransition(true)
	b.OnTick(snap)
	b.OnDisplayPower(false)
	b.OnOnroadTransition(false)

	require.Len(t, out, 4)

	on := (<-out).(BroadcastOnroad)
	assert.True(t, on.Onroad)
	assert.Equal(t, "sess", on.SessionID)
	assert.False(t, on.At.IsZero())

	sc := (<-out).(BroadcastScene)
	assert.Same(t, snap, sc.Snap)

	dp := (<-out).(BroadcastDisplayPower)
	assert.False(t, dp.On)

	// Leaving onroad carries no session.
	off := (<-out).(BroadcastOnroad)
	assert.False(t, off.Onroad)
	assert.Empty(t, off.SessionID)
}

func TestBroadcaster_DropsWhenQueueFull(t *testing.T) {
	out := make(chan Broadcast, 1)
	b := newBroadcaster(out, func() *scene.Snapshot { return nil }, slog.Default())

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.OnTick(&scene.Snapshot{Frame: 1})
		b.OnTick(&scene.Snapshot{Frame: 2})
		b.OnOnroadTransition(true)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcaster blocked on a full queue")
	}

	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), (<-out).(BroadcastScene).Snap.Frame)
}

func TestSceneData(t *testing.T) {
	s := &scene.Snapshot{
		Frame:     40,
		Time:      12.5,
		Status:    scene.StatusWarning,
		Started:   true,
		PandaType: msg.PandaUnknown,
		Awake:     true,
		Camera:    projection.CameraRoad,
		CarState:  msg.CarState{VEgo: 22},
		EngineRPM: 1800,
		Leads: [2]geometry.LeadMarker{
			{Point: projection.Point{X: 960, Y: 500}, Prob: 0.8, Valid: true, Visible: true},
		},
	}
	s.Settings.IsMetric = true
	track := s.Geometry.Get(geometry.Track)
	track.V[0] = projection.Point{X: 1, Y: 2}
	track.V[1] = projection.Point{X: 3, Y: 4}
	track.Cnt = 2

	d := sceneData(s)

	assert.Equal(t, uint64(40), d.Frame)
	assert.Equal(t, "warning", d.Status)
	assert.Equal(t, "unknown", d.PandaType)
	assert.True(t, d.IsMetric)
	assert.Equal(t, 22.0, d.VEgo)
	assert.Equal(t, 1800, d.EngineRPM)
	assert.Equal(t, projection.CameraRoad.String(), d.Camera)

	require.Len(t, d.Paths, int(geometry.NumBuffers))
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}}, d.Paths[geometry.Track.String()])
	assert.Empty(t, d.Paths[geometry.RoadEdge1.String()])

	assert.Equal(t, wsLeadData{X: 960, Y: 500, Prob: 0.8, Valid: true, Visible: true}, d.Leads[0])
	assert.False(t, d.Leads[1].Valid)
}

func TestConvertBroadcast(t *testing.T) {
	at := time.Unix(100, 0).UTC()

	ev, ok := convertBroadcast(BroadcastScene{Snap: &scene.Snapshot{Frame: 3}, At: at})
	require.True(t, ok)
	assert.Equal(t, wsTypeSceneUpdate, ev.Type)
	assert.Equal(t, at, ev.At)
	assert.Equal(t, uint64(3), ev.Data.(wsSceneData).Frame)

	_, ok = convertBroadcast(BroadcastScene{})
	assert.False(t, ok)

	ev, ok = convertBroadcast(BroadcastOnroad{Onroad: true, SessionID: "x"})
	require.True(t, ok)
	assert.Equal(t, wsTypeOnroadChanged, ev.Type)
	assert.Equal(t, wsOnroadData{Onroad: true, SessionID: "x"}, ev.Data)

	ev, ok = convertBroadcast(BroadcastDisplayPower{On: true})
	require.True(t, ok)
	assert.Equal(t, wsTypeDisplayPower, ev.Type)
	assert.Equal(t, wsDisplayPowerData{On: true}, ev.Data)

	_, ok = convertBroadcast(nil)
	assert.False(t, ok)

	assert.Equal(t, wsTypeDisplayPower, wsTypeOf(BroadcastDisplayPower{}))
	assert.Equal(t, "unknown", wsTypeOf(nil))
}
