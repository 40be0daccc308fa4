package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoskalogridis/scenestate/internal/device"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

type fakeEngine struct {
	mu       sync.Mutex
	ticks    int
	awake    []bool
	closed   bool
	started  bool
	interval time.Duration

	// onTick runs after each tick with the tick count.
	onTick func(n int)
}

func (f *fakeEngine) Tick() {
	f.mu.Lock()
	f.ticks++
	n := f.ticks
	f.mu.Unlock()
	if f.onTick != nil {
		f.onTick(n)
	}
}

func (f *fakeEngine) Snapshot() *scene.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &scene.Snapshot{Frame: uint64(f.ticks), Started: f.started, Ignition: f.started}
}

func (f *fakeEngine) SetAwake(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awake = append(f.awake, on)
}

func (f *fakeEngine) Interval() time.Duration {
	if f.started {
		return 0
	}
	return f.interval
}

func (f *fakeEngine) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeRunner struct {
	cmds []device.Command
	err  error
}

func (r *fakeRunner) RunAll(cmds []device.Command) error {
	r.cmds = append(r.cmds, cmds...)
	return r.err
}

func runDaemonAsync(t *testing.T, ctx context.Context, eng *fakeEngine, run *fakeRunner) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(ctx, eng, device.New(device.DefaultConfig()), run, slog.Default())
	}()
	return done
}

func TestRunDaemon_OffroadTicksAtInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := &fakeEngine{interval: time.Millisecond}
	eng.onTick = func(n int) {
		if n == 5 {
			cancel()
		}
	}
	run := &fakeRunner{}

	done := runDaemonAsync(t, ctx, eng, run)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("daemon did not stop")
	}

	assert.Equal(t, 5, eng.ticks)
	assert.True(t, eng.closed)
	require.Len(t, eng.awake, 5)
	for _, a := range eng.awake {
		assert.True(t, a)
	}
	// Offroad, the first update powers the display and sets offroad brightness.
	require.NotEmpty(t, run.cmds)
	assert.Equal(t, device.CmdSetDisplayPower{On: true}, run.cmds[0])
	assert.Contains(t, run.cmds, device.Command(device.CmdSetBrightness{Percent: 75}))
}

func TestRunDaemon_OnroadLoopsWithoutWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An hour-long interval would stall the test if the loop waited onroad.
	eng := &fakeEngine{interval: time.Hour, started: true}
	eng.onTick = func(n int) {
		if n == 50 {
			cancel()
		}
	}

	done := runDaemonAsync(t, ctx, eng, &fakeRunner{err: errors.New("display gone")})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("daemon did not stop")
	}
	assert.Equal(t, 50, eng.ticks)
	assert.True(t, eng.closed)
}

func TestRunDaemon_CancelDuringOffroadWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	eng := &fakeEngine{interval: time.Hour}
	done := runDaemonAsync(t, ctx, eng, &fakeRunner{})

	waitUntil(t, time.Second, func() bool {
		eng.mu.Lock()
		defer eng.mu.Unlock()
		return eng.ticks == 1
	}, "first tick not run")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("daemon did not stop")
	}
	assert.Equal(t, 1, eng.ticks)
}
