package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikoskalogridis/scenestate/internal/device"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
//   - The aggregator owns the scene; one Tick per loop iteration.
//   - The device engine turns the published snapshot into display commands.
//   - The executor is the only place that performs display side effects.
//   - Wakefulness is fed back so the next snapshot reports it.
//
// Onroad, Tick paces itself on the camera stream (or a fixed sleep), so the
// loop only checks for cancellation between ticks. Offroad, the loop waits
// for the aggregator's offroad interval.
//
// ============================================================================

// sceneEngine is the part of the aggregator the daemon loop drives.
type sceneEngine interface {
	Tick()
	Snapshot() *scene.Snapshot
	SetAwake(on bool)
	Interval() time.Duration
	Close()
}

type commandRunner interface {
	RunAll(cmds []device.Command) error
}

// runDaemon ticks the scene until ctx is canceled.
func runDaemon(ctx context.Context, eng sceneEngine, dev *device.Device, exec commandRunner, logger *slog.Logger) {
	defer eng.Close()

	logger.Info("daemon loop starting")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		eng.Tick()

		cmds := dev.Update(eng.Snapshot())
		if err := exec.RunAll(cmds); err != nil {
			logger.Warn("display command failed", "error", err)
		}
		eng.SetAwake(dev.Awake())

		wait := eng.Interval()
		if wait <= 0 {
			if ctx.Err() != nil {
				logger.Info("daemon loop stopping (context canceled)")
				return
			}
			continue
		}

		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			logger.Info("daemon loop stopping (context canceled)")
			return
		case <-timer.C:
		}
	}
}
