package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hardware drives the physical display.
type Hardware interface {
	SetDisplayPower(on bool) error
	SetBrightness(percent int) error
}

// PowerListener is notified after every display power change.
type PowerListener func(on bool)

// errNoHardware indicates a command was run without a hardware backend.
type errNoHardware struct{}

func (errNoHardware) Error() string { return "no display hardware" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string {
	return fmt.Sprintf("unknown device command: %s", e.cmd)
}

// Executor runs Device commands. Display power is applied synchronously;
// brightness writes are handed to a BrightnessWorker when one is set.
type Executor struct {
	hw     Hardware
	worker *BrightnessWorker
	logger *slog.Logger

	mu        sync.Mutex
	listeners []PowerListener
}

// NewExecutor returns an executor for hw. worker may be nil, in which case
// brightness is written inline.
func NewExecutor(hw Hardware, worker *BrightnessWorker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{hw: hw, worker: worker, logger: logger}
}

// OnPowerChange registers fn for display power notifications.
func (e *Executor) OnPowerChange(fn PowerListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Run executes a single command. Hardware errors are logged and returned;
// listeners are notified of power changes regardless.
func (e *Executor) Run(cmd Command) error {
	if e.hw == nil {
		return errNoHardware{}
	}
	switch c := cmd.(type) {
	case CmdSetDisplayPower:
		err := e.hw.SetDisplayPower(c.On)
		if err != nil {
			e.logger.Error("set display power failed", "error", err, "on", c.On)
		} else {
			e.logger.Info("display power", "on", c.On)
		}
		e.mu.Lock()
		ls := append([]PowerListener(nil), e.listeners...)
		e.mu.Unlock()
		for _, fn := range ls {
			fn(c.On)
		}
		return err

	case CmdSetBrightness:
		if e.worker != nil {
			e.worker.Submit(c.Percent)
			return nil
		}
		if err := e.hw.SetBrightness(c.Percent); err != nil {
			e.logger.Warn("set brightness failed", "error", err, "percent", c.Percent)
			return err
		}
		return nil

	default:
		return errUnknownCommand{cmd: cmd}
	}
}

// RunAll executes cmds in order and returns the first error.
func (e *Executor) RunAll(cmds []Command) error {
	var first error
	for _, cmd := range cmds {
		if err := e.Run(cmd); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BrightnessWorker applies brightness writes on its own goroutine so a slow
// backlight never stalls the tick loop. Only the latest pending level is
// kept.
type BrightnessWorker struct {
	hw     Hardware
	logger *slog.Logger
	ch     chan int

	applied atomic.Int64
}

// NewBrightnessWorker returns a worker writing to hw. Call Run to start it.
func NewBrightnessWorker(hw Hardware, logger *slog.Logger) *BrightnessWorker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &BrightnessWorker{hw: hw, logger: logger, ch: make(chan int, 1)}
	w.applied.Store(-1)
	return w
}

// Submit queues percent, replacing any level not yet written. It never
// blocks.
func (w *BrightnessWorker) Submit(percent int) {
	for {
		select {
		case w.ch <- percent:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

// Applied returns the last level written successfully.
func (w *BrightnessWorker) Applied() (int, bool) {
	v := w.applied.Load()
	return int(v), v >= 0
}

// Run writes queued levels until ctx is cancelled.
func (w *BrightnessWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-w.ch:
			if err := w.hw.SetBrightness(p); err != nil {
				w.logger.Warn("set brightness failed", "error", err, "percent", p)
				continue
			}
			w.applied.Store(int64(p))
			w.logger.Debug("brightness applied", "percent", p)
		}
	}
}
