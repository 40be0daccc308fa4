//go:build linux

package timeutil

import (
	"time"

	"golang.org/x/sys/unix"
)

// bootClock reads CLOCK_BOOTTIME, which keeps counting through suspend.
type bootClock struct{}

func (bootClock) Seconds() float64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return fallback.Seconds()
	}
	return float64(ts.Sec) + float64(ts.Nsec)*1e-9
}

func (bootClock) Sleep(d time.Duration) { time.Sleep(d) }

var fallback = monoClock{start: time.Now()}

// NewBootClock returns the seconds-since-boot clock.
func NewBootClock() Clock { return bootClock{} }
