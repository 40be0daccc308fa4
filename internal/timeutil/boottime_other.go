//go:build !linux

package timeutil

import "time"

// NewBootClock returns a clock counting from process start; boot time is
// not available on this platform.
func NewBootClock() Clock { return monoClock{start: time.Now()} }
