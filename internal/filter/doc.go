// Package filter holds the small stateful scalar filters used by the scene
// aggregator and the device engine: a first-order low-pass, a bounded linear
// fade and an incremental rolling grade average.
//
// None of the filters are safe for concurrent use. They are owned by the
// goroutine that ticks them.
package filter
