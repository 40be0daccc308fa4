package main

import "time"

var version = "dev"

const (
	defaultConfigPath = "/etc/scened/config.yaml"
	defaultSocketPath = "/tmp/scened.sock"
	defaultListenAddr = "127.0.0.1:8765"
	defaultWSPath     = "/ws"

	// broadcastQueueSize buffers daemon broadcasts for the WebSocket
	// broadcaster; overflow is dropped.
	broadcastQueueSize = 64

	// wsSceneCoalesceWindow is the maximum time window during which scene
	// updates are coalesced (latest wins) before broadcasting to clients.
	wsSceneCoalesceWindow = 50 * time.Millisecond

	httpShutdownTimeout = 3 * time.Second
)
