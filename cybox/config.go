package cybox

import "time"

const autoPingPrefix = "auto-"

// Config controls one connection attempt and the session behavior built
// on top of it.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the chat server.
	URL string

	// Username is the preferred display name. The session re-asserts it
	// on every successful connect because server-side identity does not
	// survive a reconnect. Empty means the server-assigned guest name is
	// kept.
	Username string

	// HandshakeTimeout bounds the dial plus protocol upgrade. Zero
	// disables the timeout.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single outbound frame write. Zero disables
	// it. There is deliberately no read timeout: an idle chat connection
	// can stay silent indefinitely.
	WriteTimeout time.Duration

	// AutoPingInterval is the cadence of automatic latency probes while
	// connected. Zero disables auto-ping.
	AutoPingInterval time.Duration

	// LatencyWindow bounds the rolling round-trip sample buffer.
	LatencyWindow int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://127.0.0.1:3001",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		AutoPingInterval: 5 * time.Second,
		LatencyWindow:    100,
	}
}
