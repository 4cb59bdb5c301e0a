package chord

import "time"

// Config tunes a Node's behavior. Mirrors the teacher's flat
// Config/DefaultConfig constructor pattern.
type Config struct {
	BindHost string // Local interface to listen on, e.g. "0.0.0.0"
	Port     int    // TCP port to bind and announce

	AnnouncedIP string // Overrides auto-detection (§6.2) when non-empty

	CallTimeout time.Duration // Per-call RPC timeout (connect+send+recv), default 5s

	StabilizeMin time.Duration // Minimum interval between stabilize runs
	StabilizeMax time.Duration // Maximum interval between stabilize runs

	MaxConns int // Cap on concurrent in-flight RPC server connections
}

// DefaultConfig returns sane defaults for a node bound to bindHost:port.
func DefaultConfig(bindHost string, port int) *Config {
	return &Config{
		BindHost:     bindHost,
		Port:         port,
		AnnouncedIP:  "",
		CallTimeout:  5 * time.Second,
		StabilizeMin: 5 * time.Second,
		StabilizeMax: 15 * time.Second,
		MaxConns:     256,
	}
}
