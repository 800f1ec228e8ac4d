package waclient

import "time"

// BridgeConfig locates the browser bridge sidecar.
type BridgeConfig struct {
	URL          string        `env:"BRIDGE_URL" envDefault:"ws://localhost:3000"`
	Token        string        `env:"BRIDGE_TOKEN"` // sent as a bearer token when set
	DialTimeout  time.Duration `env:"BRIDGE_DIAL_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"BRIDGE_WRITE_TIMEOUT" envDefault:"5s"`
	PingInterval time.Duration `env:"BRIDGE_PING_INTERVAL" envDefault:"20s"`
	MaxFrameSize int64         `env:"BRIDGE_MAX_FRAME_SIZE" envDefault:"4194304"` // credentials can be large
}

func (c BridgeConfig) withDefaults() BridgeConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = 4 << 20
	}
	return c
}
