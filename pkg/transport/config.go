package transport

import (
	"time"

	"github.com/dmitrymomot/wamux/pkg/ratelimiter"
)

// Config holds transport settings loaded from the environment.
type Config struct {
	// AllowedOrigins restricts browser origins for /ws and CORS. Empty means
	// same host or localhost only.
	AllowedOrigins []string      `env:"TRANSPORT_ALLOWED_ORIGINS" envSeparator:","`
	ReadLimit      int64         `env:"TRANSPORT_WS_READ_LIMIT" envDefault:"1048576"`
	PingInterval   time.Duration `env:"TRANSPORT_WS_PING_INTERVAL" envDefault:"30s"`
	PongWait       time.Duration `env:"TRANSPORT_WS_PONG_WAIT" envDefault:"60s"`
	WriteWait      time.Duration `env:"TRANSPORT_WS_WRITE_WAIT" envDefault:"10s"`
	MaxBodySize    int64         `env:"TRANSPORT_MAX_BODY_SIZE" envDefault:"65536"`

	// TrustedIPHeaders are proxy headers believed when resolving the client
	// address. Leave empty unless a proxy overwrites them.
	TrustedIPHeaders []string `env:"TRANSPORT_TRUSTED_IP_HEADERS" envSeparator:","`

	SendBurst     int           `env:"TRANSPORT_SEND_BURST" envDefault:"30"`
	SendRefill    time.Duration `env:"TRANSPORT_SEND_REFILL" envDefault:"2s"`
	ConnectBurst  int           `env:"TRANSPORT_CONNECT_BURST" envDefault:"20"`
	ConnectRefill time.Duration `env:"TRANSPORT_CONNECT_REFILL" envDefault:"3s"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    1 << 20,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		MaxBodySize:  64 << 10,

		SendBurst:     30,
		SendRefill:    2 * time.Second,
		ConnectBurst:  20,
		ConnectRefill: 3 * time.Second,
	}
}

// SendLimit is the per-tenant bucket for POST /api/messages.
func (c Config) SendLimit() ratelimiter.Config {
	return ratelimiter.Config{Capacity: c.SendBurst, RefillRate: 1, RefillInterval: c.SendRefill}
}

// ConnectLimit is the per-client-address bucket for /ws upgrades.
func (c Config) ConnectLimit() ratelimiter.Config {
	return ratelimiter.Config{Capacity: c.ConnectBurst, RefillRate: 1, RefillInterval: c.ConnectRefill}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadLimit <= 0 {
		c.ReadLimit = d.ReadLimit
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = 2 * c.PingInterval
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = d.MaxBodySize
	}
	return c
}
