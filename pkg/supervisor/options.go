package supervisor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wamux/pkg/qrcode"
)

// ClosePolicy decides what happens to a session when its owning
// connection goes away.
type ClosePolicy string

const (
	// ClosePolicyDestroy tears the session down, keeping its credential.
	ClosePolicyDestroy ClosePolicy = "destroy"
	// ClosePolicyDetach keeps the session running without an owner until
	// another connection starts the tenant again.
	ClosePolicyDetach ClosePolicy = "detach"
)

// Config holds supervisor settings loaded from the environment.
type Config struct {
	WatchdogTimeout time.Duration `env:"SUPERVISOR_WATCHDOG_TIMEOUT" envDefault:"10s"`
	SendTimeout     time.Duration `env:"SUPERVISOR_SEND_TIMEOUT" envDefault:"30s"`
	DestroyTimeout  time.Duration `env:"SUPERVISOR_DESTROY_TIMEOUT" envDefault:"15s"`
	LogoutTimeout   time.Duration `env:"SUPERVISOR_LOGOUT_TIMEOUT" envDefault:"5s"`
	StoreTimeout    time.Duration `env:"SUPERVISOR_STORE_TIMEOUT" envDefault:"5s"`
	ClosePolicy     ClosePolicy   `env:"SUPERVISOR_CLOSE_POLICY" envDefault:"destroy"`
	QRSize          int           `env:"SUPERVISOR_QR_SIZE" envDefault:"256"`

	DeleteCredentialOnDisconnect bool `env:"SUPERVISOR_DELETE_CREDENTIAL_ON_DISCONNECT" envDefault:"false"`
	EmitCredentialDownload       bool `env:"SUPERVISOR_EMIT_CREDENTIAL_DOWNLOAD" envDefault:"false"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		WatchdogTimeout: 10 * time.Second,
		SendTimeout:     30 * time.Second,
		DestroyTimeout:  15 * time.Second,
		LogoutTimeout:   5 * time.Second,
		StoreTimeout:    5 * time.Second,
		ClosePolicy:     ClosePolicyDestroy,
		QRSize:          qrcode.DefaultSize,
	}
}

func (c Config) validate() error {
	switch c.ClosePolicy {
	case ClosePolicyDestroy, ClosePolicyDetach:
	default:
		return fmt.Errorf("%w: unknown close policy %q", ErrInvalidConfig, c.ClosePolicy)
	}
	for name, d := range map[string]time.Duration{
		"watchdog timeout": c.WatchdogTimeout,
		"send timeout":     c.SendTimeout,
		"destroy timeout":  c.DestroyTimeout,
		"logout timeout":   c.LogoutTimeout,
		"store timeout":    c.StoreTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	return nil
}

type Option func(*Supervisor)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Supervisor) {
		s.cfg = cfg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEmitter sets where session events go. Without it events are dropped.
func WithEmitter(e Emitter) Option {
	return func(s *Supervisor) {
		if e != nil {
			s.emitter = e
		}
	}
}

func WithQRRenderer(r *qrcode.Renderer) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.qr = r
		}
	}
}

func WithClosePolicy(p ClosePolicy) Option {
	return func(s *Supervisor) {
		s.cfg.ClosePolicy = p
	}
}

func WithWatchdogTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.cfg.WatchdogTimeout = d
	}
}
