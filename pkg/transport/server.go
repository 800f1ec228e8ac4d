package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wamux/pkg/clientip"
	"github.com/dmitrymomot/wamux/pkg/handler"
	"github.com/dmitrymomot/wamux/pkg/httpserver"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/ratelimiter"
	"github.com/dmitrymomot/wamux/pkg/requestid"
	"github.com/dmitrymomot/wamux/pkg/router"
	"github.com/dmitrymomot/wamux/pkg/supervisor"
)

// Sessions is the part of the supervisor the transport drives.
type Sessions interface {
	Start(ctx context.Context, tenantID, connID string) error
	StartWithCredential(ctx context.Context, tenantID, connID string, credential []byte) error
	Stop(ctx context.Context, tenantID string) error
	SendMessage(ctx context.Context, tenantID, recipient, body string) error
	HandleConnectionClosed(ctx context.Context, connID string)
	Sessions() []supervisor.SessionInfo
}

var _ Sessions = (*supervisor.Supervisor)(nil)

// Server exposes the supervisor over WebSocket and HTTP.
type Server struct {
	sessions Sessions
	router   *router.Router
	cfg      Config
	log      *slog.Logger
	checks   []func(context.Context) error
	errs     handler.ErrorHandler
	origins  map[string]bool
	upgrader websocket.Upgrader

	sendLimiter    *ratelimiter.Bucket
	connectLimiter *ratelimiter.Bucket
}

type Option func(*Server)

func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReadinessChecks adds dependency checks served on /health/ready.
func WithReadinessChecks(checks ...func(context.Context) error) Option {
	return func(s *Server) {
		s.checks = append(s.checks, checks...)
	}
}

// WithSendLimiter limits POST /api/messages per tenant.
func WithSendLimiter(b *ratelimiter.Bucket) Option {
	return func(s *Server) {
		s.sendLimiter = b
	}
}

// WithConnectLimiter limits /ws upgrades per client address.
func WithConnectLimiter(b *ratelimiter.Bucket) Option {
	return func(s *Server) {
		s.connectLimiter = b
	}
}

func New(sessions Sessions, rt *router.Router, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		router:   rt,
		cfg:      DefaultConfig(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.log = s.log.With(logger.Component("transport"))
	s.errs = handler.NewErrorHandler(s.log,
		handler.WithClassifier(classifySupervisorError),
		handler.WithRenderer(renderFailure),
	)

	s.origins = make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			s.origins[strings.TrimSuffix(o, "/")] = true
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware(s.cfg.TrustedIPHeaders...))
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health/live", httpserver.HealthCheckHandler(s.log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(s.log, s.checks...))

	r.With(s.limitConnects).Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.sendMessage())
		r.Get("/sessions", s.listSessions())
		r.Delete("/sessions/{tenantID}", s.stopSession())
	})
	return r
}

// checkOrigin accepts requests without an Origin header, origins on the
// allow-list, and otherwise only the same host or loopback.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.origins) > 0 {
		return s.origins[origin]
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || len(s.origins) == 0 || !s.origins[origin] {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitConnects(next http.Handler) http.Handler {
	if s.connectLimiter == nil {
		return next
	}
	return ratelimiter.Middleware(s.connectLimiter, func(r *http.Request) string {
		return clientip.FromContext(r.Context())
	}, s.log)(next)
}
