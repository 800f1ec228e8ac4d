package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrymomot/wamux/pkg/logger"
)

var (
	ErrStart          = errors.New("httpserver: listener failed")
	ErrAlreadyRunning = errors.New("httpserver: Run called twice")
	ErrShutdown       = errors.New("httpserver: unclean shutdown")
)

// Option configures a Server.
type Option func(*Server)

// WithLogger supplies a logger. Nil keeps the no-op default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStartHook registers a callback that receives the bound address once
// the listener is open and before the first request is accepted.
func WithStartHook(h func(net.Addr)) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(s *Server) { s.startHooks = append(s.startHooks, h) }
}

// WithShutdownHook registers a callback that runs after the HTTP server has
// stopped accepting requests. Hooks run in registration order and share the
// shutdown deadline. cmd/wamux closes WebSocket peers and live sessions here;
// http.Server.Shutdown does not track hijacked connections.
func WithShutdownHook(h func(context.Context) error) Option {
	if h == nil {
		panic("httpserver: nil shutdown hook")
	}
	return func(s *Server) { s.shutdownHooks = append(s.shutdownHooks, h) }
}

// Server wraps http.Server with signal handling and an ordered shutdown.
type Server struct {
	cfg           Config
	log           *slog.Logger
	startHooks    []func(net.Addr)
	shutdownHooks []func(context.Context) error

	mu  sync.Mutex
	srv *http.Server

	once        sync.Once
	shutdownErr error
}

func New(cfg Config, opts ...Option) *Server {
	s := &Server{cfg: cfg.withDefaults(), log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves handler until ctx is cancelled, SIGINT/SIGTERM arrives, or
// Shutdown is called. Listener failures are wrapped with ErrStart.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
	for _, h := range s.startHooks {
		h(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	served := false
	select {
	case <-ctx.Done():
	case sig := <-sigs:
		s.log.Info("received signal, shutting down", slog.String("signal", sig.String()))
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = s.Shutdown(context.Background())
			return errors.Join(ErrStart, err)
		}
		served = true
	}

	// Also waits for a concurrent Shutdown to finish its hooks.
	shutdownErr := s.Shutdown(context.Background())
	if !served {
		if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(shutdownErr, err)
		}
	}
	return shutdownErr
}

// Shutdown drains HTTP requests, then runs the shutdown hooks, all within
// the shutdown timeout. Only the first call does any work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		for _, h := range s.shutdownHooks {
			if err := h(ctx); err != nil {
				s.log.ErrorContext(ctx, "shutdown hook failed", logger.Error(err))
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			s.shutdownErr = errors.Join(append([]error{ErrShutdown}, errs...)...)
		}
	})
	return s.shutdownErr
}
