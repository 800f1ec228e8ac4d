package waclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wamux/pkg/logger"
)

var (
	ErrNotConnected       = errors.New("waclient: bridge not connected")
	ErrAlreadyInitialized = errors.New("waclient: already initialized")
	ErrBridgeUnavailable  = errors.New("waclient: bridge unavailable")
)

// ReasonBridgeLost is reported through OnDisconnected when the bridge
// socket drops without Destroy being called.
const ReasonBridgeLost = "bridge connection lost"

type BridgeOption func(*bridgeOptions)

type bridgeOptions struct {
	log    *slog.Logger
	dialer *websocket.Dialer
}

func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(o *bridgeOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDialer overrides the websocket dialer, e.g. for custom TLS.
func WithDialer(d *websocket.Dialer) BridgeOption {
	return func(o *bridgeOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// NewBridgeFactory returns a Factory whose clients talk to the browser
// bridge at cfg.URL, one WebSocket per tenant session.
func NewBridgeFactory(cfg BridgeConfig, opts ...BridgeOption) Factory {
	cfg = cfg.withDefaults()
	o := &bridgeOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.dialer == nil {
		o.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		}
	}

	return func(_ context.Context, opts Options) (Client, error) {
		if opts.Handler == nil {
			return nil, errors.New("waclient: handler is required")
		}
		endpoint, err := sessionURL(cfg.URL, opts.TenantID)
		if err != nil {
			return nil, err
		}
		return &Bridge{
			cfg:        cfg,
			endpoint:   endpoint,
			credential: opts.Credential,
			handler:    opts.Handler,
			dialer:     o.dialer,
			log:        o.log.With(logger.Component("bridge"), logger.TenantID(opts.TenantID)),
			pending:    make(map[string]chan error),
			done:       make(chan struct{}),
		}, nil
	}
}

func sessionURL(base, tenantID string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", errors.Join(ErrBridgeUnavailable, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrBridgeUnavailable, u.Scheme)
	}
	return u.String() + "/sessions/" + url.PathEscape(tenantID), nil
}

// Bridge is a Client backed by a WebSocket to the browser bridge.
// Requests carry a uuid and are answered by a result frame with the same id.
type Bridge struct {
	cfg        BridgeConfig
	endpoint   string
	credential []byte
	handler    Handler
	dialer     *websocket.Dialer
	log        *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan error
	closed  bool

	done        chan struct{} // closed when the read loop exits
	destroyOnce sync.Once
}

// Initialize dials the bridge and asks it to start a browser session,
// restoring the credential when one was given.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	switch {
	case b.closed:
		b.mu.Unlock()
		return ErrClosed
	case b.conn != nil:
		b.mu.Unlock()
		return ErrAlreadyInitialized
	}
	b.mu.Unlock()

	header := http.Header{}
	if b.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+b.cfg.Token)
	}
	conn, resp, err := b.dialer.DialContext(ctx, b.endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return errors.Join(ErrBridgeUnavailable, err)
	}
	conn.SetReadLimit(b.cfg.MaxFrameSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	b.conn = conn
	b.mu.Unlock()

	go b.readLoop(conn)
	go b.pingLoop(conn)

	return b.call(ctx, outFrame{Type: frameInit, Credential: b.credential})
}

func (b *Bridge) SendMessage(ctx context.Context, chatID, body string) error {
	return b.call(ctx, outFrame{Type: frameSend, ChatID: chatID, Body: body})
}

func (b *Bridge) Logout(ctx context.Context) error {
	return b.call(ctx, outFrame{Type: frameLogout})
}

// Destroy tells the bridge to close the browser, then closes the socket.
// Pending requests fail with ErrClosed. No events are delivered afterwards.
func (b *Bridge) Destroy(ctx context.Context) error {
	b.destroyOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		conn := b.conn
		b.mu.Unlock()

		if conn == nil {
			close(b.done)
			return
		}

		if err := b.write(conn, outFrame{Type: frameDestroy}); err != nil {
			b.log.DebugContext(ctx, "destroy frame not delivered", logger.Error(err))
		}
		b.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "destroy"),
			time.Now().Add(b.cfg.WriteTimeout))
		b.writeMu.Unlock()
		_ = conn.Close()
		b.failPending(ErrClosed)
	})

	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (b *Bridge) call(ctx context.Context, f outFrame) error {
	f.ID = uuid.NewString()
	ch := make(chan error, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return ErrNotConnected
	}
	b.pending[f.ID] = ch
	b.mu.Unlock()

	if err := b.write(conn, f); err != nil {
		b.dropPending(f.ID)
		return errors.Join(ErrBridgeUnavailable, err)
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		b.dropPending(f.ID)
		return ctx.Err()
	}
}

func (b *Bridge) write(conn *websocket.Conn, f outFrame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
	return conn.WriteJSON(f)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer close(b.done)

	pongWait := 2 * b.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f inFrame
		if err := conn.ReadJSON(&f); err != nil {
			b.mu.Lock()
			closed := b.closed
			b.closed = true
			b.mu.Unlock()
			b.failPending(ErrClosed)
			_ = conn.Close()
			if !closed {
				b.log.Warn("bridge connection lost", logger.Error(err))
				b.handler.OnDisconnected(ReasonBridgeLost)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		b.dispatch(f)
	}
}

func (b *Bridge) dispatch(f inFrame) {
	switch f.Type {
	case frameQR:
		b.handler.OnQR(f.QR)
	case frameAuthenticated:
		b.handler.OnAuthenticated(f.Credential)
	case frameReady:
		b.handler.OnReady()
	case frameAuthFailure:
		b.handler.OnAuthFailure(f.Reason)
	case frameDisconnected:
		b.handler.OnDisconnected(f.Reason)
	case frameResult:
		var err error
		if f.Error != "" {
			err = fmt.Errorf("%w: %s", ErrRemote, f.Error)
		}
		b.resolve(f.ID, err)
	default:
		b.log.Debug("unknown bridge frame", slog.String("type", f.Type))
	}
}

func (b *Bridge) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(b.cfg.WriteTimeout))
			b.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (b *Bridge) resolve(id string, err error) {
	b.mu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if ok {
		ch <- err
	}
}

func (b *Bridge) dropPending(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Bridge) failPending(err error) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]chan error)
	b.mu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}
