package waclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/waclient"
)

// recorder is a waclient.Handler that collects events.
type recorder struct {
	mu     sync.Mutex
	events []string
	cred   []byte
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) OnQR(code string) { r.add("qr:" + code) }
func (r *recorder) OnAuthenticated(c []byte) {
	r.mu.Lock()
	r.cred = c
	r.mu.Unlock()
	r.add("authenticated")
}
func (r *recorder) OnReady()                     { r.add("ready") }
func (r *recorder) OnAuthFailure(reason string)  { r.add("auth_failure:" + reason) }
func (r *recorder) OnDisconnected(reason string) { r.add("disconnected:" + reason) }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// sidecar is a scripted bridge. Each accepted frame is passed to onFrame,
// which may reply through the connection.
type sidecar struct {
	t       *testing.T
	srv     *httptest.Server
	mu      sync.Mutex
	conn    *websocket.Conn
	frames  []map[string]any
	paths   []string
	auth    []string
	onFrame func(conn *websocket.Conn, f map[string]any)
}

func newSidecar(t *testing.T, onFrame func(conn *websocket.Conn, f map[string]any)) *sidecar {
	t.Helper()
	s := &sidecar{t: t, onFrame: onFrame}
	up := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.paths = append(s.paths, r.URL.Path)
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()
		for {
			var f map[string]any
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.mu.Lock()
			s.frames = append(s.frames, f)
			s.mu.Unlock()
			if s.onFrame != nil {
				s.onFrame(conn, f)
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *sidecar) url() string { return "ws" + strings.TrimPrefix(s.srv.URL, "http") }

func (s *sidecar) frameTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, f["type"].(string))
	}
	return out
}

func (s *sidecar) push(v any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(s.t, conn)
	require.NoError(s.t, conn.WriteJSON(v))
}

func (s *sidecar) dropConnection() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	_ = conn.Close()
}

func ack(conn *websocket.Conn, f map[string]any) {
	_ = conn.WriteJSON(map[string]any{"type": "result", "id": f["id"]})
}

func newBridge(t *testing.T, sc *sidecar, cred []byte, h waclient.Handler) waclient.Client {
	t.Helper()
	factory := waclient.NewBridgeFactory(waclient.BridgeConfig{
		URL:          sc.url(),
		Token:        "secret",
		PingInterval: time.Second,
	})
	c, err := factory(context.Background(), waclient.Options{TenantID: "school-1", Credential: cred, Handler: h})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Destroy(context.Background()) })
	return c
}

func TestBridgeInitializeAndEvents(t *testing.T) {
	t.Parallel()

	var initFrame map[string]any
	var mu sync.Mutex
	sc := newSidecar(t, func(conn *websocket.Conn, f map[string]any) {
		if f["type"] == "init" {
			mu.Lock()
			initFrame = f
			mu.Unlock()
			ack(conn, f)
		}
	})
	rec := &recorder{}
	c := newBridge(t, sc, []byte("stored-session"), rec)

	require.NoError(t, c.Initialize(context.Background()))

	mu.Lock()
	require.NotNil(t, initFrame)
	assert.NotEmpty(t, initFrame["id"])
	raw, _ := json.Marshal([]byte("stored-session"))
	assert.Equal(t, strings.Trim(string(raw), `"`), initFrame["credential"])
	mu.Unlock()

	sc.mu.Lock()
	assert.Equal(t, []string{"/sessions/school-1"}, sc.paths)
	assert.Equal(t, []string{"Bearer secret"}, sc.auth)
	sc.mu.Unlock()

	sc.push(map[string]any{"type": "qr", "qr": "2@abc"})
	sc.push(map[string]any{"type": "authenticated", "credential": []byte("fresh")})
	sc.push(map[string]any{"type": "ready"})
	sc.push(map[string]any{"type": "disconnected", "reason": "LOGOUT"})

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"qr:2@abc", "authenticated", "ready", "disconnected:LOGOUT"}, rec.snapshot())
	rec.mu.Lock()
	assert.Equal(t, []byte("fresh"), rec.cred)
	rec.mu.Unlock()
}

func TestBridgeRequests(t *testing.T) {
	t.Parallel()

	sc := newSidecar(t, func(conn *websocket.Conn, f map[string]any) {
		switch f["type"] {
		case "init", "logout":
			ack(conn, f)
		case "send":
			if f["chat_id"] == "0@c.us" {
				_ = conn.WriteJSON(map[string]any{"type": "result", "id": f["id"], "error": "number not on network"})
				return
			}
			ack(conn, f)
		}
	})
	c := newBridge(t, sc, nil, &recorder{})
	require.NoError(t, c.Initialize(context.Background()))

	require.NoError(t, c.SendMessage(context.Background(), "5511999998888@c.us", "hello"))

	err := c.SendMessage(context.Background(), "0@c.us", "hello")
	require.ErrorIs(t, err, waclient.ErrRemote)
	assert.Contains(t, err.Error(), "number not on network")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, []string{"init", "send", "send", "logout"}, sc.frameTypes())
}

func TestBridgeRequestTimeout(t *testing.T) {
	t.Parallel()

	sc := newSidecar(t, func(conn *websocket.Conn, f map[string]any) {
		if f["type"] == "init" {
			ack(conn, f)
		}
	})
	c := newBridge(t, sc, nil, &recorder{})
	require.NoError(t, c.Initialize(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.SendMessage(ctx, "1@c.us", "never answered"), context.DeadlineExceeded)
}

func TestBridgeDestroy(t *testing.T) {
	t.Parallel()

	sc := newSidecar(t, func(conn *websocket.Conn, f map[string]any) {
		if f["type"] == "init" {
			ack(conn, f)
		}
	})
	rec := &recorder{}
	c := newBridge(t, sc, nil, rec)
	require.NoError(t, c.Initialize(context.Background()))

	errCh := make(chan error, 1)
	go func() { errCh <- c.SendMessage(context.Background(), "1@c.us", "pending") }()
	require.Eventually(t, func() bool { return len(sc.frameTypes()) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Destroy(context.Background()))
	require.NoError(t, c.Destroy(context.Background()), "destroy is idempotent")

	assert.ErrorIs(t, <-errCh, waclient.ErrClosed)
	require.Eventually(t, func() bool {
		types := sc.frameTypes()
		return len(types) == 3 && types[2] == "destroy"
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.SendMessage(context.Background(), "1@c.us", "late"), waclient.ErrClosed)
	assert.ErrorIs(t, c.Initialize(context.Background()), waclient.ErrClosed)
	assert.Empty(t, rec.snapshot(), "no disconnect event after an explicit destroy")
}

func TestBridgeConnectionLost(t *testing.T) {
	t.Parallel()

	sc := newSidecar(t, func(conn *websocket.Conn, f map[string]any) {
		if f["type"] == "init" {
			ack(conn, f)
		}
	})
	rec := &recorder{}
	c := newBridge(t, sc, nil, rec)
	require.NoError(t, c.Initialize(context.Background()))

	sc.dropConnection()

	require.Eventually(t, func() bool {
		ev := rec.snapshot()
		return len(ev) == 1 && ev[0] == "disconnected:"+waclient.ReasonBridgeLost
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "1@c.us", "x"), waclient.ErrClosed)
}

func TestBridgeUnavailable(t *testing.T) {
	t.Parallel()

	factory := waclient.NewBridgeFactory(waclient.BridgeConfig{URL: "ws://127.0.0.1:1"})
	c, err := factory(context.Background(), waclient.Options{TenantID: "school-1", Handler: &recorder{}})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Initialize(context.Background()), waclient.ErrBridgeUnavailable)

	_, err = waclient.NewBridgeFactory(waclient.BridgeConfig{URL: "http://bridge"})(
		context.Background(), waclient.Options{TenantID: "school-1", Handler: &recorder{}})
	assert.ErrorIs(t, err, waclient.ErrBridgeUnavailable)

	assert.ErrorIs(t, c.SendMessage(context.Background(), "1@c.us", "x"), waclient.ErrNotConnected)
}
