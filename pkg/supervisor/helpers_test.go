package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/supervisor"
	"github.com/dmitrymomot/wamux/pkg/waclient/waclienttest"
)

const (
	tenant  = "school-1"
	connA   = "conn-a"
	connB   = "conn-b"
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type emitted struct {
	Target string
	Event  string
	Data   any
}

// recorder is an Emitter that remembers everything it was asked to deliver.
type recorder struct {
	mu         sync.Mutex
	sent       []emitted
	broadcasts []emitted
	released   []emitted
	panicOn    string
}

func (r *recorder) Send(connID, event string, data any) bool {
	r.mu.Lock()
	panicOn := r.panicOn
	r.mu.Unlock()
	if panicOn != "" && panicOn == event {
		panic("emitter exploded on " + event)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, emitted{Target: connID, Event: event, Data: data})
	return true
}

func (r *recorder) Broadcast(tenantID, event string, data any) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, emitted{Target: tenantID, Event: event, Data: data})
	return 1
}

func (r *recorder) Release(connID, tenantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, emitted{Target: connID, Data: tenantID})
	return true
}

func (r *recorder) releasedConns(tenantID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.released {
		if e.Data == tenantID {
			out = append(out, e.Target)
		}
	}
	return out
}

func (r *recorder) events(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.sent {
		if e.Target == connID {
			out = append(out, e.Event)
		}
	}
	return out
}

func (r *recorder) count(connID, event string) int {
	n := 0
	for _, e := range r.events(connID) {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) payloads(connID, event string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.sent {
		if e.Target == connID && e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

func (r *recorder) statuses(tenantID string) []supervisor.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []supervisor.Status
	for _, e := range r.broadcasts {
		if p, ok := e.Data.(supervisor.StatusPayload); ok && e.Target == tenantID {
			out = append(out, p.Status)
		}
	}
	return out
}

type harness struct {
	sup     *supervisor.Supervisor
	factory *waclienttest.Factory
	store   *credstore.MemoryStore
	events  *recorder
}

func newHarness(t *testing.T, opts ...supervisor.Option) *harness {
	t.Helper()
	h := &harness{
		factory: waclienttest.NewFactory(),
		store:   credstore.NewMemoryStore(),
		events:  &recorder{},
	}
	opts = append([]supervisor.Option{supervisor.WithEmitter(h.events)}, opts...)
	sup, err := supervisor.New(h.store, h.factory.New, opts...)
	require.NoError(t, err)
	h.sup = sup
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})
	return h
}

// next waits for the factory to build its next client.
func (h *harness) next(t *testing.T) *waclienttest.Client {
	t.Helper()
	select {
	case c := <-h.factory.Created():
		return c
	case <-time.After(waitFor):
		t.Fatal("no client was created")
		return nil
	}
}

func (h *harness) waitStatus(t *testing.T, want supervisor.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, ok := h.sup.Status(tenant)
		return ok && got == want
	}, waitFor, tick, "tenant never reached %s", want)
}

func (h *harness) waitGone(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := h.sup.Status(tenant)
		return !ok
	}, waitFor, tick, "session was not removed")
}

func (h *harness) waitEvent(t *testing.T, connID, event string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.events.count(connID, event) >= n
	}, waitFor, tick, "%s never received %d %q events", connID, n, event)
}

// startReady drives a fresh session for connA up to ready.
func (h *harness) startReady(t *testing.T, credential []byte) *waclienttest.Client {
	t.Helper()
	require.NoError(t, h.sup.Start(context.Background(), tenant, connA))
	c := h.next(t)
	c.EmitAuthenticated(credential)
	c.EmitReady()
	h.waitStatus(t, supervisor.StatusReady)
	return c
}

func destroyed(c *waclienttest.Client) bool {
	select {
	case <-c.Destroyed():
		return true
	default:
		return false
	}
}

// failingStore is a credential store whose writes always fail.
type failingStore struct {
	*credstore.MemoryStore
}

var errStoreDown = errors.New("store down")

func (failingStore) Save(context.Context, string, []byte) error { return errStoreDown }
