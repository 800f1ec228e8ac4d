package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/wamux/pkg/logger"
)

// DefaultOutboxSize is the number of queued events a peer may lag behind
// before it is considered stalled and closed.
const DefaultOutboxSize = 64

var ErrUnknownConnection = errors.New("router: unknown connection")

// Writer delivers encoded envelopes to one front-end connection.
// WriteMessage is only ever called from that connection's write pump.
type Writer interface {
	WriteMessage(data []byte) error
	Close() error
}

// Envelope is the wire shape of every outbound event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type peer struct {
	id     string
	w      Writer
	send   chan []byte
	tenant string
	once   sync.Once
	done   chan struct{}
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// Router maps front-end connections to tenants and fans events out to them.
// Send and Broadcast never block: a peer whose outbox is full is closed.
type Router struct {
	mu         sync.RWMutex
	peers      map[string]*peer
	byTenant   map[string]map[string]*peer
	outboxSize int
	log        *slog.Logger
}

type Option func(*Router)

func WithOutboxSize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.outboxSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		peers:      make(map[string]*peer),
		byTenant:   make(map[string]map[string]*peer),
		outboxSize: DefaultOutboxSize,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("router"))
	return r
}

// Attach registers a connection and starts its write pump. Attaching an id
// twice replaces the previous peer.
func (r *Router) Attach(connID string, w Writer) {
	p := &peer{
		id:   connID,
		w:    w,
		send: make(chan []byte, r.outboxSize),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	old := r.peers[connID]
	if old != nil {
		r.unbindLocked(old)
	}
	r.peers[connID] = p
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	go r.writePump(p)
}

func (r *Router) writePump(p *peer) {
	defer close(p.done)
	defer p.w.Close()
	for msg := range p.send {
		if err := p.w.WriteMessage(msg); err != nil {
			r.log.Debug("write failed", logger.ConnectionID(p.id), logger.Error(err))
			r.remove(p)
			// drain so queued senders see a closed peer promptly
			for range p.send {
			}
			return
		}
	}
}

// Bind associates connID with tenantID, replacing any earlier binding.
func (r *Router) Bind(connID, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[connID]
	if !ok {
		return ErrUnknownConnection
	}
	r.unbindLocked(p)
	p.tenant = tenantID
	set, ok := r.byTenant[tenantID]
	if !ok {
		set = make(map[string]*peer)
		r.byTenant[tenantID] = set
	}
	set[connID] = p
	return nil
}

// Unbind clears the tenant binding of connID.
func (r *Router) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[connID]; ok {
		r.unbindLocked(p)
	}
}

// Release unbinds connID only while it is still bound to tenantID and
// reports whether it did. A connection that has moved on to another tenant
// keeps its newer binding.
func (r *Router) Release(connID, tenantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[connID]
	if !ok || p.tenant != tenantID {
		return false
	}
	r.unbindLocked(p)
	return true
}

func (r *Router) unbindLocked(p *peer) {
	if p.tenant == "" {
		return
	}
	if set, ok := r.byTenant[p.tenant]; ok {
		delete(set, p.id)
		if len(set) == 0 {
			delete(r.byTenant, p.tenant)
		}
	}
	p.tenant = ""
}

// TenantOf returns the tenant connID is bound to.
func (r *Router) TenantOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[connID]
	if !ok || p.tenant == "" {
		return "", false
	}
	return p.tenant, true
}

// Connections lists connection ids bound to tenantID.
func (r *Router) Connections(tenantID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byTenant[tenantID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Send queues an event for one connection. It reports false when the
// connection is unknown or was closed for being too slow.
func (r *Router) Send(connID, event string, data any) bool {
	msg, err := encode(event, data)
	if err != nil {
		r.log.Error("encode event", logger.Event(event), logger.Error(err))
		return false
	}

	r.mu.RLock()
	p, ok := r.peers[connID]
	if !ok {
		r.mu.RUnlock()
		return false
	}
	delivered := r.enqueueLocked(p, msg)
	r.mu.RUnlock()

	if !delivered {
		r.stall(p)
	}
	return delivered
}

// Broadcast queues an event for every connection bound to tenantID and
// returns how many accepted it.
func (r *Router) Broadcast(tenantID, event string, data any) int {
	msg, err := encode(event, data)
	if err != nil {
		r.log.Error("encode event", logger.Event(event), logger.Error(err))
		return 0
	}

	var stalled []*peer
	n := 0
	r.mu.RLock()
	for _, p := range r.byTenant[tenantID] {
		if r.enqueueLocked(p, msg) {
			n++
		} else {
			stalled = append(stalled, p)
		}
	}
	r.mu.RUnlock()

	for _, p := range stalled {
		r.stall(p)
	}
	return n
}

// enqueueLocked requires r.mu held (read or write). Peers are only closed
// after removal under the write lock, so the channel is open here.
func (r *Router) enqueueLocked(p *peer, msg []byte) bool {
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

func (r *Router) stall(p *peer) {
	r.log.Warn("connection too slow, disconnecting", logger.ConnectionID(p.id))
	r.remove(p)
}

// Remove forgets connID and closes its writer once queued events are
// flushed. Unknown ids are ignored.
func (r *Router) Remove(connID string) {
	r.mu.RLock()
	p := r.peers[connID]
	r.mu.RUnlock()
	if p != nil {
		r.remove(p)
	}
}

func (r *Router) remove(p *peer) {
	r.mu.Lock()
	if cur, ok := r.peers[p.id]; ok && cur == p {
		r.unbindLocked(p)
		delete(r.peers, p.id)
	}
	r.mu.Unlock()
	p.close()
}

// Close removes every connection.
func (r *Router) Close() {
	r.mu.Lock()
	peers := make([]*peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	r.peers = make(map[string]*peer)
	r.byTenant = make(map[string]map[string]*peer)
	r.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

// Count returns the number of attached connections.
func (r *Router) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}
