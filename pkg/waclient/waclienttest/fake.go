// Package waclienttest provides a scriptable in-memory waclient.Client.
package waclienttest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/wamux/pkg/waclient"
)

// SentMessage records one SendMessage call.
type SentMessage struct {
	ChatID string
	Body   string
}

// Client is a fake client. Tests drive its lifecycle through the Emit
// methods, which call the handler synchronously on the caller's goroutine.
type Client struct {
	TenantID   string
	Credential []byte

	handler waclient.Handler

	mu       sync.Mutex
	initErr  error
	sendErr  error
	initHook func(ctx context.Context) error
	sent     []SentMessage

	InitCalls    atomic.Int32
	LogoutCalls  atomic.Int32
	DestroyCalls atomic.Int32
	destroyed    chan struct{}
	destroyOnce  sync.Once
}

func newClient(opts waclient.Options) *Client {
	return &Client{
		TenantID:   opts.TenantID,
		Credential: opts.Credential,
		handler:    opts.Handler,
		destroyed:  make(chan struct{}),
	}
}

// FailInit makes Initialize return err.
func (c *Client) FailInit(err error) {
	c.mu.Lock()
	c.initErr = err
	c.mu.Unlock()
}

// FailSend makes SendMessage return err.
func (c *Client) FailSend(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// OnInitialize runs fn inside Initialize, after the call is counted.
func (c *Client) OnInitialize(fn func(ctx context.Context) error) {
	c.mu.Lock()
	c.initHook = fn
	c.mu.Unlock()
}

func (c *Client) Initialize(ctx context.Context) error {
	c.InitCalls.Add(1)
	c.mu.Lock()
	err, hook := c.initErr, c.initHook
	c.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	return err
}

func (c *Client) SendMessage(_ context.Context, chatID, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, SentMessage{ChatID: chatID, Body: body})
	return nil
}

func (c *Client) Logout(context.Context) error {
	c.LogoutCalls.Add(1)
	return nil
}

func (c *Client) Destroy(context.Context) error {
	c.DestroyCalls.Add(1)
	c.destroyOnce.Do(func() { close(c.destroyed) })
	return nil
}

// Destroyed is closed on the first Destroy call.
func (c *Client) Destroyed() <-chan struct{} { return c.destroyed }

// Sent returns a copy of the messages sent so far.
func (c *Client) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.sent...)
}

func (c *Client) EmitQR(code string)           { c.handler.OnQR(code) }
func (c *Client) EmitAuthenticated(cred []byte) { c.handler.OnAuthenticated(cred) }
func (c *Client) EmitReady()                    { c.handler.OnReady() }
func (c *Client) EmitAuthFailure(reason string) { c.handler.OnAuthFailure(reason) }
func (c *Client) EmitDisconnected(reason string) {
	c.handler.OnDisconnected(reason)
}

// Factory builds fake clients and remembers every one it built.
type Factory struct {
	mu      sync.Mutex
	clients []*Client
	created chan *Client
	err     error
	hook    func(ctx context.Context, opts waclient.Options) error
	setup   func(*Client)
}

func NewFactory() *Factory {
	return &Factory{created: make(chan *Client, 64)}
}

// FailWith makes subsequent constructions fail.
func (f *Factory) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// BeforeCreate runs fn at the start of every construction. Use it to block
// construction and widen race windows.
func (f *Factory) BeforeCreate(fn func(ctx context.Context, opts waclient.Options) error) {
	f.mu.Lock()
	f.hook = fn
	f.mu.Unlock()
}

// Setup configures each new client before it is returned.
func (f *Factory) Setup(fn func(*Client)) {
	f.mu.Lock()
	f.setup = fn
	f.mu.Unlock()
}

// New satisfies waclient.Factory.
func (f *Factory) New(ctx context.Context, opts waclient.Options) (waclient.Client, error) {
	f.mu.Lock()
	hook, err, setup := f.hook, f.err, f.setup
	f.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx, opts); herr != nil {
			return nil, herr
		}
	}
	if err != nil {
		return nil, err
	}

	c := newClient(opts)
	if setup != nil {
		setup(c)
	}
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	select {
	case f.created <- c:
	default:
	}
	return c, nil
}

// Created delivers clients in construction order.
func (f *Factory) Created() <-chan *Client { return f.created }

// Clients returns every client built so far.
func (f *Factory) Clients() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Client(nil), f.clients...)
}

// Count returns how many clients were built.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Last returns the most recent client, or nil.
func (f *Factory) Last() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return nil
	}
	return f.clients[len(f.clients)-1]
}
