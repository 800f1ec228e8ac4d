package supervisor

import "sync"

type eventKind uint8

const (
	eventQR eventKind = iota + 1
	eventAuthenticated
	eventReady
	eventAuthFailure
	eventDisconnected
)

func (k eventKind) String() string {
	switch k {
	case eventQR:
		return EventQR
	case eventAuthenticated:
		return EventAuthenticated
	case eventReady:
		return EventReady
	case eventAuthFailure:
		return EventAuthFailure
	case eventDisconnected:
		return EventDisconnected
	}
	return "unknown"
}

type clientEvent struct {
	kind       eventKind
	code       string
	credential []byte
	reason     string
}

// mailbox is an unbounded FIFO of client events for one generation.
// Producers never block; a single consumer applies events in order.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []clientEvent
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// push reports false once the mailbox is closed.
func (m *mailbox) push(ev clientEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.queue = append(m.queue, ev)
	m.cond.Signal()
	return true
}

// close drops pending events and stops the consumer after its current event.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	m.cond.Broadcast()
}

// run consumes events until the mailbox is closed.
func (m *mailbox) run(apply func(clientEvent)) {
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}
		ev := m.queue[0]
		m.queue[0] = clientEvent{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		apply(ev)
	}
}

// sink adapts waclient.Handler callbacks to mailbox pushes.
type sink struct {
	box *mailbox
}

func (s sink) OnQR(code string) {
	s.box.push(clientEvent{kind: eventQR, code: code})
}

func (s sink) OnAuthenticated(credential []byte) {
	s.box.push(clientEvent{kind: eventAuthenticated, credential: append([]byte(nil), credential...)})
}

func (s sink) OnReady() {
	s.box.push(clientEvent{kind: eventReady})
}

func (s sink) OnAuthFailure(reason string) {
	s.box.push(clientEvent{kind: eventAuthFailure, reason: reason})
}

func (s sink) OnDisconnected(reason string) {
	s.box.push(clientEvent{kind: eventDisconnected, reason: reason})
}
