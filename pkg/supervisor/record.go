package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/statemachine"
	"github.com/dmitrymomot/wamux/pkg/waclient"
)

// slot serializes every mutation for one tenant. An empty slot may be
// retired and dropped from the registry; a retired slot never gets another
// record, so start resolves the tenant again when it finds one.
type slot struct {
	mu      sync.Mutex
	tenant  string
	rec     *record
	retired bool
}

// record is one generation of a tenant session. All fields are guarded by
// the owning slot's mutex.
type record struct {
	tenantID   string
	generation uint64
	machine    *statemachine.Machine[Status, trigger]
	client     waclient.Client
	owner      string

	createdAt          time.Time
	lastTransitionAt   time.Time
	credentialSnapshot []byte
	// uploaded is saved once the client confirms authentication if the
	// client reports no credential of its own.
	uploaded []byte
	// purged marks a record whose credential was deliberately deleted, so a
	// save that finishes afterwards is undone.
	purged bool

	cancelInit context.CancelFunc
	watchdog   *time.Timer
	box        *mailbox
	detached   bool
	log        *slog.Logger
}

func (sl *slot) reserve(gen uint64, owner string, now time.Time, log *slog.Logger) *record {
	rec := &record{
		tenantID:         sl.tenant,
		generation:       gen,
		machine:          statemachine.New(lifecycle),
		owner:            owner,
		createdAt:        now,
		lastTransitionAt: now,
		box:              newMailbox(),
		log:              log.With(logger.TenantID(sl.tenant), logger.Generation(gen)),
	}
	sl.rec = rec
	return rec
}

// current reports whether rec is still the attached record. Callers hold sl.mu.
func (sl *slot) current(rec *record) bool {
	return sl.rec == rec && !rec.detached
}

// detach removes rec from the slot and hands its client to the caller, who
// must destroy it. Only the first call returns a client. Callers hold sl.mu.
func (sl *slot) detach(rec *record) waclient.Client {
	if rec.detached {
		return nil
	}
	rec.detached = true
	if sl.rec == rec {
		sl.rec = nil
	}
	if rec.cancelInit != nil {
		rec.cancelInit()
	}
	rec.stopWatchdog()
	rec.box.close()
	client := rec.client
	rec.client = nil
	return client
}

func (r *record) status() Status {
	return r.machine.Current()
}

// fire applies t and reports whether the transition was allowed.
func (r *record) fire(t trigger, now time.Time) bool {
	from := r.machine.Current()
	to, err := r.machine.Fire(t)
	if err != nil {
		r.log.Debug("transition rejected",
			slog.String("from", string(from)),
			slog.String("trigger", string(t)),
			logger.Error(err),
		)
		return false
	}
	r.lastTransitionAt = now
	r.log.Debug("transition", slog.String("from", string(from)), logger.Status(string(to)))
	return true
}

func (r *record) stopWatchdog() {
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
}

// SessionInfo is a point-in-time view of a tenant session.
type SessionInfo struct {
	TenantID         string    `json:"tenant_id"`
	Status           Status    `json:"status"`
	Owner            string    `json:"owner,omitempty"`
	Generation       uint64    `json:"generation"`
	CreatedAt        time.Time `json:"created_at"`
	LastTransitionAt time.Time `json:"last_transition_at"`
	Persisted        bool      `json:"persisted"`
}

func (r *record) info() SessionInfo {
	return SessionInfo{
		TenantID:         r.tenantID,
		Status:           r.status(),
		Owner:            r.owner,
		Generation:       r.generation,
		CreatedAt:        r.createdAt,
		LastTransitionAt: r.lastTransitionAt,
		Persisted:        r.credentialSnapshot != nil,
	}
}
