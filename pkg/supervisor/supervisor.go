package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/qrcode"
	"github.com/dmitrymomot/wamux/pkg/waclient"
)

// Supervisor owns every tenant session in the process. It keeps at most one
// live session per tenant, serializes work per tenant and runs tenants
// independently of each other.
type Supervisor struct {
	store   credstore.Store
	factory waclient.Factory
	emitter Emitter
	qr      *qrcode.Renderer
	cfg     Config
	log     *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// generations are process wide, so a tenant whose slot was retired
	// still sees them increase
	generation atomic.Uint64

	mu      sync.Mutex
	slots   map[string]*slot
	sweepAt int
	closing bool
	wg      sync.WaitGroup
}

// minSweep is the registry size below which empty slots are kept.
const minSweep = 256

// New creates a supervisor that loads credentials from store and builds
// clients with factory.
func New(store credstore.Store, factory waclient.Factory, opts ...Option) (*Supervisor, error) {
	if store == nil || factory == nil {
		return nil, fmt.Errorf("%w: credential store and client factory are required", ErrInvalidConfig)
	}
	s := &Supervisor{
		store:   store,
		factory: factory,
		emitter: nopEmitter{},
		cfg:     DefaultConfig(),
		log:     logger.Nop(),
		now:     time.Now,
		slots:   make(map[string]*slot),
		sweepAt: minSweep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	if s.qr == nil {
		s.qr = qrcode.NewRenderer(qrcode.WithSize(s.cfg.QRSize))
	}
	s.log = s.log.With(logger.Component("supervisor"))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

type startRequest struct {
	tenantID   string
	connID     string
	credential []byte
	uploaded   bool
	// fresh skips the store lookup.
	fresh bool
	// ifVacant leaves an existing record alone instead of superseding it.
	ifVacant bool
}

// Start brings up the tenant's session on behalf of connID.
//
// A ready session is left untouched and connID is told it is already
// active. Any other live session is superseded: its owner receives
// session_terminated and its client is destroyed before the new one is
// built. Initialization continues in the background; its outcome arrives as
// events.
func (s *Supervisor) Start(ctx context.Context, tenantID, connID string) error {
	if err := validateStart(tenantID, connID); err != nil {
		return err
	}
	return s.start(ctx, startRequest{tenantID: tenantID, connID: connID})
}

// StartWithCredential is Start with a caller supplied credential instead of
// the stored one. The credential is persisted only once the client
// confirms authentication.
func (s *Supervisor) StartWithCredential(ctx context.Context, tenantID, connID string, credential []byte) error {
	if err := validateStart(tenantID, connID); err != nil {
		return err
	}
	if len(credential) == 0 {
		return errors.Join(ErrInvalidInput, errors.New("credential is empty"))
	}
	return s.start(ctx, startRequest{
		tenantID:   tenantID,
		connID:     connID,
		credential: bytes.Clone(credential),
		uploaded:   true,
	})
}

func validateStart(tenantID, connID string) error {
	if connID == "" {
		return errors.Join(ErrInvalidInput, errors.New("connection id is required"))
	}
	if err := credstore.ValidateTenantID(tenantID); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

func (s *Supervisor) start(ctx context.Context, req startRequest) error {
	var sl *slot
	for {
		var err error
		if sl, err = s.slotFor(req.tenantID); err != nil {
			return err
		}
		sl.mu.Lock()
		if !sl.retired {
			break
		}
		sl.mu.Unlock()
	}

	var (
		old       *record
		oldClient waclient.Client
	)
	if cur := sl.rec; cur != nil {
		if req.ifVacant {
			sl.mu.Unlock()
			return nil
		}
		if cur.status() == StatusReady {
			s.resumeLocked(cur, req.connID)
			sl.mu.Unlock()
			return nil
		}
		old = cur
		if cur.owner != "" && cur.owner != req.connID {
			s.sendLocked(cur, EventSessionTerminated, ReasonPayload{TenantID: cur.tenantID, Reason: ReasonSuperseded})
			s.emitter.Release(cur.owner, cur.tenantID)
		}
		oldClient = sl.detach(cur)
	}

	now := s.now()
	rec := sl.reserve(s.generation.Add(1), req.connID, now, s.log)
	rec.fire(triggerStart, now)
	if req.uploaded {
		rec.uploaded = req.credential
	}
	initCtx, cancel := context.WithCancel(logger.WithTenant(s.ctx, req.tenantID))
	rec.cancelInit = cancel
	s.sendLocked(rec, EventStarted, TenantPayload{TenantID: rec.tenantID})
	s.broadcastStatusLocked(rec)
	sl.mu.Unlock()

	if old != nil {
		old.log.Info("session superseded", logger.ConnectionID(req.connID))
		if oldClient != nil {
			_ = s.destroy(context.Background(), old.log, oldClient)
		}
	}

	credential := req.credential
	if credential == nil && !req.fresh {
		credential = s.loadCredential(initCtx, rec)
	}

	client, err := s.factory(initCtx, waclient.Options{
		TenantID:   rec.tenantID,
		Credential: credential,
		Handler:    sink{box: rec.box},
	})
	if err != nil {
		if !s.failInit(sl, rec, err) {
			return nil
		}
		return errors.Join(ErrInitializationFailure, err)
	}

	sl.mu.Lock()
	if !sl.current(rec) {
		sl.mu.Unlock()
		rec.log.Debug("discarding client of a superseded generation")
		_ = s.destroy(context.Background(), rec.log, client)
		return nil
	}
	rec.client = client
	if credential != nil {
		s.armWatchdogLocked(sl, rec)
	}
	sl.mu.Unlock()

	// Shutdown owns the record if it has already begun.
	if err := s.spawn(2); err != nil {
		return err
	}
	go func() {
		defer s.wg.Done()
		rec.box.run(func(ev clientEvent) { s.apply(sl, rec, ev) })
	}()
	go func() {
		defer s.wg.Done()
		s.initialize(initCtx, sl, rec, client)
	}()

	rec.log.Info("session starting",
		logger.ConnectionID(req.connID),
		slog.Bool("restored", credential != nil && !req.uploaded),
		slog.Bool("uploaded", req.uploaded),
	)
	return nil
}

// resumeLocked answers a start request for a ready session.
func (s *Supervisor) resumeLocked(rec *record, connID string) {
	if rec.owner == "" && s.cfg.ClosePolicy == ClosePolicyDetach {
		rec.owner = connID
		rec.log.Info("session reattached", logger.ConnectionID(connID))
		s.emitter.Send(connID, EventInfo, MessagePayload{TenantID: rec.tenantID, Message: "session resumed"})
		s.emitter.Send(connID, EventReady, TenantPayload{TenantID: rec.tenantID})
		return
	}
	s.emitter.Send(connID, EventInfo, MessagePayload{TenantID: rec.tenantID, Message: "session already active"})
}

func (s *Supervisor) initialize(ctx context.Context, sl *slot, rec *record, client waclient.Client) {
	if err := client.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			// stopped, superseded or shut down
			return
		}
		s.failInit(sl, rec, err)
	}
}

// failInit tears down rec after a construction or initialization error.
// It reports false when rec was already gone.
func (s *Supervisor) failInit(sl *slot, rec *record, cause error) bool {
	var (
		client waclient.Client
		ok     bool
	)
	sl.with(func() {
		if !sl.current(rec) {
			return
		}
		ok = true
		rec.fire(triggerFail, s.now())
		s.sendLocked(rec, EventError, MessagePayload{
			TenantID: rec.tenantID,
			Message:  "failed to initialize session: " + cause.Error(),
		})
		s.broadcastStatusLocked(rec)
		client = sl.detach(rec)
	})
	if !ok {
		return false
	}
	rec.log.Error("session initialization failed", logger.Error(errors.Join(ErrInitializationFailure, cause)))
	if client != nil {
		_ = s.destroy(context.Background(), rec.log, client)
	}
	return true
}

// Stop tears the tenant's session down and deletes its stored credential.
// It returns ErrSessionNotFound, with no other effect, when the tenant has
// no session.
func (s *Supervisor) Stop(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return errors.Join(ErrInvalidInput, errors.New("tenant id is required"))
	}
	sl := s.lookup(tenantID)
	if sl == nil {
		return ErrSessionNotFound
	}

	var (
		rec    *record
		owner  string
		client waclient.Client
	)
	sl.with(func() {
		rec = sl.rec
		if rec == nil {
			return
		}
		owner = rec.owner
		rec.purged = true
		client = sl.detach(rec)
		s.emitter.Broadcast(tenantID, EventStatus, StatusPayload{TenantID: tenantID, Status: StatusIdle})
	})
	if rec == nil {
		return ErrSessionNotFound
	}

	if client != nil {
		_ = s.destroy(context.Background(), rec.log, client)
	}
	s.deleteCredential(ctx, rec)
	if owner != "" {
		s.emitter.Send(owner, EventStopped, TenantPayload{TenantID: tenantID})
	}
	rec.log.Info("session stopped")
	return nil
}

// SendMessage delivers body to recipient through the tenant's ready session.
func (s *Supervisor) SendMessage(ctx context.Context, tenantID, recipient, body string) error {
	if tenantID == "" || strings.TrimSpace(recipient) == "" || body == "" {
		return errors.Join(ErrInvalidInput, errors.New("tenant id, recipient and body are required"))
	}
	chatID, err := waclient.ChatID(recipient)
	if err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	sl := s.lookup(tenantID)
	if sl == nil {
		return ErrSessionNotFound
	}
	var (
		rec    *record
		status Status
		client waclient.Client
	)
	sl.with(func() {
		rec = sl.rec
		if rec != nil {
			status = rec.status()
			client = rec.client
		}
	})
	if rec == nil {
		return ErrSessionNotFound
	}
	if status != StatusReady || client == nil {
		return ErrSessionNotReady
	}

	ctx, cancel := context.WithTimeout(logger.WithTenant(ctx, tenantID), s.cfg.SendTimeout)
	defer cancel()
	if err := client.SendMessage(ctx, chatID, body); err != nil {
		rec.log.WarnContext(ctx, "message delivery failed", logger.Error(err))
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}

// HandleConnectionClosed applies the close policy to every session owned by
// connID. Stored credentials are kept either way.
func (s *Supervisor) HandleConnectionClosed(ctx context.Context, connID string) {
	if connID == "" {
		return
	}
	for _, sl := range s.snapshot() {
		var (
			rec    *record
			client waclient.Client
		)
		sl.with(func() {
			cur := sl.rec
			if cur == nil || cur.owner != connID {
				return
			}
			if s.cfg.ClosePolicy == ClosePolicyDetach {
				cur.owner = ""
				cur.log.Info("owner disconnected, session detached", logger.ConnectionID(connID))
				return
			}
			rec = cur
			client = sl.detach(cur)
			s.emitter.Broadcast(cur.tenantID, EventStatus, StatusPayload{TenantID: cur.tenantID, Status: StatusIdle})
		})
		if rec == nil {
			continue
		}
		rec.log.Info("owner disconnected, session destroyed", logger.ConnectionID(connID))
		if client != nil {
			_ = s.destroy(ctx, rec.log, client)
		}
	}
}

// Sessions returns a snapshot of every live session ordered by tenant id.
func (s *Supervisor) Sessions() []SessionInfo {
	var out []SessionInfo
	for _, sl := range s.snapshot() {
		sl.with(func() {
			if sl.rec != nil {
				out = append(out, sl.rec.info())
			}
		})
	}
	slices.SortFunc(out, func(a, b SessionInfo) int { return strings.Compare(a.TenantID, b.TenantID) })
	return out
}

// Status reports the tenant's current status and whether it has a session.
func (s *Supervisor) Status(tenantID string) (Status, bool) {
	sl := s.lookup(tenantID)
	if sl == nil {
		return StatusIdle, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.rec == nil {
		return StatusIdle, false
	}
	return sl.rec.status(), true
}

// Shutdown destroys every live client in parallel and waits for background
// work to finish. Credentials are kept so sessions restore on next start.
// Later calls to Start return ErrShuttingDown.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, sl := range slots {
		var (
			rec    *record
			client waclient.Client
		)
		sl.with(func() {
			rec = sl.rec
			if rec == nil {
				return
			}
			s.sendLocked(rec, EventSessionTerminated, ReasonPayload{TenantID: rec.tenantID, Reason: ReasonShutdown})
			client = sl.detach(rec)
		})
		if client != nil {
			g.Go(func() error { return s.destroy(ctx, rec.log, client) })
		}
	}
	err := g.Wait()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	s.cancel()
	s.log.Info("supervisor stopped", slog.Int("sessions", len(slots)))
	return err
}

func (s *Supervisor) slotFor(tenantID string) (*slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil, ErrShuttingDown
	}
	sl, ok := s.slots[tenantID]
	if !ok {
		if len(s.slots) >= s.sweepAt {
			s.sweepLocked()
		}
		sl = &slot{tenant: tenantID}
		s.slots[tenantID] = sl
	}
	return sl, nil
}

// sweepLocked retires slots that hold no session. Busy slots are skipped
// rather than waited for. The next sweep runs once the registry has doubled
// from what survived this one. Callers hold s.mu.
func (s *Supervisor) sweepLocked() {
	for tenant, sl := range s.slots {
		if !sl.mu.TryLock() {
			continue
		}
		if sl.rec == nil {
			sl.retired = true
			delete(s.slots, tenant)
		}
		sl.mu.Unlock()
	}
	s.sweepAt = max(minSweep, 2*len(s.slots))
}

// registered reports how many tenants currently have a slot.
func (s *Supervisor) registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *Supervisor) lookup(tenantID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[tenantID]
}

func (s *Supervisor) snapshot() []*slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl)
	}
	return out
}

// spawn reserves n background goroutines unless shutdown has begun.
func (s *Supervisor) spawn(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrShuttingDown
	}
	s.wg.Add(n)
	return nil
}

func (s *Supervisor) sendLocked(rec *record, event string, data any) {
	if rec.owner != "" {
		s.emitter.Send(rec.owner, event, data)
	}
}

func (s *Supervisor) broadcastStatusLocked(rec *record) {
	s.emitter.Broadcast(rec.tenantID, EventStatus, StatusPayload{TenantID: rec.tenantID, Status: rec.status()})
}

func (s *Supervisor) destroy(ctx context.Context, log *slog.Logger, client waclient.Client) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DestroyTimeout)
	defer cancel()
	if err := client.Destroy(ctx); err != nil {
		log.Warn("destroy client", logger.Error(err))
		return err
	}
	return nil
}

func (s *Supervisor) loadCredential(ctx context.Context, rec *record) []byte {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	credential, err := s.store.Retrieve(ctx, rec.tenantID)
	switch {
	case err == nil && len(credential) > 0:
		return credential
	case err == nil, errors.Is(err, credstore.ErrNotFound):
		return nil
	default:
		rec.log.WarnContext(ctx, "credential lookup failed, starting fresh",
			logger.Error(errors.Join(ErrPersistenceFailure, err)))
		return nil
	}
}

func (s *Supervisor) saveCredential(rec *record, credential []byte) error {
	ctx, cancel := context.WithTimeout(logger.WithTenant(s.ctx, rec.tenantID), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Save(ctx, rec.tenantID, credential); err != nil {
		err = errors.Join(ErrPersistenceFailure, err)
		rec.log.WarnContext(ctx, "credential not saved, session continues unpersisted", logger.Error(err))
		return err
	}
	return nil
}

func (s *Supervisor) deleteCredential(ctx context.Context, rec *record) {
	ctx, cancel := context.WithTimeout(logger.WithTenant(context.WithoutCancel(ctx), rec.tenantID), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, rec.tenantID); err != nil {
		rec.log.WarnContext(ctx, "credential not deleted", logger.Error(errors.Join(ErrPersistenceFailure, err)))
	}
}

// with runs fn under the slot lock.
func (sl *slot) with(fn func()) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn()
}

// apply handles one client event for rec. A panic is logged and confined to
// that event.
func (s *Supervisor) apply(sl *slot, rec *record, ev clientEvent) {
	defer func() {
		if r := recover(); r != nil {
			rec.log.Error("panic while handling client event",
				logger.Event(ev.kind.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch ev.kind {
	case eventQR:
		s.onQR(sl, rec, ev.code)
	case eventAuthenticated:
		s.onAuthenticated(sl, rec, ev.credential)
	case eventReady:
		s.onReady(sl, rec)
	case eventAuthFailure:
		s.onAuthFailure(sl, rec, ev.reason)
	case eventDisconnected:
		s.onDisconnected(sl, rec, ev.reason)
	}
}
