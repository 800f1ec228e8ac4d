package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/waclient"
)

// armWatchdogLocked schedules a fresh restart of rec if it has not reached
// ready within the watchdog timeout. A restored credential that no longer
// works otherwise leaves the tenant stuck before ready.
func (s *Supervisor) armWatchdogLocked(sl *slot, rec *record) {
	rec.stopWatchdog()
	rec.watchdog = time.AfterFunc(s.cfg.WatchdogTimeout, func() {
		s.watchdogExpired(sl, rec)
	})
}

func (s *Supervisor) watchdogExpired(sl *slot, rec *record) {
	var (
		client waclient.Client
		owner  string
		fired  bool
	)
	sl.with(func() {
		if !sl.current(rec) || rec.status() == StatusReady {
			return
		}
		fired = true
		owner = rec.owner
		rec.log.Warn("session not ready in time, restarting without credential",
			logger.Status(string(rec.status())))
		s.sendLocked(rec, EventInfo, MessagePayload{TenantID: rec.tenantID, Message: "restarting"})
		client = sl.detach(rec)
	})
	if !fired {
		return
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LogoutTimeout)
		if err := client.Logout(ctx); err != nil {
			rec.log.Warn("logout before restart failed", logger.Error(err))
		}
		cancel()
		_ = s.destroy(context.Background(), rec.log, client)
	}

	// The stored credential stays: a successful scan overwrites it.
	err := s.start(s.ctx, startRequest{
		tenantID: rec.tenantID,
		connID:   owner,
		fresh:    true,
		ifVacant: true,
	})
	if err != nil && !errors.Is(err, ErrShuttingDown) {
		rec.log.Error("restart after watchdog failed", logger.Error(err))
	}
}
