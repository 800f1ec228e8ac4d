package supervisor

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/waclient"
)

const scanHint = "scan the QR code with the phone linked to this account"

func (s *Supervisor) onQR(sl *slot, rec *record, code string) {
	image, err := s.qr.DataURL(code)
	if err != nil {
		rec.log.Warn("render qr code", logger.Error(err))
	}
	sl.with(func() {
		if !sl.current(rec) || !rec.fire(triggerQR, s.now()) {
			return
		}
		s.sendLocked(rec, EventQR, QRPayload{TenantID: rec.tenantID, Image: image, Code: code})
		s.sendLocked(rec, EventInfo, MessagePayload{TenantID: rec.tenantID, Message: scanHint})
		s.broadcastStatusLocked(rec)
	})
}

func (s *Supervisor) onAuthenticated(sl *slot, rec *record, credential []byte) {
	var blob []byte
	applied := false
	sl.with(func() {
		if !sl.current(rec) {
			return
		}
		refresh := rec.status() == StatusReady
		if !rec.fire(triggerAuthenticated, s.now()) {
			return
		}
		applied = true
		if refresh {
			rec.log.Info("credential refreshed")
		} else {
			s.sendLocked(rec, EventAuthenticated, TenantPayload{TenantID: rec.tenantID})
			s.broadcastStatusLocked(rec)
		}
		blob = credential
		if len(blob) == 0 {
			blob = rec.uploaded
		}
	})
	if !applied || len(blob) == 0 {
		return
	}

	saveErr := s.saveCredential(rec, blob)

	undo := false
	sl.with(func() {
		if rec.purged {
			undo = saveErr == nil
			return
		}
		if !sl.current(rec) {
			return
		}
		if saveErr != nil {
			s.sendLocked(rec, EventInfo, MessagePayload{
				TenantID: rec.tenantID,
				Message:  "session is running but its credential could not be saved",
			})
		} else {
			rec.credentialSnapshot = bytes.Clone(blob)
			rec.uploaded = nil
		}
		if s.cfg.EmitCredentialDownload {
			s.sendLocked(rec, EventDownloadCredential, CredentialPayload{TenantID: rec.tenantID, Credential: blob})
		}
	})
	if undo {
		s.deleteCredential(context.Background(), rec)
	}
}

func (s *Supervisor) onReady(sl *slot, rec *record) {
	sl.with(func() {
		if !sl.current(rec) || !rec.fire(triggerReady, s.now()) {
			return
		}
		rec.stopWatchdog()
		s.sendLocked(rec, EventReady, TenantPayload{TenantID: rec.tenantID})
		s.broadcastStatusLocked(rec)
		rec.log.Info("session ready")
	})
}

func (s *Supervisor) onAuthFailure(sl *slot, rec *record, reason string) {
	var client waclient.Client
	applied := false
	sl.with(func() {
		if !sl.current(rec) || !rec.fire(triggerFail, s.now()) {
			return
		}
		applied = true
		payload := ReasonPayload{TenantID: rec.tenantID, Reason: reason}
		s.sendLocked(rec, EventAuthFailure, payload)
		s.sendLocked(rec, EventDisconnected, payload)
		s.broadcastStatusLocked(rec)
		rec.purged = true
		client = sl.detach(rec)
	})
	if !applied {
		return
	}

	rec.log.Warn("authentication failed", slog.String("reason", reason))
	s.deleteCredential(context.Background(), rec)
	if client != nil {
		_ = s.destroy(context.Background(), rec.log, client)
	}
}

func (s *Supervisor) onDisconnected(sl *slot, rec *record, reason string) {
	var client waclient.Client
	applied := false
	purge := s.cfg.DeleteCredentialOnDisconnect
	sl.with(func() {
		if !sl.current(rec) || !rec.fire(triggerDisconnect, s.now()) {
			return
		}
		applied = true
		s.sendLocked(rec, EventDisconnected, ReasonPayload{TenantID: rec.tenantID, Reason: reason})
		s.broadcastStatusLocked(rec)
		rec.purged = purge
		client = sl.detach(rec)
	})
	if !applied {
		return
	}

	rec.log.Info("session disconnected", slog.String("reason", reason))
	if purge {
		s.deleteCredential(context.Background(), rec)
	}
	if client != nil {
		_ = s.destroy(context.Background(), rec.log, client)
	}
}
