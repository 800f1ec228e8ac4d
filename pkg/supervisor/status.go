package supervisor

import "github.com/dmitrymomot/wamux/pkg/statemachine"

// Status is the lifecycle state of a tenant session.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusInitializing  Status = "initializing"
	StatusAwaitingScan  Status = "awaiting_scan"
	StatusAuthenticated Status = "authenticated"
	StatusReady         Status = "ready"
	StatusDisconnected  Status = "disconnected"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusDisconnected || s == StatusFailed
}

// Live reports whether the status belongs to a running session.
func (s Status) Live() bool {
	switch s {
	case StatusInitializing, StatusAwaitingScan, StatusAuthenticated, StatusReady:
		return true
	}
	return false
}

type trigger string

const (
	triggerStart         trigger = "start"
	triggerQR            trigger = "qr"
	triggerAuthenticated trigger = "authenticated"
	triggerReady         trigger = "ready"
	triggerFail          trigger = "fail"
	triggerDisconnect    trigger = "disconnect"
)

var lifecycle = statemachine.NewBuilder[Status, trigger](StatusIdle).
	Allow(StatusIdle, triggerStart, StatusInitializing).
	AllowFrom([]Status{StatusInitializing, StatusAwaitingScan}, triggerQR, StatusAwaitingScan).
	AllowFrom([]Status{StatusInitializing, StatusAwaitingScan}, triggerAuthenticated, StatusAuthenticated).
	// a ready session that re-authenticates only refreshes its credential
	Allow(StatusReady, triggerAuthenticated, StatusReady).
	AllowFrom([]Status{StatusInitializing, StatusAwaitingScan, StatusAuthenticated}, triggerReady, StatusReady).
	AllowFrom([]Status{StatusInitializing, StatusAwaitingScan, StatusAuthenticated, StatusReady}, triggerFail, StatusFailed).
	AllowFrom([]Status{StatusInitializing, StatusAwaitingScan, StatusAuthenticated, StatusReady}, triggerDisconnect, StatusDisconnected).
	MustBuild()
