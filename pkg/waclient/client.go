package waclient

import (
	"context"
	"errors"
	"strings"
)

// Client drives one browser-backed messaging session. Lifecycle events are
// delivered to the Handler given to the Factory, possibly from other
// goroutines and in any order relative to method calls.
type Client interface {
	// Initialize starts the session. Events may arrive before it returns.
	Initialize(ctx context.Context) error
	SendMessage(ctx context.Context, chatID, body string) error
	// Logout unlinks the device on the phone side.
	Logout(ctx context.Context) error
	// Destroy releases the browser. Safe to call more than once.
	Destroy(ctx context.Context) error
}

// Handler receives client lifecycle events. Implementations must not block.
type Handler interface {
	OnQR(code string)
	OnAuthenticated(credential []byte)
	OnReady()
	OnAuthFailure(reason string)
	OnDisconnected(reason string)
}

// Options describe the session a Factory should build.
type Options struct {
	TenantID string
	// Credential restores a previous pairing. Nil starts a fresh one.
	Credential []byte
	Handler    Handler
}

// Factory constructs a client. It must not start the session; the
// supervisor calls Initialize once the client is registered.
type Factory func(ctx context.Context, opts Options) (Client, error)

var (
	ErrInvalidRecipient = errors.New("waclient: recipient is not a phone number or chat id")
	ErrClosed           = errors.New("waclient: client destroyed")
	ErrRemote           = errors.New("waclient: bridge reported an error")
)

const (
	userSuffix  = "@c.us"
	groupSuffix = "@g.us"
)

// ChatID normalizes a phone number into the individual chat id the
// protocol expects: every non-digit is dropped and "@c.us" appended.
// A complete id is accepted as is when its domain is c.us or g.us and its
// local part is digits, with hyphens allowed in group ids.
func ChatID(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if local, domain, ok := strings.Cut(recipient, "@"); ok {
		if validLocal(local, "@"+domain) {
			return recipient, nil
		}
		return "", ErrInvalidRecipient
	}
	var b strings.Builder
	b.Grow(len(recipient) + len(userSuffix))
	for _, r := range recipient {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidRecipient
	}
	b.WriteString(userSuffix)
	return b.String(), nil
}

func validLocal(local, suffix string) bool {
	if suffix != userSuffix && suffix != groupSuffix {
		return false
	}
	if local == "" || local[0] < '0' || local[0] > '9' {
		return false
	}
	for i := 0; i < len(local); i++ {
		c := local[i]
		if c == '-' && suffix == groupSuffix {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
