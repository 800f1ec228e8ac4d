package waclient

// Frame types exchanged with the browser bridge.
const (
	frameInit    = "init"
	frameSend    = "send"
	frameLogout  = "logout"
	frameDestroy = "destroy"

	frameQR            = "qr"
	frameAuthenticated = "authenticated"
	frameReady         = "ready"
	frameAuthFailure   = "auth_failure"
	frameDisconnected  = "disconnected"
	frameResult        = "result"
)

// outFrame is written to the bridge. Credential is base64 in JSON.
type outFrame struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Credential []byte `json:"credential,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
	Body       string `json:"body,omitempty"`
}

// inFrame is read from the bridge.
type inFrame struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	QR         string `json:"qr,omitempty"`
	Credential []byte `json:"credential,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}
