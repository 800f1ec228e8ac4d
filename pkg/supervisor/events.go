package supervisor

// Outbound event names.
const (
	EventQR                 = "qr"
	EventReady              = "ready"
	EventAuthenticated      = "authenticated"
	EventAuthFailure        = "auth_failure"
	EventDisconnected       = "disconnected"
	EventStarted            = "started"
	EventStopped            = "stopped"
	EventSessionTerminated  = "session_terminated"
	EventError              = "error"
	EventDownloadCredential = "download_credential"
	EventInfo               = "info"
	EventStatus             = "status"
)

// Reasons attached to session_terminated and disconnected events.
const (
	ReasonSuperseded = "superseded"
	ReasonShutdown   = "shutdown"
)

// Emitter delivers events to front-end connections. Implementations must
// not block; the supervisor calls them while holding a tenant lock.
type Emitter interface {
	Send(connID, event string, data any) bool
	Broadcast(tenantID, event string, data any) int
	// Release stops tenant broadcasts to connID if it is still bound to
	// tenantID.
	Release(connID, tenantID string) bool
}

type TenantPayload struct {
	TenantID string `json:"tenant_id"`
}

type QRPayload struct {
	TenantID string `json:"tenant_id"`
	Image    string `json:"image"`
	Code     string `json:"code,omitempty"`
}

type ReasonPayload struct {
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason,omitempty"`
}

type MessagePayload struct {
	TenantID string `json:"tenant_id,omitempty"`
	Message  string `json:"message"`
}

type CredentialPayload struct {
	TenantID   string `json:"tenant_id"`
	Credential []byte `json:"credential"`
}

type StatusPayload struct {
	TenantID string `json:"tenant_id"`
	Status   Status `json:"status"`
}

type nopEmitter struct{}

func (nopEmitter) Send(string, string, any) bool     { return false }
func (nopEmitter) Broadcast(string, string, any) int { return 0 }
func (nopEmitter) Release(string, string) bool       { return false }
