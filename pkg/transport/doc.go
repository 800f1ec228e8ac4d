// Package transport serves the supervisor to front-ends.
//
// A front-end opens GET /ws and sends JSON commands:
//
//	{"command":"start","tenant_id":"acme"}
//	{"command":"upload_credential","tenant_id":"acme","credential":"<base64>"}
//	{"command":"watch","tenant_id":"acme"}
//	{"command":"stop","tenant_id":"acme"}
//
// start, upload_credential and watch bind the connection to the tenant, so
// it receives that tenant's broadcasts. Events come back as
// {"event":"...","data":{...}} envelopes through the router. When the
// socket closes the connection is removed from the router and the
// supervisor applies its close policy.
//
// The HTTP API is:
//
//	POST   /api/messages            {"tenant_id","recipient","body"} -> {"success":true}
//	GET    /api/sessions[?status=]  session snapshot
//	DELETE /api/sessions/{tenantID} 204, or 404 when there is no session
//	GET    /health/live, /health/ready
//
// Failed API calls answer {"success":false,"error":"<kind>"}.
package transport
