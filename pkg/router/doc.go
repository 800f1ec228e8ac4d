// Package router maps front-end connections to tenants and delivers
// session events to them.
//
// Each attached connection owns a bounded outbox drained by a dedicated
// write pump. Send and Broadcast enqueue without blocking; a connection
// whose outbox is full is treated as stalled, unbound and closed so that a
// slow browser tab can never hold up the session supervisor.
//
//	r := router.New(router.WithLogger(log))
//	r.Attach(connID, wsWriter)
//	_ = r.Bind(connID, "school-42")
//	r.Send(connID, "qr", map[string]string{"image": dataURL})
//	r.Broadcast("school-42", "status", map[string]string{"status": "ready"})
package router
