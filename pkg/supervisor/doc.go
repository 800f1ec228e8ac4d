// Package supervisor manages the lifecycle of per-tenant messaging sessions.
//
// A Supervisor keeps at most one live session per tenant. Every tenant has
// its own lock and a generation counter; each client instance is tied to
// the generation it was built for, and events from an older generation are
// discarded. Client callbacks only enqueue into a per-generation mailbox
// whose single consumer applies them in order, so a slow or panicking
// client can never corrupt the registry or stall other tenants.
//
// Credential handling:
//
//   - a restored or uploaded credential arms a watchdog; a session that is
//     not ready in time is logged out and restarted without a credential
//   - the credential is saved after the client reports authentication
//   - it is deleted on authentication failure and on Stop
//   - it is kept on disconnect, connection close, watchdog restart and
//     Shutdown, unless Config.DeleteCredentialOnDisconnect is set
//
// Basic usage:
//
//	sup, err := supervisor.New(store, factory,
//		supervisor.WithEmitter(router),
//		supervisor.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer sup.Shutdown(context.Background())
//
//	_ = sup.Start(ctx, "school-1", connID)
//	err = sup.SendMessage(ctx, "school-1", "5511999999999", "hello")
//	switch supervisor.Kind(err) {
//	case supervisor.KindSessionNotReady:
//		// retry later
//	}
package supervisor
