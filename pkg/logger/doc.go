// Package logger builds *slog.Logger instances for wamux components.
//
// New assembles a text or JSON handler from functional options and wraps it
// with ContextHandler, which runs registered ContextExtractor callbacks
// on every record. TenantExtractor pulls the tenant id stored by WithTenant,
// so a supervisor call made with a tenant-scoped context is tagged without
// passing the id to every log call.
//
// Attribute helpers in attr.go keep key names consistent across packages:
// TenantID, ConnectionID, Generation, Status, Event, Component, Error.
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "wamux"),
//	    logger.WithContextExtractors(logger.TenantExtractor()),
//	)
//	log.InfoContext(logger.WithTenant(ctx, "school-1"), "session ready",
//	    logger.Generation(3),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally. Nop returns a logger that drops everything and is
// the default for packages that accept an optional logger.
package logger
