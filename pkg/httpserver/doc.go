// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run blocks until the context is cancelled or the process receives SIGINT
// or SIGTERM, then drains in-flight requests and runs the registered
// shutdown hooks under one deadline. cmd/wamux uses the hooks to close
// WebSocket peers and destroy live messaging sessions, which
// http.Server.Shutdown knows nothing about.
//
//	srv := httpserver.New(cfg,
//	    httpserver.WithLogger(log),
//	    httpserver.WithShutdownHook(sup.Shutdown),
//	)
//	err := srv.Run(ctx, handler)
//
// HealthCheckHandler provides /health/live and /health/ready endpoints.
package httpserver
