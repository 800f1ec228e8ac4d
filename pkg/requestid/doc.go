// Package requestid propagates an X-Request-ID through HTTP handlers and
// log records.
//
// Mount Middleware at the top of the router and register LoggerExtractor
// with the logger so every *Context log call carries request_id.
package requestid
