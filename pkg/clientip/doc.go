// Package clientip resolves the address of the peer behind an HTTP request,
// optionally honouring proxy headers, and carries it in the request context
// for logging and rate limiting.
package clientip
