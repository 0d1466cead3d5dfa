// Package app holds the application-facing types of a uNabto query:
// the request metadata, the query buffers and the event result codes.
package app
