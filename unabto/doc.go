// Package unabto exposes configuration, lifecycle control and query dispatch
// for an embedded uNabto peer-to-peer stack.
//
// A Facade owns the stack setup and a bounded table of query handlers. The
// embedding application configures it once, registers handlers, calls Init
// and then drives Tick at least every 10 milliseconds. Handlers run
// synchronously inside Tick, on the caller's goroutine. A Facade is not safe
// for concurrent use.
package unabto
