// Package local implements stack.Stack for local connections: peers on the
// same network dial the device directly over QUIC, attach with the preshared
// key and send queries that are answered from the device's tick loop.
//
// Network I/O runs on background goroutines, but queries are only handed to
// the dispatcher from Tick, so handlers always run on the goroutine that
// drives the stack.
package local
