package unabto

import "errors"

var (
	// ErrInitFailed is the single failure reported by Init: either the facade
	// was never configured or the stack refused to start.
	ErrInitFailed = errors.New("unabto: init failed")

	ErrInvalidState        = errors.New("unabto: invalid state")
	ErrNotRunning          = errors.New("unabto: not running")
	ErrRegistryFull        = errors.New("unabto: handler registry full")
	ErrNilHandler          = errors.New("unabto: nil handler")
	ErrMissingID           = errors.New("unabto: missing id")
	ErrInvalidPresharedKey = errors.New("unabto: invalid preshared key")
)
