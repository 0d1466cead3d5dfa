// Package discovery maps device ids to the addresses their local
// connections are accepted on.
package discovery

import "errors"

var (
	ErrNotFound = errors.New("discovery: device not found")
)

// DeviceInfo is what a device announces about itself.
type DeviceInfo struct {
	DeviceID   string
	Addr       string
	SecureData bool
}

// Resolver is a generic discovery interface. Implementations can be backed
// by local broadcast, mDNS/DNS-SD, a static list, etc.
type Resolver interface {
	Announce(info DeviceInfo) error
	Withdraw(deviceID string) error
	Lookup(deviceID string) (DeviceInfo, error)
	List() ([]DeviceInfo, error)
}
