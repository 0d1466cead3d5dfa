package memory

import (
	"sort"
	"sync"

	"github.com/TheusHen/unabto-go/unabto/discovery"
)

// Store is an in-memory discovery resolver.
// It is useful for tests, examples and single-process deployments.
type Store struct {
	mu      sync.RWMutex
	devices map[string]discovery.DeviceInfo
}

func New() *Store {
	return &Store{devices: map[string]discovery.DeviceInfo{}}
}

func (s *Store) Announce(info discovery.DeviceInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[info.DeviceID] = info
	return nil
}

func (s *Store) Withdraw(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, deviceID)
	return nil
}

func (s *Store) Lookup(deviceID string) (discovery.DeviceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.devices[deviceID]
	if !ok {
		return discovery.DeviceInfo{}, discovery.ErrNotFound
	}
	return info, nil
}

// List returns all announced devices ordered by id.
func (s *Store) List() ([]discovery.DeviceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discovery.DeviceInfo, 0, len(s.devices))
	for _, info := range s.devices {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}
