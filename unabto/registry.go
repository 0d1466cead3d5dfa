package unabto

import "github.com/TheusHen/unabto-go/unabto/app"

// MaxHandlers is the capacity of the handler registry.
const MaxHandlers = 32

type registration struct {
	queryID uint32
	handler app.Handler
}

// Registry is an append-only, fixed-capacity table of query handlers.
// Lookups scan in registration order and the first match wins.
type Registry struct {
	entries [MaxHandlers]registration
	n       int
}

func (r *Registry) Register(queryID uint32, h app.Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if r.n >= MaxHandlers {
		return ErrRegistryFull
	}
	r.entries[r.n] = registration{queryID: queryID, handler: h}
	r.n++
	return nil
}

func (r *Registry) Lookup(queryID uint32) (app.Handler, bool) {
	for i := 0; i < r.n; i++ {
		if r.entries[i].queryID == queryID {
			return r.entries[i].handler, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int { return r.n }
