package unabto

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Option func(*Facade)

func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.log = l
		}
	}
}

// WithRegisterer registers the facade metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(f *Facade) { f.registerer = reg }
}

// WithStrictPresharedKey makes Configure reject configs that fail Validate
// instead of silently decoding whatever key material is present.
func WithStrictPresharedKey() Option {
	return func(f *Facade) { f.strictKey = true }
}
