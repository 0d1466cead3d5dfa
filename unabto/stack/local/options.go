package local

import (
	"go.uber.org/zap"

	"github.com/TheusHen/unabto-go/unabto/discovery"
	"github.com/TheusHen/unabto-go/unabto/stack"
)

const (
	DefaultMaxResponseSize = 1024
	DefaultQueueSize       = 64
	DefaultMaxPerTick      = 16
)

type Option func(*Stack)

func WithLogger(l *zap.Logger) Option {
	return func(s *Stack) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListenAddr sets the local address InitContext puts in the setup.
func WithListenAddr(addr string) Option {
	return func(s *Stack) { s.listenAddr = addr }
}

// WithResolver announces the device on Init and withdraws it on Close.
func WithResolver(r discovery.Resolver) Option {
	return func(s *Stack) { s.resolver = r }
}

// WithMaxResponseSize bounds the response buffer handed to handlers.
func WithMaxResponseSize(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.maxResponse = n
		}
	}
}

// WithQueueSize bounds the number of queries waiting for a tick. Queries
// arriving while the queue is full are answered with OUT_OF_RESOURCES.
func WithQueueSize(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMaxPerTick bounds how many queries a single Tick dispatches.
func WithMaxPerTick(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.maxPerTick = n
		}
	}
}

func defaults() *Stack {
	return &Stack{
		log:         zap.NewNop(),
		listenAddr:  stack.DefaultLocalAddr,
		maxResponse: DefaultMaxResponseSize,
		queueSize:   DefaultQueueSize,
		maxPerTick:  DefaultMaxPerTick,
	}
}
