package unabto

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/TheusHen/unabto-go/unabto/app"
	"github.com/TheusHen/unabto-go/unabto/stack"
)

// State is the lifecycle position of a Facade.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler answers one query; see app.Handler.
type Handler = app.Handler

// Facade binds a stack to a handler registry.
type Facade struct {
	stack      stack.Stack
	setup      *stack.Setup
	state      State
	handlers   Registry
	log        *zap.Logger
	registerer prometheus.Registerer
	metrics    *metrics
	strictKey  bool
}

var _ stack.Dispatcher = (*Facade)(nil)

func New(s stack.Stack, opts ...Option) *Facade {
	f := &Facade{stack: s, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	f.metrics = newMetrics(f.registerer, f.log)
	return f
}

func (f *Facade) State() State { return f.state }

// Configure resets the stack setup and applies cfg to it: the device id, a
// key decoded from cfg.PresharedKey, and secure attach and data with
// AES-CBC/HMAC-SHA256. It may be called again before Init, or after Close,
// and then replaces the previous setup.
func (f *Facade) Configure(cfg Config) error {
	if f.state == StateRunning {
		return fmt.Errorf("%w: configure while %s", ErrInvalidState, f.state)
	}
	if f.strictKey {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	setup := f.stack.InitContext()
	setup.ID = cfg.ID
	setup.SecureAttach = true
	setup.SecureData = true
	setup.CryptoSuite = stack.CryptoAESCBCHMACSHA256
	setup.PresharedKey = DecodePresharedKey(cfg.PresharedKey)

	f.setup = setup
	f.state = StateConfigured
	f.log.Info("configured",
		zap.String("id", setup.ID),
		zap.Stringer("crypto_suite", setup.CryptoSuite),
	)
	return nil
}

// Init starts the stack. Any failure, including a missing configuration,
// is reported as ErrInitFailed.
func (f *Facade) Init() error {
	switch f.state {
	case StateRunning, StateClosed:
		return fmt.Errorf("%w: init while %s", ErrInvalidState, f.state)
	case StateUnconfigured:
		f.log.Warn("init without configuration")
		return ErrInitFailed
	}
	if f.setup == nil {
		return ErrInitFailed
	}
	if err := f.stack.Init(f); err != nil {
		f.log.Warn("stack refused to start", zap.Error(err))
		return ErrInitFailed
	}
	f.state = StateRunning
	f.log.Info("started", zap.String("id", f.setup.ID), zap.String("version", Version()))
	return nil
}

// Close stops a running stack. It does nothing in any other state.
func (f *Facade) Close() error {
	if f.state != StateRunning {
		return nil
	}
	f.state = StateClosed
	err := f.stack.Close()
	if err != nil {
		f.log.Warn("stack close", zap.Error(err))
	}
	f.log.Info("closed")
	return err
}

// Tick gives the stack one processing quantum. Handlers for any queries
// that arrived are invoked before Tick returns.
func (f *Facade) Tick() error {
	if f.state != StateRunning {
		return fmt.Errorf("%w: tick while %s", ErrNotRunning, f.state)
	}
	f.stack.Tick()
	f.metrics.ticks.Inc()
	return nil
}

// RegisterHandler appends h for queryID. Registering the same id twice is
// allowed; only the first registration is ever used.
func (f *Facade) RegisterHandler(queryID uint32, h Handler) error {
	if err := f.handlers.Register(queryID, h); err != nil {
		return err
	}
	f.metrics.handlers.Inc()
	f.log.Debug("handler registered", zap.Uint32("query_id", queryID), zap.Int("slot", f.handlers.Len()-1))
	return nil
}

// Dispatch routes a query to the first handler registered for its id and
// returns the handler's result unchanged. Unknown ids yield
// app.ResultInvalidQueryID.
func (f *Facade) Dispatch(req *app.Request, r *app.Reader, w *app.Writer) app.Result {
	var res app.Result
	if req == nil {
		f.log.Error("dispatch without request", zap.Stringer("state", f.state))
		res = app.ResultSystemError
	} else if f.state != StateRunning {
		f.log.Error("dispatch while not running", zap.Stringer("state", f.state), zap.Uint32("query_id", req.QueryID))
		res = app.ResultSystemError
	} else if h, ok := f.handlers.Lookup(req.QueryID); ok {
		res = h(req, r, w)
	} else {
		f.log.Debug("no handler", zap.Uint32("query_id", req.QueryID))
		res = app.ResultInvalidQueryID
	}
	f.metrics.dispatched(res)
	return res
}
