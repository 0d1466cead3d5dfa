// Package stack defines the contract between the dispatch facade and the
// networking stack that carries queries between peers.
package stack

import (
	"errors"

	"github.com/TheusHen/unabto-go/unabto/app"
)

// Release version of the stack contract implemented by this module.
const (
	ReleaseMajor = 3
	ReleaseMinor = 0
)

// PresharedKeySize is the size of the symmetric key used for secure attach
// and secure data (AES-128).
const PresharedKeySize = 16

// DefaultLocalAddr is where local connections are accepted unless configured otherwise.
const DefaultLocalAddr = "[::]:5570"

var (
	ErrMissingID    = errors.New("stack: setup has no id")
	ErrNotInit      = errors.New("stack: not initialized")
	ErrAlreadyInit  = errors.New("stack: already initialized")
	ErrNoDispatcher = errors.New("stack: no dispatcher")
)

type CryptoSuite uint8

const (
	CryptoNone CryptoSuite = iota
	CryptoAESCBCHMACSHA256
)

func (c CryptoSuite) String() string {
	switch c {
	case CryptoNone:
		return "none"
	case CryptoAESCBCHMACSHA256:
		return "aes-cbc-hmac-sha256"
	default:
		return "unknown"
	}
}

// Setup is the stack configuration. A stack owns exactly one Setup; it is
// reset by InitContext and read by Init.
type Setup struct {
	ID           string
	SecureAttach bool
	SecureData   bool
	CryptoSuite  CryptoSuite
	PresharedKey [PresharedKeySize]byte

	EnableLocalConnection  bool
	EnableRemoteConnection bool
	EnableDNSFallback      bool
	LocalAddr              string
}

// DefaultSetup returns the setup a stack starts from.
func DefaultSetup() Setup {
	return Setup{
		CryptoSuite:            CryptoNone,
		EnableLocalConnection:  true,
		EnableRemoteConnection: true,
		EnableDNSFallback:      true,
		LocalAddr:              DefaultLocalAddr,
	}
}

// Dispatcher receives queries from the stack. Dispatch is only ever called
// from inside Stack.Tick, on the goroutine that called Tick.
type Dispatcher interface {
	Dispatch(req *app.Request, r *app.Reader, w *app.Writer) app.Result
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(req *app.Request, r *app.Reader, w *app.Writer) app.Result

func (f DispatcherFunc) Dispatch(req *app.Request, r *app.Reader, w *app.Writer) app.Result {
	return f(req, r, w)
}

// Stack is the networking collaborator driven by the facade.
type Stack interface {
	// InitContext replaces the current setup with defaults and returns it
	// for the caller to fill in.
	InitContext() *Setup
	// Init starts the stack with the current setup. Queries are delivered to d.
	Init(d Dispatcher) error
	// Close tears the stack down.
	Close() error
	// Tick gives the stack one quantum to process I/O and dispatch queries.
	Tick()
}
