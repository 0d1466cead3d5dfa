package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	q "github.com/quic-go/quic-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/TheusHen/unabto-go/unabto/app"
	"github.com/TheusHen/unabto-go/unabto/crypto"
	"github.com/TheusHen/unabto-go/unabto/discovery"
	"github.com/TheusHen/unabto-go/unabto/protocol"
	"github.com/TheusHen/unabto-go/unabto/stack"
	"github.com/TheusHen/unabto-go/unabto/transport/quic"
)

var (
	ErrLocalDisabled    = errors.New("local: local connections disabled")
	ErrUnsupportedSuite = errors.New("local: unsupported crypto suite")
	ErrAttachRefused    = errors.New("local: attach refused")
	ErrDeviceAuth       = errors.New("local: device failed to authenticate")
)

const (
	codeClosing       q.ApplicationErrorCode = 0
	codeAttachRefused q.ApplicationErrorCode = 1
	codeQueryCanceled q.StreamErrorCode      = 1

	attachTimeout = 5 * time.Second
	queryTimeout  = 5 * time.Second
)

// Stack is a stack.Stack accepting local connections over QUIC.
type Stack struct {
	setup       stack.Setup
	listenAddr  string
	resolver    discovery.Resolver
	log         *zap.Logger
	maxResponse int
	queueSize   int
	maxPerTick  int

	// Set by Init, cleared by Close. Only touched by the driving goroutine.
	running    bool
	active     stack.Setup
	dispatcher stack.Dispatcher
	listener   *quic.Listener
	pending    chan *pendingQuery
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[uuid.UUID]*conn
}

var _ stack.Stack = (*Stack)(nil)

type conn struct {
	id       uuid.UUID
	clientID string
	qc       q.Connection
	control  q.Stream
	open     *crypto.Sealer // client to device
	seal     *crypto.Sealer // device to client
}

type pendingQuery struct {
	conn   *conn
	stream q.Stream
	query  protocol.Query
}

func New(opts ...Option) *Stack {
	s := defaults()
	for _, opt := range opts {
		opt(s)
	}
	s.setup = s.defaultSetup()
	return s
}

func (s *Stack) defaultSetup() stack.Setup {
	setup := stack.DefaultSetup()
	setup.LocalAddr = s.listenAddr
	return setup
}

func (s *Stack) InitContext() *stack.Setup {
	s.setup = s.defaultSetup()
	return &s.setup
}

// Addr returns the address local connections are accepted on, or "" when
// the stack is not running.
func (s *Stack) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.AddrString()
}

func (s *Stack) Init(d stack.Dispatcher) error {
	if s.running {
		return stack.ErrAlreadyInit
	}
	if d == nil {
		return stack.ErrNoDispatcher
	}
	setup := s.setup
	if setup.ID == "" {
		return stack.ErrMissingID
	}
	if !setup.EnableLocalConnection {
		return ErrLocalDisabled
	}
	if setup.SecureData && setup.CryptoSuite != stack.CryptoAESCBCHMACSHA256 {
		return fmt.Errorf("%w: %s", ErrUnsupportedSuite, setup.CryptoSuite)
	}
	if setup.EnableRemoteConnection {
		s.log.Info("remote connections are not provided by this stack, serving local connections only")
	}
	addr := setup.LocalAddr
	if addr == "" {
		addr = s.listenAddr
	}

	ln, err := quic.Listen(addr, setup.ID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.active = setup
	s.dispatcher = d
	s.listener = ln
	s.pending = make(chan *pendingQuery, s.queueSize)
	s.conns = map[uuid.UUID]*conn{}
	s.cancel = cancel
	s.running = true

	if s.resolver != nil {
		info := discovery.DeviceInfo{DeviceID: setup.ID, Addr: ln.AddrString(), SecureData: setup.SecureData}
		if err := s.resolver.Announce(info); err != nil {
			s.log.Warn("announce failed", zap.Error(err))
		}
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	s.log.Info("local connections enabled",
		zap.String("id", setup.ID),
		zap.String("addr", ln.AddrString()),
		zap.Bool("secure_attach", setup.SecureAttach),
		zap.Bool("secure_data", setup.SecureData),
	)
	return nil
}

// Close stops accepting connections, drops every attached client and waits
// for the network goroutines to exit. Calling Close on a stack that is not
// running does nothing.
func (s *Stack) Close() error {
	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()

	var err error
	s.mu.Lock()
	for id, c := range s.conns {
		err = multierr.Append(err, c.qc.CloseWithError(codeClosing, "closing"))
		delete(s.conns, id)
	}
	s.mu.Unlock()
	err = multierr.Append(err, s.listener.Close())
	if s.resolver != nil {
		err = multierr.Append(err, s.resolver.Withdraw(s.active.ID))
	}
	s.wg.Wait()

drain:
	for {
		select {
		case pq := <-s.pending:
			pq.stream.CancelWrite(codeQueryCanceled)
		default:
			break drain
		}
	}
	s.listener = nil
	s.dispatcher = nil
	s.log.Info("local connections closed", zap.String("id", s.active.ID))
	return err
}

// Tick dispatches queued queries, at most the configured number per call.
func (s *Stack) Tick() {
	if !s.running {
		return
	}
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case pq := <-s.pending:
			s.serve(pq)
		default:
			return
		}
	}
}

func (s *Stack) serve(pq *pendingQuery) {
	req := &app.Request{
		QueryID:      pq.query.QueryID,
		ClientID:     pq.conn.clientID,
		ConnectionID: pq.conn.id,
		IsLocal:      true,
	}
	w := app.NewWriter(s.maxResponse)
	res := s.dispatcher.Dispatch(req, app.NewReader(pq.query.Data), w)

	var data []byte
	if res == app.ResultResponseReady {
		data = w.Bytes()
	}
	if err := s.respond(pq.conn, pq.stream, protocol.Response{Result: uint32(res), Data: data}); err != nil {
		s.log.Debug("write response", zap.Stringer("conn", pq.conn.id), zap.Error(err))
	}
}

func (s *Stack) respond(c *conn, st q.Stream, r protocol.Response) error {
	payload := protocol.EncodeResponse(r)
	if c.seal != nil {
		sealed, err := c.seal.Seal(payload, []byte{byte(protocol.MessageTypeResponse)})
		if err != nil {
			return err
		}
		payload = sealed
	}
	err := protocol.WriteFrame(st, protocol.Frame{Type: protocol.MessageTypeResponse, Payload: payload})
	return multierr.Append(err, st.Close())
}

func (s *Stack) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		qc, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("accept", zap.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go s.handleConn(ctx, qc)
	}
}

func (s *Stack) handleConn(ctx context.Context, qc q.Connection) {
	defer s.wg.Done()

	c, err := s.attach(ctx, qc)
	if err != nil {
		s.log.Info("attach refused", zap.Stringer("remote", qc.RemoteAddr()), zap.Error(err))
		_ = qc.CloseWithError(codeAttachRefused, err.Error())
		return
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.log.Info("client attached", zap.String("client_id", c.clientID), zap.Stringer("conn", c.id))

	defer func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
		_ = qc.CloseWithError(codeClosing, "")
		s.log.Info("client detached", zap.String("client_id", c.clientID), zap.Stringer("conn", c.id))
	}()

	for {
		st, err := qc.AcceptStream(ctx)
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.readQuery(ctx, c, st)
	}
}

func (s *Stack) attach(ctx context.Context, qc q.Connection) (*conn, error) {
	actx, cancel := context.WithTimeout(ctx, attachTimeout)
	defer cancel()
	ctl, err := qc.AcceptStream(actx)
	if err != nil {
		return nil, err
	}
	_ = ctl.SetReadDeadline(time.Now().Add(attachTimeout))

	refuse := func(reason error) (*conn, error) {
		_ = protocol.WriteFrame(ctl, protocol.Frame{Type: protocol.MessageTypeError, Payload: []byte(reason.Error())})
		_ = ctl.Close()
		return nil, reason
	}

	f, err := protocol.ReadFrame(ctl)
	if err != nil {
		return nil, err
	}
	if f.Type != protocol.MessageTypeAttach {
		return refuse(fmt.Errorf("%w: expected %s, got %s", ErrAttachRefused, protocol.MessageTypeAttach, f.Type))
	}
	a, err := protocol.DecodeAttach(f.Payload)
	if err != nil {
		return refuse(fmt.Errorf("%w: %v", ErrAttachRefused, err))
	}
	setup := s.active
	if a.DeviceID != "" && a.DeviceID != setup.ID {
		return refuse(fmt.Errorf("%w: unknown device %q", ErrAttachRefused, a.DeviceID))
	}
	if len(a.Nonce) != crypto.NonceSize {
		return refuse(fmt.Errorf("%w: bad nonce", ErrAttachRefused))
	}
	var cn [crypto.NonceSize]byte
	copy(cn[:], a.Nonce)

	psk := setup.PresharedKey[:]
	if setup.SecureAttach && !crypto.VerifyAttachMAC(a.MAC, psk, crypto.RoleClient, a.ClientID, cn) {
		return refuse(fmt.Errorf("%w: bad credentials", ErrAttachRefused))
	}

	dn, err := crypto.NewNonce()
	if err != nil {
		return nil, err
	}
	ack := protocol.AttachAck{DeviceID: setup.ID, Nonce: dn[:], SecureData: setup.SecureData}
	if setup.SecureAttach {
		ack.MAC = crypto.AttachMAC(psk, crypto.RoleDevice, setup.ID, cn, dn)
	}

	c := &conn{id: uuid.New(), clientID: a.ClientID, qc: qc, control: ctl}
	if setup.SecureData {
		keys, err := crypto.DeriveSessionKeys(psk, cn, dn)
		if err != nil {
			return nil, err
		}
		if c.open, err = crypto.NewSealer(keys.ClientToDevice); err != nil {
			return nil, err
		}
		if c.seal, err = crypto.NewSealer(keys.DeviceToClient); err != nil {
			return nil, err
		}
		ack.CryptoSuite = setup.CryptoSuite.String()
	}

	payload, err := protocol.EncodeAttachAck(ack)
	if err != nil {
		return nil, err
	}
	if err := protocol.WriteFrame(ctl, protocol.Frame{Type: protocol.MessageTypeAttachAck, Payload: payload}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Stack) readQuery(ctx context.Context, c *conn, st q.Stream) {
	defer s.wg.Done()
	_ = st.SetReadDeadline(time.Now().Add(queryTimeout))

	f, err := protocol.ReadFrame(st)
	if err != nil {
		st.CancelRead(codeQueryCanceled)
		st.CancelWrite(codeQueryCanceled)
		return
	}
	if f.Type != protocol.MessageTypeQuery {
		_ = s.respond(c, st, protocol.Response{Result: uint32(app.ResultNoQueryID)})
		return
	}
	payload := f.Payload
	if c.open != nil {
		if payload, err = c.open.Open(payload, []byte{byte(protocol.MessageTypeQuery)}); err != nil {
			s.log.Warn("query rejected", zap.Stringer("conn", c.id), zap.Error(err))
			st.CancelWrite(codeQueryCanceled)
			return
		}
	}
	query, err := protocol.DecodeQuery(payload)
	if err != nil {
		_ = s.respond(c, st, protocol.Response{Result: uint32(app.ResultNoQueryID)})
		return
	}

	select {
	case s.pending <- &pendingQuery{conn: c, stream: st, query: query}:
	case <-ctx.Done():
		st.CancelWrite(codeQueryCanceled)
	default:
		s.log.Warn("query queue full", zap.Uint32("query_id", query.QueryID))
		_ = s.respond(c, st, protocol.Response{Result: uint32(app.ResultOutOfResources)})
	}
}
