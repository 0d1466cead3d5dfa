package local

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/unabto-go/unabto"
	"github.com/TheusHen/unabto-go/unabto/app"
	"github.com/TheusHen/unabto-go/unabto/crypto"
	"github.com/TheusHen/unabto-go/unabto/discovery"
	"github.com/TheusHen/unabto-go/unabto/discovery/memory"
	"github.com/TheusHen/unabto-go/unabto/protocol"
	"github.com/TheusHen/unabto-go/unabto/runloop"
	"github.com/TheusHen/unabto-go/unabto/stack"
	"github.com/TheusHen/unabto-go/unabto/transport/quic"
)

const (
	testDeviceID = "dev1.demo.nabto.net"
	testKeyHex   = "00112233445566778899aabbccddeeff"
)

// startDevice configures and starts a facade over a local stack and drives
// its tick loop until the test ends.
func startDevice(t *testing.T, opts ...Option) (*unabto.Facade, *Stack) {
	t.Helper()
	s := New(append([]Option{WithListenAddr("127.0.0.1:0")}, opts...)...)
	f := unabto.New(s)
	require.NoError(t, f.Configure(unabto.Config{ID: testDeviceID, PresharedKey: testKeyHex}))

	require.NoError(t, f.RegisterHandler(1, func(req *app.Request, r *app.Reader, w *app.Writer) app.Result {
		if err := w.WriteRaw([]byte("hello " + req.ClientID)); err != nil {
			return app.ResultResponseTooLarge
		}
		return app.ResultResponseReady
	}))
	require.NoError(t, f.RegisterHandler(2, func(req *app.Request, r *app.Reader, w *app.Writer) app.Result {
		a, err := r.ReadUint32()
		if err != nil {
			return app.ResultTooSmall
		}
		b, err := r.ReadUint32()
		if err != nil {
			return app.ResultTooSmall
		}
		if err := w.WriteUint32(a + b); err != nil {
			return app.ResultResponseTooLarge
		}
		return app.ResultResponseReady
	}))
	require.NoError(t, f.Init())
	require.NotEmpty(t, s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runloop.New(f).Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = f.Close()
	})
	return f, s
}

func clientConfig() ClientConfig {
	return ClientConfig{
		ClientID:     "phone",
		DeviceID:     testDeviceID,
		PresharedKey: unabto.DecodePresharedKey(testKeyHex),
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSecureQueryRoundTrip(t *testing.T) {
	ctx := testContext(t)
	_, s := startDevice(t)

	c, err := Dial(ctx, s.Addr(), clientConfig())
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Secure())
	assert.Equal(t, testDeviceID, c.DeviceID())

	res, data, err := c.Query(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, app.ResultResponseReady, res)
	msg, err := app.NewReader(data).ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, "hello phone", string(msg))

	args := make([]byte, 8)
	binary.BigEndian.PutUint32(args[0:], 40)
	binary.BigEndian.PutUint32(args[4:], 2)
	res, data, err = c.Query(ctx, 2, args)
	require.NoError(t, err)
	assert.Equal(t, app.ResultResponseReady, res)
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(data))
}

func TestQueryResultCodes(t *testing.T) {
	ctx := testContext(t)
	_, s := startDevice(t)

	c, err := Dial(ctx, s.Addr(), clientConfig())
	require.NoError(t, err)
	defer c.Close()

	res, data, err := c.Query(ctx, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, app.ResultInvalidQueryID, res)
	assert.Empty(t, data)

	res, _, err = c.Query(ctx, 2, []byte{0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, app.ResultTooSmall, res)
}

func TestAttachWrongKeyRefused(t *testing.T) {
	ctx := testContext(t)
	_, s := startDevice(t)

	cfg := clientConfig()
	cfg.PresharedKey[0] ^= 0xff
	_, err := Dial(ctx, s.Addr(), cfg)
	assert.ErrorIs(t, err, ErrAttachRefused)
}

func TestAttachWrongDeviceRefused(t *testing.T) {
	ctx := testContext(t)
	_, s := startDevice(t)

	cfg := clientConfig()
	cfg.DeviceID = "someone-else"
	_, err := Dial(ctx, s.Addr(), cfg)
	assert.ErrorIs(t, err, ErrAttachRefused)
}

// startImpostor answers every attach with ack and keeps the connection open
// until the test ends. The impostor does not hold the device key.
func startImpostor(t *testing.T, ack func(protocol.Attach) protocol.AttachAck) string {
	t.Helper()
	ln, err := quic.Listen("127.0.0.1:0", testDeviceID)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = ln.Close()
	})

	go func() {
		for {
			qc, err := ln.Accept(ctx)
			if err != nil {
				return
			}
			go func() {
				defer qc.CloseWithError(0, "")
				ctl, err := qc.AcceptStream(ctx)
				if err != nil {
					return
				}
				f, err := protocol.ReadFrame(ctl)
				if err != nil {
					return
				}
				a, err := protocol.DecodeAttach(f.Payload)
				if err != nil {
					return
				}
				payload, err := protocol.EncodeAttachAck(ack(a))
				if err != nil {
					return
				}
				_ = protocol.WriteFrame(ctl, protocol.Frame{Type: protocol.MessageTypeAttachAck, Payload: payload})
				<-ctx.Done()
			}()
		}
	}()
	return ln.AddrString()
}

func TestImpostorDeviceRefused(t *testing.T) {
	cases := map[string]func(protocol.Attach) protocol.AttachAck{
		"no proof, plain data": func(protocol.Attach) protocol.AttachAck {
			dn, _ := crypto.NewNonce()
			return protocol.AttachAck{DeviceID: testDeviceID, Nonce: dn[:]}
		},
		"no proof, claims sealing": func(protocol.Attach) protocol.AttachAck {
			dn, _ := crypto.NewNonce()
			return protocol.AttachAck{DeviceID: testDeviceID, Nonce: dn[:], SecureData: true}
		},
		"proof with wrong key": func(a protocol.Attach) protocol.AttachAck {
			var cn [crypto.NonceSize]byte
			copy(cn[:], a.Nonce)
			dn, _ := crypto.NewNonce()
			wrong := make([]byte, stack.PresharedKeySize)
			return protocol.AttachAck{
				DeviceID:   testDeviceID,
				Nonce:      dn[:],
				MAC:        crypto.AttachMAC(wrong, crypto.RoleDevice, testDeviceID, cn, dn),
				SecureData: true,
			}
		},
	}
	for name, ack := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := testContext(t)
			addr := startImpostor(t, ack)
			c, err := Dial(ctx, addr, clientConfig())
			assert.ErrorIs(t, err, ErrDeviceAuth)
			assert.Nil(t, c)
		})
	}
}

func TestDialDeviceViaResolver(t *testing.T) {
	ctx := testContext(t)
	dir := memory.New()

	var f *unabto.Facade
	// Cleanups run last-in first-out, so this check runs after the device
	// started below has been closed.
	t.Cleanup(func() {
		_, err := dir.Lookup(testDeviceID)
		assert.ErrorIs(t, err, discovery.ErrNotFound)
		assert.Equal(t, unabto.StateClosed, f.State())
	})
	f, s := startDevice(t, WithResolver(dir))

	info, err := dir.Lookup(testDeviceID)
	require.NoError(t, err)
	assert.Equal(t, s.Addr(), info.Addr)
	assert.True(t, info.SecureData)

	c, err := DialDevice(ctx, dir, clientConfig())
	require.NoError(t, err)
	defer c.Close()
	res, _, err := c.Query(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, app.ResultResponseReady, res)
}

func TestQueuedQueriesWaitForTick(t *testing.T) {
	ctx := testContext(t)
	s := New(WithListenAddr("127.0.0.1:0"))
	f := unabto.New(s)
	require.NoError(t, f.Configure(unabto.Config{ID: testDeviceID, PresharedKey: testKeyHex}))
	require.NoError(t, f.RegisterHandler(7, func(*app.Request, *app.Reader, *app.Writer) app.Result {
		return app.ResultResponseReady
	}))
	require.NoError(t, f.Init())
	defer f.Close()

	c, err := Dial(ctx, s.Addr(), clientConfig())
	require.NoError(t, err)
	defer c.Close()

	type answer struct {
		res app.Result
		err error
	}
	got := make(chan answer, 1)
	go func() {
		res, _, err := c.Query(ctx, 7, nil)
		got <- answer{res, err}
	}()

	// Nothing is answered until the device ticks.
	require.Eventually(t, func() bool { return len(s.pending) == 1 }, 5*time.Second, time.Millisecond)
	select {
	case <-got:
		t.Fatal("query answered without a tick")
	default:
	}

	require.NoError(t, f.Tick())
	a := <-got
	require.NoError(t, a.err)
	assert.Equal(t, app.ResultResponseReady, a.res)
}

func TestInitValidation(t *testing.T) {
	d := stack.DispatcherFunc(func(*app.Request, *app.Reader, *app.Writer) app.Result { return app.ResultResponseReady })

	s := New(WithListenAddr("127.0.0.1:0"))
	assert.ErrorIs(t, s.Init(d), stack.ErrMissingID)

	setup := s.InitContext()
	setup.ID = testDeviceID
	assert.ErrorIs(t, s.Init(nil), stack.ErrNoDispatcher)

	setup.EnableLocalConnection = false
	assert.ErrorIs(t, s.Init(d), ErrLocalDisabled)

	setup = s.InitContext()
	setup.ID = testDeviceID
	setup.SecureData = true
	assert.ErrorIs(t, s.Init(d), ErrUnsupportedSuite)

	setup.CryptoSuite = stack.CryptoAESCBCHMACSHA256
	require.NoError(t, s.Init(d))
	assert.ErrorIs(t, s.Init(d), stack.ErrAlreadyInit)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Empty(t, s.Addr())
}

func TestPlainStackWithoutSecureData(t *testing.T) {
	ctx := testContext(t)
	s := New(WithListenAddr("127.0.0.1:0"))
	setup := s.InitContext()
	setup.ID = testDeviceID
	require.NoError(t, s.Init(stack.DispatcherFunc(func(req *app.Request, _ *app.Reader, w *app.Writer) app.Result {
		_ = w.WriteUint8(uint8(req.QueryID))
		return app.ResultResponseReady
	})))
	defer s.Close()

	_, err := Dial(ctx, s.Addr(), ClientConfig{ClientID: "tablet"})
	assert.ErrorIs(t, err, ErrDeviceAuth)

	c, err := Dial(ctx, s.Addr(), ClientConfig{ClientID: "tablet", AllowInsecure: true})
	require.NoError(t, err)
	defer c.Close()
	assert.False(t, c.Secure())

	got := make(chan []byte, 1)
	go func() {
		_, data, _ := c.Query(ctx, 9, nil)
		got <- data
	}()
	require.Eventually(t, func() bool { return len(s.pending) == 1 }, 5*time.Second, time.Millisecond)
	s.Tick()
	assert.Equal(t, []byte{9}, <-got)
}
