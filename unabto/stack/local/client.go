package local

import (
	"context"
	"errors"
	"fmt"

	q "github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/TheusHen/unabto-go/unabto/app"
	"github.com/TheusHen/unabto-go/unabto/crypto"
	"github.com/TheusHen/unabto-go/unabto/discovery"
	"github.com/TheusHen/unabto-go/unabto/protocol"
	"github.com/TheusHen/unabto-go/unabto/stack"
	"github.com/TheusHen/unabto-go/unabto/transport/quic"
)

// ClientConfig identifies a client and the device it attaches to.
type ClientConfig struct {
	ClientID string
	// DeviceID is optional; when set the device must report the same id.
	DeviceID     string
	PresharedKey [stack.PresharedKeySize]byte
	// AllowInsecure accepts devices that attach without proving the key or
	// that do not seal query data.
	AllowInsecure bool
}

// Client is the peer side of a local connection.
type Client struct {
	conn     q.Connection
	control  q.Stream
	deviceID string
	seal     *crypto.Sealer // client to device
	open     *crypto.Sealer // device to client
}

// DialDevice looks the device up in r and dials it.
func DialDevice(ctx context.Context, r discovery.Resolver, cfg ClientConfig) (*Client, error) {
	info, err := r.Lookup(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, info.Addr, cfg)
}

// Dial connects to a device at addr and attaches to it.
func Dial(ctx context.Context, addr string, cfg ClientConfig) (*Client, error) {
	qc, err := quic.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	c, err := attachClient(ctx, qc, cfg)
	if err != nil {
		_ = qc.CloseWithError(codeClosing, "attach failed")
		return nil, err
	}
	return c, nil
}

func attachClient(ctx context.Context, qc q.Connection, cfg ClientConfig) (*Client, error) {
	ctl, err := qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { ctl.CancelRead(codeQueryCanceled) })
	defer stop()

	cn, err := crypto.NewNonce()
	if err != nil {
		return nil, err
	}
	psk := cfg.PresharedKey[:]
	payload, err := protocol.EncodeAttach(protocol.Attach{
		ClientID: cfg.ClientID,
		DeviceID: cfg.DeviceID,
		Nonce:    cn[:],
		MAC:      crypto.AttachMAC(psk, crypto.RoleClient, cfg.ClientID, cn),
	})
	if err != nil {
		return nil, err
	}
	if err := protocol.WriteFrame(ctl, protocol.Frame{Type: protocol.MessageTypeAttach, Payload: payload}); err != nil {
		return nil, err
	}

	f, err := protocol.ReadFrame(ctl)
	if err != nil {
		var appErr *q.ApplicationError
		if errors.As(err, &appErr) && appErr.ErrorCode == codeAttachRefused {
			return nil, fmt.Errorf("%w: %s", ErrAttachRefused, appErr.ErrorMessage)
		}
		return nil, err
	}
	switch f.Type {
	case protocol.MessageTypeAttachAck:
	case protocol.MessageTypeError:
		return nil, fmt.Errorf("%w: %s", ErrAttachRefused, f.Payload)
	default:
		return nil, fmt.Errorf("local: unexpected %s during attach", f.Type)
	}
	ack, err := protocol.DecodeAttachAck(f.Payload)
	if err != nil {
		return nil, err
	}
	if cfg.DeviceID != "" && ack.DeviceID != cfg.DeviceID {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrDeviceAuth, cfg.DeviceID, ack.DeviceID)
	}
	if len(ack.Nonce) != crypto.NonceSize {
		return nil, fmt.Errorf("%w: bad nonce", ErrDeviceAuth)
	}
	var dn [crypto.NonceSize]byte
	copy(dn[:], ack.Nonce)
	switch {
	case len(ack.MAC) > 0:
		if !crypto.VerifyAttachMAC(ack.MAC, psk, crypto.RoleDevice, ack.DeviceID, cn, dn) {
			return nil, ErrDeviceAuth
		}
	case !cfg.AllowInsecure:
		return nil, fmt.Errorf("%w: no attach proof", ErrDeviceAuth)
	}
	if !ack.SecureData && !cfg.AllowInsecure {
		return nil, fmt.Errorf("%w: device does not seal data", ErrDeviceAuth)
	}

	c := &Client{conn: qc, control: ctl, deviceID: ack.DeviceID}
	if ack.SecureData {
		keys, err := crypto.DeriveSessionKeys(psk, cn, dn)
		if err != nil {
			return nil, err
		}
		if c.seal, err = crypto.NewSealer(keys.ClientToDevice); err != nil {
			return nil, err
		}
		if c.open, err = crypto.NewSealer(keys.DeviceToClient); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DeviceID returns the id the device attached with.
func (c *Client) DeviceID() string { return c.deviceID }

// Secure reports whether query payloads are sealed on this connection.
func (c *Client) Secure() bool { return c.seal != nil }

// Query sends one query and waits for the device to answer it. The answer
// only arrives once the device ticks.
func (c *Client) Query(ctx context.Context, queryID uint32, data []byte) (app.Result, []byte, error) {
	st, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return 0, nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		st.CancelRead(codeQueryCanceled)
		st.CancelWrite(codeQueryCanceled)
	})
	defer stop()

	payload := protocol.EncodeQuery(protocol.Query{QueryID: queryID, Data: data})
	if c.seal != nil {
		if payload, err = c.seal.Seal(payload, []byte{byte(protocol.MessageTypeQuery)}); err != nil {
			return 0, nil, err
		}
	}
	if err := protocol.WriteFrame(st, protocol.Frame{Type: protocol.MessageTypeQuery, Payload: payload}); err != nil {
		return 0, nil, err
	}
	if err := st.Close(); err != nil {
		return 0, nil, err
	}

	f, err := protocol.ReadFrame(st)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, err
	}
	if f.Type != protocol.MessageTypeResponse {
		return 0, nil, fmt.Errorf("local: unexpected %s in response", f.Type)
	}
	payload = f.Payload
	if c.open != nil {
		if payload, err = c.open.Open(payload, []byte{byte(protocol.MessageTypeResponse)}); err != nil {
			return 0, nil, err
		}
	}
	resp, err := protocol.DecodeResponse(payload)
	if err != nil {
		return 0, nil, err
	}
	return app.Result(resp.Result), resp.Data, nil
}

func (c *Client) Close() error {
	return multierr.Append(c.control.Close(), c.conn.CloseWithError(codeClosing, "client closed"))
}
