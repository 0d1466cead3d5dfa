package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxFramePayload limits a single protocol frame payload.
	MaxFramePayload = 64 << 10 // 64 KiB

	// CompressThreshold is the payload size above which WriteFrame tries LZ4.
	CompressThreshold = 512

	headerSize = 6
)

var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
	ErrInvalidType   = errors.New("protocol: invalid message type")
)

// Frame is the basic wire container.
// Format:
//
//	1 byte: type
//	1 byte: flags
//	4 bytes: payload length (big endian)
//	N bytes: payload
//
// Payloads larger than CompressThreshold are LZ4 compressed on the wire
// when that makes them smaller; Payload always holds the plain bytes.
type Frame struct {
	Type    MessageType
	Payload []byte
}

func WriteFrame(w io.Writer, f Frame) error {
	if f.Type == 0 {
		return ErrInvalidType
	}
	if len(f.Payload) > MaxFramePayload {
		return ErrFrameTooLarge
	}

	payload := f.Payload
	var flags uint8
	if len(payload) > CompressThreshold {
		if c, ok := compress(payload); ok {
			payload = c
			flags |= FlagCompressed
		}
	}

	buf := make([]byte, headerSize+len(payload))
	buf[0] = byte(f.Type)
	buf[1] = flags
	binary.BigEndian.PutUint32(buf[2:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	_, err := w.Write(buf)
	return err
}

func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	mt := MessageType(hdr[0])
	if mt == 0 {
		return Frame{}, ErrInvalidType
	}
	flags := hdr[1]
	payloadLen := binary.BigEndian.Uint32(hdr[2:])
	if payloadLen > MaxFramePayload {
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameTooLarge, payloadLen)
	}
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	if flags&FlagCompressed != 0 {
		plain, err := decompress(payload)
		if err != nil {
			return Frame{}, err
		}
		payload = plain
	}
	return Frame{Type: mt, Payload: payload}, nil
}
