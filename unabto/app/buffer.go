package app

import (
	"encoding/binary"
	"errors"
)

var (
	ErrShortBuffer = errors.New("app: not enough data in query buffer")
	ErrBufferFull  = errors.New("app: response buffer full")
)

// Reader consumes big-endian query arguments from a request payload.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) next(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadRaw reads a uint16 length prefix followed by that many bytes.
// The returned slice is a copy.
func (r *Reader) ReadRaw() ([]byte, error) {
	start := r.off
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	b, err := r.next(int(n))
	if err != nil {
		r.off = start
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Writer accumulates a response up to a fixed capacity.
type Writer struct {
	buf []byte
	max int
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity), max: capacity}
}

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Cap() int { return w.max }

// Bytes returns the written response. The slice aliases the writer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) grow(n int) ([]byte, error) {
	if len(w.buf)+n > w.max {
		return nil, ErrBufferFull
	}
	l := len(w.buf)
	w.buf = w.buf[:l+n]
	return w.buf[l:], nil
}

func (w *Writer) WriteUint8(v uint8) error {
	b, err := w.grow(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) WriteUint16(v uint16) error {
	b, err := w.grow(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

func (w *Writer) WriteUint32(v uint32) error {
	b, err := w.grow(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

// WriteRaw writes a uint16 length prefix followed by p.
func (w *Writer) WriteRaw(p []byte) error {
	if len(p) > 0xffff {
		return ErrBufferFull
	}
	b, err := w.grow(2 + len(p))
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, uint16(len(p)))
	copy(b[2:], p)
	return nil
}
