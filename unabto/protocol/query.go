package protocol

import (
	"encoding/binary"
	"errors"
)

var ErrShortMessage = errors.New("protocol: message too short")

// Query payload: 4 bytes query id (big endian) followed by the argument bytes.
type Query struct {
	QueryID uint32
	Data    []byte
}

// Response payload: 4 bytes result code (big endian) followed by the response bytes.
type Response struct {
	Result uint32
	Data   []byte
}

func EncodeQuery(q Query) []byte {
	return encodeHeaded(q.QueryID, q.Data)
}

func DecodeQuery(b []byte) (Query, error) {
	id, data, err := decodeHeaded(b)
	if err != nil {
		return Query{}, err
	}
	return Query{QueryID: id, Data: data}, nil
}

func EncodeResponse(r Response) []byte {
	return encodeHeaded(r.Result, r.Data)
}

func DecodeResponse(b []byte) (Response, error) {
	res, data, err := decodeHeaded(b)
	if err != nil {
		return Response{}, err
	}
	return Response{Result: res, Data: data}, nil
}

func encodeHeaded(head uint32, data []byte) []byte {
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out, head)
	copy(out[4:], data)
	return out
}

func decodeHeaded(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrShortMessage
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}
