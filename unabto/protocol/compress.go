package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/pierrec/lz4/v4"
)

var ErrDecompressionFailed = errors.New("protocol: decompression failed")

// compress returns an LZ4 block prefixed with the uncompressed size, or false
// if compression does not help.
func compress(data []byte) ([]byte, bool) {
	out := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, out[4:])
	if err != nil || n == 0 || 4+n >= len(data) {
		return nil, false
	}
	return out[:4+n], true
}

func decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, ErrDecompressionFailed
	}
	size := binary.BigEndian.Uint32(data)
	if size > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil || n != int(size) {
		return nil, ErrDecompressionFailed
	}
	return out, nil
}
