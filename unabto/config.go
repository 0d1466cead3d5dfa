package unabto

import (
	"fmt"

	"github.com/TheusHen/unabto-go/unabto/stack"
)

// Config is the device configuration applied by Configure.
type Config struct {
	// ID of the device. It has to be unique.
	ID string
	// PresharedKey is the hex encoded key securing attach and data.
	PresharedKey string
}

// Validate checks that the id is set and that the key is exactly
// stack.PresharedKeySize bytes of well-formed hex. Configure only calls it
// when strict key checking is enabled.
func (c Config) Validate() error {
	if c.ID == "" {
		return ErrMissingID
	}
	if len(c.PresharedKey) != 2*stack.PresharedKeySize {
		return fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidPresharedKey, 2*stack.PresharedKeySize, len(c.PresharedKey))
	}
	for i := 0; i < len(c.PresharedKey); i++ {
		if _, ok := fromHexChar(c.PresharedKey[i]); !ok {
			return fmt.Errorf("%w: bad digit %q at %d", ErrInvalidPresharedKey, c.PresharedKey[i], i)
		}
	}
	return nil
}

// DecodePresharedKey decodes consecutive two-digit hex groups of s into a
// key, stopping at whichever of the string or the key runs out first. A
// trailing odd digit is ignored. Malformed input never fails: a group that
// starts with a non-hex character leaves its byte zero, and a group whose
// second character is not hex contributes only its first digit.
func DecodePresharedKey(s string) [stack.PresharedKeySize]byte {
	var key [stack.PresharedKeySize]byte
	for i := 0; i < len(s)/2 && i < len(key); i++ {
		hi, ok := fromHexChar(s[2*i])
		if !ok {
			continue
		}
		v := hi
		if lo, ok := fromHexChar(s[2*i+1]); ok {
			v = hi<<4 | lo
		}
		key[i] = v
	}
	return key
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
