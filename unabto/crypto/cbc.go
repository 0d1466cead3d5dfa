package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
)

var (
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
	ErrDecryptionFailed   = errors.New("crypto: decryption failed")
)

const tagSize = sha256.Size

// Sealer seals and opens messages for one direction.
// Output format: iv (16 bytes) || AES-128-CBC ciphertext || HMAC-SHA256 tag (32 bytes).
// The tag covers additional data, iv and ciphertext.
type Sealer struct {
	block  cipher.Block
	macKey [MACKeySize]byte
}

func NewSealer(keys DirectionKeys) (*Sealer, error) {
	block, err := aes.NewCipher(keys.Enc[:])
	if err != nil {
		return nil, err
	}
	return &Sealer{block: block, macKey: keys.MAC}, nil
}

func (s *Sealer) tag(additionalData, ivAndCiphertext []byte) []byte {
	mac := hmac.New(sha256.New, s.macKey[:])
	mac.Write(additionalData)
	mac.Write(ivAndCiphertext)
	return mac.Sum(nil)
}

// Seal encrypts and authenticates plaintext.
func (s *Sealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	padded := pad(plaintext)
	out := make([]byte, aes.BlockSize+len(padded), aes.BlockSize+len(padded)+tagSize)
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(s.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return append(out, s.tag(additionalData, out)...), nil
}

// Open verifies and decrypts a sealed message.
func (s *Sealer) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < 2*aes.BlockSize+tagSize {
		return nil, ErrCiphertextTooShort
	}
	body := sealed[:len(sealed)-tagSize]
	if !hmac.Equal(sealed[len(body):], s.tag(additionalData, body)) {
		return nil, ErrDecryptionFailed
	}
	ct := body[aes.BlockSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(s.block, body[:aes.BlockSize]).CryptBlocks(plain, ct)
	return unpad(plain)
}

// Overhead returns the worst case size added by Seal.
func (s *Sealer) Overhead() int { return aes.BlockSize + aes.BlockSize + tagSize }

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrDecryptionFailed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrDecryptionFailed
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrDecryptionFailed
		}
	}
	return b[:len(b)-n], nil
}
