package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
)

// Roles bind an attach proof to the side that produced it.
const (
	RoleClient = "client"
	RoleDevice = "device"
)

// NewNonce returns a fresh random attach nonce.
func NewNonce() ([NonceSize]byte, error) {
	var n [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return n, err
	}
	return n, nil
}

// AttachMAC proves knowledge of psk for the given role and id over the
// nonces seen so far.
func AttachMAC(psk []byte, role, id string, nonces ...[NonceSize]byte) []byte {
	mac := hmac.New(sha256.New, psk)
	mac.Write([]byte(role))
	mac.Write([]byte{0})
	mac.Write([]byte(id))
	mac.Write([]byte{0})
	for _, n := range nonces {
		mac.Write(n[:])
	}
	return mac.Sum(nil)
}

// VerifyAttachMAC checks an AttachMAC in constant time.
func VerifyAttachMAC(got, psk []byte, role, id string, nonces ...[NonceSize]byte) bool {
	return hmac.Equal(got, AttachMAC(psk, role, id, nonces...))
}
