package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	EncKeySize = 16
	MACKeySize = 32
	NonceSize  = 16
)

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DirectionKeys protect traffic flowing one way.
type DirectionKeys struct {
	Enc [EncKeySize]byte
	MAC [MACKeySize]byte
}

// SessionKeys holds the keys for both directions of a connection.
type SessionKeys struct {
	ClientToDevice DirectionKeys
	DeviceToClient DirectionKeys
}

// DeriveSessionKeys binds fresh session keys to the preshared key and the
// nonces exchanged during attach.
func DeriveSessionKeys(psk []byte, clientNonce, deviceNonce [NonceSize]byte) (SessionKeys, error) {
	salt := make([]byte, 0, 2*NonceSize)
	salt = append(salt, clientNonce[:]...)
	salt = append(salt, deviceNonce[:]...)

	const per = EncKeySize + MACKeySize
	material, err := DeriveKey(psk, salt, []byte("unabto-session-keys"), 2*per)
	if err != nil {
		return SessionKeys{}, err
	}

	var keys SessionKeys
	copy(keys.ClientToDevice.Enc[:], material[0:EncKeySize])
	copy(keys.ClientToDevice.MAC[:], material[EncKeySize:per])
	copy(keys.DeviceToClient.Enc[:], material[per:per+EncKeySize])
	copy(keys.DeviceToClient.MAC[:], material[per+EncKeySize:2*per])
	return keys, nil
}
