package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) SessionKeys {
	t.Helper()
	psk := []byte("0123456789abcdef")
	cn, err := NewNonce()
	require.NoError(t, err)
	dn, err := NewNonce()
	require.NoError(t, err)
	keys, err := DeriveSessionKeys(psk, cn, dn)
	require.NoError(t, err)
	return keys
}

func TestDeriveSessionKeys(t *testing.T) {
	psk := []byte("0123456789abcdef")
	var cn, dn [NonceSize]byte
	cn[0], dn[0] = 1, 2

	k1, err := DeriveSessionKeys(psk, cn, dn)
	require.NoError(t, err)
	k2, err := DeriveSessionKeys(psk, cn, dn)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1.ClientToDevice, k1.DeviceToClient)

	k3, err := DeriveSessionKeys([]byte("fedcba9876543210"), cn, dn)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := DeriveSessionKeys(psk, dn, cn)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestSealerRoundTrip(t *testing.T) {
	keys := testKeys(t)
	s, err := NewSealer(keys.ClientToDevice)
	require.NoError(t, err)

	for _, size := range []int{0, 1, 15, 16, 17, 1000} {
		plain := bytes.Repeat([]byte{0x5a}, size)
		sealed, err := s.Seal(plain, []byte("ad"))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(sealed), size+s.Overhead())

		got, err := s.Open(sealed, []byte("ad"))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(plain, got), "size %d", size)
	}
}

func TestSealerRejectsTampering(t *testing.T) {
	keys := testKeys(t)
	s, err := NewSealer(keys.ClientToDevice)
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("hello unabto"), nil)
	require.NoError(t, err)

	flipped := append([]byte(nil), sealed...)
	flipped[20] ^= 0xff
	_, err = s.Open(flipped, nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = s.Open(sealed, []byte("other ad"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	other, err := NewSealer(keys.DeviceToClient)
	require.NoError(t, err)
	_, err = other.Open(sealed, nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = s.Open(sealed[:10], nil)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestAttachMAC(t *testing.T) {
	psk := []byte("0123456789abcdef")
	cn, _ := NewNonce()
	dn, _ := NewNonce()

	mac := AttachMAC(psk, RoleClient, "phone", cn)
	assert.True(t, VerifyAttachMAC(mac, psk, RoleClient, "phone", cn))
	assert.False(t, VerifyAttachMAC(mac, psk, RoleDevice, "phone", cn))
	assert.False(t, VerifyAttachMAC(mac, psk, RoleClient, "tablet", cn))
	assert.False(t, VerifyAttachMAC(mac, psk, RoleClient, "phone", dn))
	assert.False(t, VerifyAttachMAC(mac, []byte("fedcba9876543210"), RoleClient, "phone", cn))
}

func BenchmarkSealerSeal(b *testing.B) {
	var keys DirectionKeys
	s, _ := NewSealer(keys)
	plaintext := make([]byte, 1024)
	b.SetBytes(int64(len(plaintext)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Seal(plaintext, nil)
	}
}
