package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill + byte(i)
	}
	return key
}

func TestAEADRoundTrip(t *testing.T) {
	aead, err := NewAEADCipher(testKey(0))
	require.NoError(t, err)

	ct, err := aead.Encrypt([]byte("hunter2"), []byte("default/notifications/slack"))
	require.NoError(t, err)
	assert.NotContains(t, string(ct), "hunter2")

	pt, err := aead.Decrypt(ct, []byte("default/notifications/slack"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(pt))
}

func TestAEADRejectsWrongAAD(t *testing.T) {
	aead, err := NewAEADCipher(testKey(42))
	require.NoError(t, err)

	ct, err := aead.Encrypt([]byte("data"), []byte("aad"))
	require.NoError(t, err)

	_, err = aead.Decrypt(ct, []byte("wrong"))
	assert.Error(t, err)
}

func TestAEADFreshNoncePerCall(t *testing.T) {
	aead, err := NewAEADCipher(testKey(1))
	require.NoError(t, err)

	a, err := aead.EncryptString("same", "")
	require.NoError(t, err)
	b, err := aead.EncryptString("same", "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	for _, token := range []string{a, b} {
		pt, err := aead.DecryptString(token, "")
		require.NoError(t, err)
		assert.Equal(t, "same", string(pt))
	}
}

func TestAEADDetectsTampering(t *testing.T) {
	aead, err := NewAEADCipher(testKey(2))
	require.NoError(t, err)

	ct, err := aead.Encrypt([]byte("test data"), nil)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x01

	_, err = aead.Decrypt(ct, nil)
	assert.Error(t, err)

	_, err = aead.Decrypt([]byte("short"), nil)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestAEADInvalidKeyLength(t *testing.T) {
	for _, key := range [][]byte{nil, {}, make([]byte, 16), make([]byte, 64)} {
		_, err := NewAEADCipher(key)
		assert.Error(t, err, "key length %d", len(key))
	}
}
