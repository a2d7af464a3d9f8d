package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the length of every key accepted by AEADCipher.
const KeySize = 32

// ErrCiphertextTooShort is returned when the input cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AEADCipher seals secret values with AES-256-GCM. Output is
// nonce||ciphertext.
type AEADCipher struct {
	key  []byte
	aead cipher.AEAD
}

// NewAEADCipher creates a cipher for a 32-byte key. The key is copied.
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: got %d, want %d", len(key), KeySize)
	}
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	block, err := aes.NewCipher(keyCopy)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEADCipher{key: keyCopy, aead: gcm}, nil
}

// Encrypt seals plaintext with optional associated data.
func (a *AEADCipher) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return a.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt opens data produced by Encrypt.
func (a *AEADCipher) Decrypt(data, aad []byte) ([]byte, error) {
	n := a.aead.NonceSize()
	if len(data) < n {
		return nil, ErrCiphertextTooShort
	}
	return a.aead.Open(nil, data[:n], data[n:], aad)
}

// EncryptString seals plaintext and returns it base64 encoded, the form
// stored in configuration tokens.
func (a *AEADCipher) EncryptString(plaintext, aad string) (string, error) {
	sealed, err := a.Encrypt([]byte(plaintext), []byte(aad))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (a *AEADCipher) DecryptString(encoded, aad string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return a.Decrypt(sealed, []byte(aad))
}

// Zeroize clears the key copy held by the cipher.
func (a *AEADCipher) Zeroize() {
	if a == nil {
		return
	}
	for i := range a.key {
		a.key[i] = 0
	}
}
