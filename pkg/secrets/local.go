package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rzbill/keel/pkg/crypto"
	"github.com/rzbill/keel/pkg/types"
)

// LocalEngineName is the id of the built-in AES-GCM engine.
const LocalEngineName = "local"

// LocalEngine seals secrets with a key-encryption key kept on this host.
//
// Parameters: c holds base64 ciphertext inline, f names a file holding
// sealed bytes. aad is optional associated data and must match the value
// used at encryption time.
type LocalEngine struct {
	cipher *crypto.AEADCipher
}

// NewLocalEngine creates an engine for a 32-byte key.
func NewLocalEngine(key []byte) (*LocalEngine, error) {
	c, err := crypto.NewAEADCipher(key)
	if err != nil {
		return nil, err
	}
	return &LocalEngine{cipher: c}, nil
}

// LoadLocalEngine loads the key described by opts and creates an engine.
func LoadLocalEngine(opts crypto.KEKOptions) (*LocalEngine, error) {
	key, err := crypto.LoadOrGenerateKEK(opts)
	if err != nil {
		return nil, fmt.Errorf("load key-encryption key: %w", err)
	}
	return NewLocalEngine(key)
}

func (*LocalEngine) Name() string { return LocalEngineName }

func (e *LocalEngine) Decrypt(_ context.Context, params Params) ([]byte, error) {
	aad, _ := params.Get("aad")
	if c, ok := params.Get("c"); ok {
		return e.cipher.DecryptString(c, aad)
	}
	if f, ok := params.Get("f"); ok {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		return e.cipher.Decrypt(data, []byte(aad))
	}
	return nil, types.IllegalArgumentf("local engine requires a c or f parameter")
}

// Encrypt seals value and returns an inline reference.
func (e *LocalEngine) Encrypt(value []byte, aad string) (string, error) {
	sealed, err := e.cipher.EncryptString(string(value), aad)
	if err != nil {
		return "", err
	}
	params := []Param{{Name: "c", Value: sealed}}
	if aad != "" {
		params = append(params, Param{Name: "aad", Value: aad})
	}
	return Format(LocalEngineName, params...), nil
}

// EncryptFile seals the contents of src into dst (mode 0600) and returns a
// file reference to dst.
func (e *LocalEngine) EncryptFile(src, dst, aad string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	sealed, err := e.cipher.Encrypt(data, []byte(aad))
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, sealed, 0600); err != nil {
		return "", err
	}
	params := []Param{{Name: "f", Value: abs}}
	if aad != "" {
		params = append(params, Param{Name: "aad", Value: aad})
	}
	return Format(LocalEngineName, params...), nil
}
