package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// KEKSource selects where the key-encryption key comes from.
type KEKSource string

const (
	KEKSourceFile       KEKSource = "file"
	KEKSourceEnv        KEKSource = "env"
	KEKSourceGenerated  KEKSource = "generated"
	KEKSourcePassphrase KEKSource = "passphrase"
)

// Argon2id parameters for passphrase-derived keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
)

// KEKOptions configures LoadOrGenerateKEK.
type KEKOptions struct {
	Source KEKSource
	// FilePath holds the base64 key for the file source and the salt for
	// the passphrase source.
	FilePath string
	// EnvVar names the variable holding the base64 key (env source) or the
	// passphrase (passphrase source).
	EnvVar            string
	GenerateIfMissing bool
}

// LoadOrGenerateKEK returns a 32-byte key according to opts. File and env
// values are base64 encoded. Generated keys are persisted with mode 0600
// when FilePath is set.
func LoadOrGenerateKEK(opts KEKOptions) ([]byte, error) {
	switch opts.Source {
	case KEKSourceFile:
		if opts.FilePath == "" {
			return nil, errors.New("kek file path is required")
		}
		data, err := os.ReadFile(opts.FilePath)
		if err != nil {
			if opts.GenerateIfMissing && errors.Is(err, os.ErrNotExist) {
				return generateAndPersistKEK(opts.FilePath)
			}
			return nil, fmt.Errorf("failed to read kek file: %w", err)
		}
		key, err := decodeB64Key(string(bytes.TrimSpace(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid kek file: %w", err)
		}
		return key, nil
	case KEKSourceEnv:
		if opts.EnvVar == "" {
			return nil, errors.New("kek env var is required")
		}
		val := os.Getenv(opts.EnvVar)
		if val == "" {
			if opts.GenerateIfMissing && opts.FilePath != "" {
				return generateAndPersistKEK(opts.FilePath)
			}
			return nil, fmt.Errorf("env var %s is empty", opts.EnvVar)
		}
		return decodeB64Key(val)
	case KEKSourcePassphrase:
		if opts.EnvVar == "" || opts.FilePath == "" {
			return nil, errors.New("passphrase env var and salt file are required")
		}
		passphrase := os.Getenv(opts.EnvVar)
		if passphrase == "" {
			return nil, fmt.Errorf("env var %s is empty", opts.EnvVar)
		}
		salt, err := loadOrCreateSalt(opts.FilePath)
		if err != nil {
			return nil, err
		}
		return DeriveKey([]byte(passphrase), salt), nil
	case KEKSourceGenerated:
		return RandomBytes(KeySize)
	default:
		return nil, fmt.Errorf("unknown kek source: %s", opts.Source)
	}
}

// DeriveKey stretches a passphrase into a 32-byte key with argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		salt, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid salt file: %w", err)
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}
	salt, err := RandomBytes(saltSize)
	if err != nil {
		return nil, err
	}
	if err := writePrivate(path, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

func generateAndPersistKEK(path string) ([]byte, error) {
	key, err := RandomBytes(KeySize)
	if err != nil {
		return nil, err
	}
	if err := writePrivate(path, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func writePrivate(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func decodeB64Key(v string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: got %d, want %d", len(key), KeySize)
	}
	return key, nil
}
