package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/types"
)

type countingEngine struct {
	calls int
	err   error
}

func (*countingEngine) Name() string { return "count" }

func (e *countingEngine) Decrypt(_ context.Context, params Params) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	v, _ := params.Get("v")
	return []byte("clear-" + v), nil
}

func newTestSession(engines ...Engine) *Session {
	return NewSession(NewRegistry(engines...), WithLogger(log.NewTestLogger()))
}

func TestPlaintextPassesThrough(t *testing.T) {
	engine := &countingEngine{}
	s := newTestSession(engine)
	defer s.End()

	got, err := s.Decrypt(context.Background(), "plaintext-value")
	require.NoError(t, err)
	assert.Equal(t, "plaintext-value", got)
	assert.Zero(t, engine.calls)

	path, err := s.DecryptAsFile(context.Background(), "plaintext-value")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSessionCachesPerToken(t *testing.T) {
	engine := &countingEngine{}
	ctx := context.Background()
	s := newTestSession(engine)

	for i := 0; i < 3; i++ {
		got, err := s.Decrypt(ctx, "encrypted:count!v:a")
		require.NoError(t, err)
		assert.Equal(t, "clear-a", got)
	}
	assert.Equal(t, 1, engine.calls)

	_, err := s.Decrypt(ctx, "encrypted:count!v:b")
	require.NoError(t, err)
	assert.Equal(t, 2, engine.calls)

	require.NoError(t, s.End())

	fresh := newTestSession(engine)
	defer fresh.End()
	_, err = fresh.Decrypt(ctx, "encrypted:count!v:a")
	require.NoError(t, err)
	assert.Equal(t, 3, engine.calls)
}

func TestDecryptAsFileRemovedAtEnd(t *testing.T) {
	s := newTestSession(&countingEngine{})

	path, err := s.DecryptAsFile(context.Background(), "encrypted:count!v:key")
	require.NoError(t, err)
	require.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "clear-key", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, []string{path}, s.Files())

	require.NoError(t, s.End())
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Dir(path))

	require.NoError(t, s.End())
	var nilSession *Session
	assert.NoError(t, nilSession.End())
}

func TestEngineErrors(t *testing.T) {
	ctx := context.Background()

	s := newTestSession(&countingEngine{err: errors.New("kms unavailable")})
	_, err := s.Decrypt(ctx, "encrypted:count!v:a")
	assert.True(t, errors.Is(err, types.ErrFatal))

	_, err = s.Decrypt(ctx, "encrypted:vault!path:x")
	assert.True(t, errors.Is(err, types.ErrIllegalArgument))
}

func TestEnvEngine(t *testing.T) {
	t.Setenv("KEEL_TEST_SECRET", "s3cr3t")
	s := newTestSession(NewEnvEngine())
	defer s.End()

	got, err := s.Decrypt(context.Background(), "encrypted:env!name:KEEL_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)

	_, err = s.Decrypt(context.Background(), "encrypted:env!name:KEEL_TEST_UNSET_VARIABLE")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestLocalEngineRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	engine, err := NewLocalEngine(key)
	require.NoError(t, err)

	token, err := engine.Encrypt([]byte("hunter2"), "slack")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(token))
	assert.NotContains(t, token, "hunter2")

	dir := t.TempDir()
	src := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"type":"service_account"}`), 0600))
	fileToken, err := engine.EncryptFile(src, filepath.Join(dir, "sealed", "key.json.enc"), "")
	require.NoError(t, err)

	s := newTestSession(engine)
	defer s.End()

	got, err := s.Decrypt(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	path, err := s.DecryptAsFile(context.Background(), fileToken)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))
}
