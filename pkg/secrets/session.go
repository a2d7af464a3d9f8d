package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/types"
)

// Session resolves encrypted references for one unit of work. It caches
// clear values by raw reference and owns the temporary files it creates.
// A Session must not be shared between concurrent units of work; End
// releases everything it holds.
type Session struct {
	registry *Registry
	logger   log.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	cache map[string][]byte
	files []string
	dir   string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger log.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics records engine calls and cache hits on m.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession starts a session backed by r.
func NewSession(r *Registry, opts ...SessionOption) *Session {
	s := &Session{
		registry: r,
		logger:   log.GetDefaultLogger(),
		cache:    make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("secrets")
	return s
}

// Decrypt returns the clear text of token, or token itself when it is not
// an encrypted reference.
func (s *Session) Decrypt(ctx context.Context, token string) (string, error) {
	ref, ok := Parse(token)
	if !ok {
		return token, nil
	}
	data, err := s.resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecryptAsFile writes the clear bytes of token to a new file readable only
// by the current user and returns its path. It returns "" when token is not
// an encrypted reference. The file is removed by End.
func (s *Session) DecryptAsFile(ctx context.Context, token string) (string, error) {
	ref, ok := Parse(token)
	if !ok {
		return "", nil
	}
	data, err := s.resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "keel-secrets-")
		if err != nil {
			return "", types.Fatalf(err, "create secrets directory")
		}
		s.dir = dir
	}
	f, err := os.CreateTemp(s.dir, "secret-")
	if err != nil {
		return "", types.Fatalf(err, "create secret file")
	}
	// CreateTemp already uses 0600.
	s.files = append(s.files, f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", types.Fatalf(err, "write secret file")
	}
	if err := f.Close(); err != nil {
		return "", types.Fatalf(err, "close secret file")
	}
	return f.Name(), nil
}

func (s *Session) resolve(ctx context.Context, ref *Reference) ([]byte, error) {
	s.mu.Lock()
	if data, ok := s.cache[ref.Raw]; ok {
		s.mu.Unlock()
		s.metrics.RecordCacheHit()
		return data, nil
	}
	s.mu.Unlock()

	engine, err := s.registry.Engine(ref.Engine)
	if err != nil {
		return nil, err
	}
	data, err := engine.Decrypt(ctx, ref.Params)
	s.metrics.RecordDecryption(ref.Engine)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, types.Fatalf(err, "decrypt with engine %q", ref.Engine)
	}
	s.logger.Debug("Secret decrypted", log.Str("engine", ref.Engine))

	s.mu.Lock()
	s.cache[ref.Raw] = data
	s.mu.Unlock()
	return data, nil
}

// Files returns the temporary files created so far.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// End deletes every temporary file and clears the cache. It is safe to call
// on a nil or already ended session. The session may be used again after
// End as if it were new.
func (s *Session) End() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range s.files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if s.dir != "" {
		if err := os.RemoveAll(s.dir); err != nil {
			errs = append(errs, err)
		}
	}
	for k, v := range s.cache {
		for i := range v {
			v[i] = 0
		}
		delete(s.cache, k)
	}
	s.files = nil
	s.dir = ""

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("end secret session: %w", err)
	}
	return nil
}
