// Package store persists the configuration document under the base
// directory and keeps its backup copy and revision history.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/utils"
)

// Layout names below the base directory.
const (
	DocumentName      = "config"
	BackupDir         = ".backup"
	RequiredFilesDir  = "required-files"
	RevisionsDir      = ".revisions"
	documentFileMode  = 0600
	requiredFilesMode = 0600
)

// ConfigStore is the only writer of the on-disk document. It reads and
// writes either the primary document or the backup copy.
type ConfigStore struct {
	baseDir string
	history History
	logger  log.Logger

	mu         sync.Mutex
	usesBackup bool
}

// Option configures a ConfigStore.
type Option func(*ConfigStore)

// WithHistory records every saved document in h.
func WithHistory(h History) Option {
	return func(s *ConfigStore) { s.history = h }
}

// WithLogger sets the store logger.
func WithLogger(logger log.Logger) Option {
	return func(s *ConfigStore) { s.logger = logger }
}

// New creates a store rooted at baseDir.
func New(baseDir string, opts ...Option) *ConfigStore {
	s := &ConfigStore{
		baseDir: baseDir,
		logger:  log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("store")
	return s
}

// BaseDir returns the base directory.
func (s *ConfigStore) BaseDir() string { return s.baseDir }

// PrimaryPath is the path of the primary document.
func (s *ConfigStore) PrimaryPath() string {
	return filepath.Join(s.baseDir, DocumentName)
}

// BackupPath is the path of the backup document.
func (s *ConfigStore) BackupPath() string {
	return filepath.Join(s.baseDir, BackupDir, DocumentName)
}

// Path returns the document path currently in use.
func (s *ConfigStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pathLocked()
}

func (s *ConfigStore) pathLocked() string {
	if s.usesBackup {
		return s.BackupPath()
	}
	return s.PrimaryPath()
}

// SwitchToBackup makes Load and Save use the backup document.
func (s *ConfigStore) SwitchToBackup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usesBackup = true
}

// SwitchToPrimary makes Load and Save use the primary document.
func (s *ConfigStore) SwitchToPrimary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usesBackup = false
}

// History returns the revision history, or nil.
func (s *ConfigStore) History() History { return s.history }

// Load parses the current document. A missing document yields an empty
// one. Relative local-file paths are made absolute against the document's
// directory.
func (s *ConfigStore) Load(_ context.Context) (*types.Config, error) {
	s.mu.Lock()
	path := s.pathLocked()
	s.mu.Unlock()
	return readDocument(path)
}

func readDocument(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.Config{}, nil
	}
	if err != nil {
		return nil, types.Fatalf(err, "read %s", path)
	}
	cfg, err := decodeDocument(data)
	if err != nil {
		return nil, types.Fatalf(err, "parse %s", path)
	}
	absolutize(cfg, filepath.Dir(path))
	return cfg, nil
}

func decodeDocument(data []byte) (*types.Config, error) {
	cfg := &types.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Relink()
	return cfg, nil
}

// Save writes cfg atomically with mode 0600 and records a revision. cfg
// itself is not modified.
func (s *ConfigStore) Save(ctx context.Context, cfg *types.Config, summary string) error {
	s.mu.Lock()
	path := s.pathLocked()
	s.mu.Unlock()

	data, err := encodeDocument(cfg, filepath.Dir(path))
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, documentFileMode); err != nil {
		return types.Fatalf(err, "save document")
	}
	s.logger.Debug("Document saved", log.Path(path))

	if s.history != nil {
		rev := &Revision{Summary: summary, Document: data}
		if err := s.history.Record(ctx, rev); err != nil {
			s.logger.Warn("Failed to record revision", log.Err(err))
		}
	}
	return nil
}

func encodeDocument(cfg *types.Config, dir string) ([]byte, error) {
	out, err := types.Clone(cfg)
	if err != nil {
		return nil, err
	}
	relativize(out, dir)
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, types.Fatalf(err, "encode document")
	}
	return data, nil
}

// Backup writes the backup document and copies every local file it
// references into the required-files directory. It returns the backup
// directory.
func (s *ConfigStore) Backup(_ context.Context) (string, error) {
	cfg, err := readDocument(s.PrimaryPath())
	if err != nil {
		return "", err
	}
	backupDir := filepath.Join(s.baseDir, BackupDir)
	requiredDir := filepath.Join(backupDir, RequiredFilesDir)
	if err := os.RemoveAll(requiredDir); err != nil {
		return "", types.Fatalf(err, "clear %s", requiredDir)
	}
	if err := os.MkdirAll(requiredDir, 0700); err != nil {
		return "", types.Fatalf(err, "create %s", requiredDir)
	}

	for _, f := range localFileFields(cfg) {
		dst := filepath.Join(requiredDir, requiredFileName(*f))
		if err := utils.CopyFileAtomic(*f, dst, requiredFilesMode); err != nil {
			return "", types.Fatalf(err, "copy required file %s", *f)
		}
		*f = dst
	}

	data, err := encodeDocument(cfg, backupDir)
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileAtomic(filepath.Join(backupDir, DocumentName), data, documentFileMode); err != nil {
		return "", types.Fatalf(err, "save backup document")
	}
	s.logger.Info("Backup written", log.Path(backupDir))
	return backupDir, nil
}

// RestoreBackup replaces the primary document with the backup copy. Local
// files resolve to the restored required-files directory.
func (s *ConfigStore) RestoreBackup(ctx context.Context) (*types.Config, error) {
	backupPath := s.BackupPath()
	if _, err := os.Stat(backupPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NotFoundf("no backup document at %s", backupPath)
		}
		return nil, types.Fatalf(err, "stat %s", backupPath)
	}
	cfg, err := readDocument(backupPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	previous := s.usesBackup
	s.usesBackup = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.usesBackup = previous
		s.mu.Unlock()
	}()

	if err := s.Save(ctx, cfg, "restore backup"); err != nil {
		return nil, err
	}
	s.logger.Info("Backup restored", log.Path(backupPath))
	return cfg, nil
}

// Revision loads the document recorded under id.
func (s *ConfigStore) Revision(ctx context.Context, id string) (*types.Config, error) {
	if s.history == nil {
		return nil, types.NotFoundf("no revision history configured")
	}
	rev, err := s.history.Revision(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeDocument(rev.Document)
	if err != nil {
		return nil, fmt.Errorf("decode revision %s: %w", id, err)
	}
	absolutize(cfg, s.baseDir)
	return cfg, nil
}
