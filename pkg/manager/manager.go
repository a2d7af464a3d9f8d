// Package manager serializes reads and writes of the configuration
// document. Every mutation runs on a private copy, is validated against
// the deployment it touches and only then replaces the live document.
package manager

import (
	"context"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/profile"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/store"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/validation"
)

// Options control a single operation.
type Options struct {
	// NoValidate persists mutations even when validation reports blocking
	// problems. Problems are still returned.
	NoValidate bool
}

// Manager owns the live document of one base directory.
type Manager struct {
	mu sync.Mutex

	store      *store.ConfigStore
	secrets    *secrets.Registry
	validators *validation.Registry
	generator  *profile.Generator
	logger     log.Logger
	metrics    *metrics.Metrics

	doc *types.Config
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records operation metrics in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithValidators replaces the default validator registry.
func WithValidators(r *validation.Registry) Option {
	return func(m *Manager) { m.validators = r }
}

// WithGenerator replaces the default profile generator.
func WithGenerator(g *profile.Generator) Option {
	return func(m *Manager) { m.generator = g }
}

// New creates a manager over st. Secret references are resolved through
// registry.
func New(st *store.ConfigStore, registry *secrets.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		secrets: registry,
		logger:  log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.validators == nil {
		m.validators = validation.NewDefaultRegistry(validation.WithLogger(m.logger), validation.WithMetrics(m.metrics))
	}
	if m.generator == nil {
		m.generator = profile.NewGenerator(st.BaseDir(), registry, profile.WithLogger(m.logger), profile.WithMetrics(m.metrics))
	}
	m.logger = m.logger.WithComponent("manager")
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() *store.ConfigStore { return m.store }

// Generator returns the profile generator.
func (m *Manager) Generator() *profile.Generator { return m.generator }

// Reload drops the cached document so the next operation reads it from
// disk.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = nil
}

func (m *Manager) document(ctx context.Context) (*types.Config, error) {
	if m.doc != nil {
		return m.doc, nil
	}
	cfg, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m.doc = cfg
	return cfg, nil
}

// Config returns a copy of the whole document.
func (m *Manager) Config(ctx context.Context) (*types.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.document(ctx)
	if err != nil {
		return nil, err
	}
	return types.Clone(doc)
}

// Get returns a copy of the node at path. The copy stays linked to a copy
// of its ancestors.
func (m *Manager) Get(ctx context.Context, path string) (types.Node, error) {
	cfg, err := m.Config(ctx)
	if err != nil {
		return nil, err
	}
	return types.Get(cfg, path)
}

// Set replaces the node at path with a copy of n.
func (m *Manager) Set(ctx context.Context, path string, n types.Node, opts Options) (*validation.ProblemSet, error) {
	return m.mutate(ctx, "set", path, opts, func(cfg *types.Config) error {
		c, err := types.CloneNode(cfg, path, false, n)
		if err != nil {
			return err
		}
		return types.Set(cfg, path, c)
	})
}

// SetYAML decodes value as the node type expected at path and sets it.
func (m *Manager) SetYAML(ctx context.Context, path string, value []byte, opts Options) (*validation.ProblemSet, error) {
	return m.mutate(ctx, "set", path, opts, func(cfg *types.Config) error {
		n, err := decode(cfg, path, false, value)
		if err != nil {
			return err
		}
		return types.Set(cfg, path, n)
	})
}

// Add inserts a copy of n into the collection at collectionPath. An empty
// path adds a deployment to the document root.
func (m *Manager) Add(ctx context.Context, collectionPath string, n types.Node, opts Options) (*validation.ProblemSet, error) {
	if n == nil {
		return nil, types.IllegalArgumentf("cannot add a nil node to %q", collectionPath)
	}
	target := types.JoinPath(collectionPath, n.NodeName())
	return m.mutate(ctx, "add", target, opts, func(cfg *types.Config) error {
		c, err := types.CloneNode(cfg, collectionPath, true, n)
		if err != nil {
			return err
		}
		return types.Add(cfg, collectionPath, c)
	})
}

// AddYAML decodes value as an item of the collection at collectionPath and
// adds it.
func (m *Manager) AddYAML(ctx context.Context, collectionPath string, value []byte, opts Options) (*validation.ProblemSet, error) {
	var target string
	return m.mutate(ctx, "add", collectionPath, opts, func(cfg *types.Config) error {
		n, err := decode(cfg, collectionPath, true, value)
		if err != nil {
			return err
		}
		target = types.JoinPath(collectionPath, n.NodeName())
		return types.Add(cfg, collectionPath, n)
	}, func() string { return target })
}

// UseDeployment records name as the document's current deployment.
func (m *Manager) UseDeployment(ctx context.Context, name string) error {
	_, err := m.mutate(ctx, "use", "", Options{}, func(cfg *types.Config) error {
		if _, err := cfg.Deployment(name); err != nil {
			return err
		}
		cfg.CurrentDeployment = name
		return nil
	})
	return err
}

// Remove deletes the named item from the collection at collectionPath.
func (m *Manager) Remove(ctx context.Context, collectionPath, name string, opts Options) (*validation.ProblemSet, error) {
	return m.mutate(ctx, "remove", collectionPath, opts, func(cfg *types.Config) error {
		_, err := types.Remove(cfg, collectionPath, name)
		return err
	})
}

// mutate applies fn to a copy of the document, validates the deployment
// named by the first path segment and persists the copy. The optional
// resolve func supplies the path once fn has run.
func (m *Manager) mutate(ctx context.Context, op, path string, opts Options, fn func(*types.Config) error, resolve ...func() string) (ps *validation.ProblemSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.metrics.RecordMutation(op, err) }()

	doc, err := m.document(ctx)
	if err != nil {
		return nil, err
	}
	work, err := types.Clone(doc)
	if err != nil {
		return nil, err
	}
	if err := fn(work); err != nil {
		return nil, err
	}
	for _, r := range resolve {
		path = r()
	}

	ps = validation.NewProblemSet()
	if dep := owningDeployment(work, path); dep != nil {
		ps = m.validate(ctx, dep)
		if verr := ps.Err(); verr != nil {
			if !opts.NoValidate {
				m.logger.Warn("Rejected mutation",
					log.Str("op", op),
					log.Path(path),
					log.Int("problems", ps.Len()))
				return ps, verr
			}
			m.logger.Warn("Persisting mutation despite blocking problems", log.Str("op", op), log.Path(path))
		}
	}

	if err := m.store.Save(ctx, work, strings.TrimSpace(op+" "+path)); err != nil {
		return ps, err
	}
	m.doc = work
	m.logger.Info("Applied mutation", log.Str("op", op), log.Path(path))
	return ps, nil
}

func (m *Manager) validate(ctx context.Context, d *types.DeploymentConfiguration) *validation.ProblemSet {
	session := secrets.NewSession(m.secrets, secrets.WithLogger(m.logger), secrets.WithMetrics(m.metrics))
	defer func() {
		if err := session.End(); err != nil {
			m.logger.Warn("Failed to clean up decrypted files", log.Err(err))
		}
	}()
	return m.validators.Validate(ctx, d, session)
}

// Validate checks the named deployment without changing anything.
func (m *Manager) Validate(ctx context.Context, deployment string) (*validation.ProblemSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.document(ctx)
	if err != nil {
		return nil, err
	}
	d, err := doc.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	return m.validate(ctx, d), nil
}

// Generate validates the named deployment and stages its profiles. The
// lock is held for the whole run so the tree cannot change underneath.
func (m *Manager) Generate(ctx context.Context, deployment string, opts Options) (*profile.ResolvedConfiguration, *validation.ProblemSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.document(ctx)
	if err != nil {
		return nil, nil, err
	}
	d, err := doc.Deployment(deployment)
	if err != nil {
		return nil, nil, err
	}
	ps := m.validate(ctx, d)
	if verr := ps.Err(); verr != nil && !opts.NoValidate {
		return nil, ps, verr
	}
	rc, err := m.generator.Generate(ctx, d)
	if err != nil {
		return nil, ps, err
	}
	return rc, ps, nil
}

// Backup writes the backup copy of the persisted document.
func (m *Manager) Backup(ctx context.Context) (dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.metrics.RecordBackup("document", err) }()
	return m.store.Backup(ctx)
}

// RestoreBackup replaces the document with its backup copy.
func (m *Manager) RestoreBackup(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.metrics.RecordBackup("restore", err) }()
	cfg, err := m.store.RestoreBackup(ctx)
	if err != nil {
		return err
	}
	m.doc = cfg
	return nil
}

// Revert replaces the document with a recorded revision.
func (m *Manager) Revert(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, err := m.store.Revision(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, cfg, "revert to "+id); err != nil {
		return err
	}
	m.doc = cfg
	return nil
}

func owningDeployment(cfg *types.Config, path string) *types.DeploymentConfiguration {
	segments := types.SplitPath(path)
	if len(segments) == 0 {
		return nil
	}
	d, err := cfg.Deployment(segments[0])
	if err != nil {
		return nil
	}
	return d
}

func decode(cfg *types.Config, path string, asItem bool, value []byte) (types.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(value, &node); err != nil {
		return nil, types.IllegalArgumentf("parse value: %v", err)
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return types.Decode(cfg, path, asItem, node.Content[0])
	}
	return types.Decode(cfg, path, asItem, &node)
}
