package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rzbill/keel/internal/config"
	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/manager"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/profile"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/store"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/validation"
)

// app wires the components one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  log.Logger
	metrics *metrics.Metrics
	local   *secrets.LocalEngine
	secrets *secrets.Registry
	history *store.BadgerHistory
	manager *manager.Manager
}

func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.baseDir != "" {
		cfg.BaseDir = opts.baseDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	} else if opts.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := log.ApplyConfig(&log.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		MaxFileSize: log.DefaultConfig().MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	log.SetDefaultLogger(logger)

	if err := os.MkdirAll(cfg.BaseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	local, err := secrets.LoadLocalEngine(cfg.KEKOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}

	history, err := store.OpenBadgerHistory(filepath.Join(cfg.BaseDir, store.RevisionsDir), cfg.Revisions.Limit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open revision history: %w", err)
	}

	m := metrics.New()
	registry := secrets.NewRegistry(local, secrets.NewEnvEngine())
	st := store.New(cfg.BaseDir, store.WithHistory(history), store.WithLogger(logger))
	gen := profile.NewGenerator(cfg.BaseDir, registry,
		profile.WithLogger(logger),
		profile.WithMetrics(m),
		profile.WithHistoryLimit(cfg.Generate.HistoryLimit))
	checks := validation.LocalChecks()
	if cfg.Validation.RemoteChecks || opts.remoteChecks {
		checks.Registries = validation.NewECRChecker()
	}
	validators := validation.NewDefaultRegistry(
		validation.WithLogger(logger),
		validation.WithMetrics(m),
		validation.WithChecks(checks))

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		local:   local,
		secrets: registry,
		history: history,
		manager: manager.New(st, registry,
			manager.WithLogger(logger),
			manager.WithMetrics(m),
			manager.WithValidators(validators),
			manager.WithGenerator(gen)),
	}, nil
}

func (a *app) Close() error {
	return a.history.Close()
}

// deployment returns the flag value or the document's current deployment.
func (a *app) deployment(ctx context.Context, opts *globalOptions) (string, error) {
	if opts.deployment != "" {
		return opts.deployment, nil
	}
	cfg, err := a.manager.Config(ctx)
	if err != nil {
		return "", err
	}
	if cfg.CurrentDeployment == "" {
		return "", fmt.Errorf("no deployment selected: pass --deployment or run 'keel init <name>'")
	}
	return cfg.CurrentDeployment, nil
}

// withApp opens the app for the duration of fn.
func withApp(opts *globalOptions, fn func(a *app) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("Failed to close revision history", log.Err(err))
		}
	}()
	return fn(a)
}

// resolvePath maps a command line path to a document path. Paths starting
// with "/" are taken from the document root, others are relative to the
// deployment.
func (a *app) resolvePath(ctx context.Context, opts *globalOptions, p string) (string, error) {
	if strings.HasPrefix(p, "/") {
		return types.JoinPath(types.SplitPath(p)...), nil
	}
	dep, err := a.deployment(ctx, opts)
	if err != nil {
		return "", err
	}
	return types.JoinPath(append([]string{dep}, types.SplitPath(p)...)...), nil
}
