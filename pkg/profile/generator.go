package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/utils"
)

// Layout below <base>/<deployment>.
const (
	StagingDir         = "staging"
	ProfilesDir        = "profiles"
	ServiceSettingsDir = "service-settings"
	HistoryDir         = "history"
	VaultTokenFile     = "vault-token"
	InstallScript      = "install.sh"
	UninstallScript    = "uninstall.sh"
	ConnectScript      = "connect.sh"

	DefaultHistoryLimit = 10

	settingsFile = "settings.yml"
	manifestFile = "manifest.yml"
)

// Generator renders deployments into staged profiles.
type Generator struct {
	baseDir      string
	services     []Service
	registry     *secrets.Registry
	logger       log.Logger
	metrics      *metrics.Metrics
	historyLimit int
	now          func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithServices replaces the built-in services.
func WithServices(services ...Service) GeneratorOption {
	return func(g *Generator) { g.services = services }
}

// WithLogger sets the generator logger.
func WithLogger(logger log.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// WithMetrics records generation metrics in m.
func WithMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithHistoryLimit keeps the n most recent runs. Zero or less disables
// the run history.
func WithHistoryLimit(n int) GeneratorOption {
	return func(g *Generator) { g.historyLimit = n }
}

// WithClock overrides the time source used for run ids.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator writing below baseDir and decrypting
// secrets through registry.
func NewGenerator(baseDir string, registry *secrets.Registry, opts ...GeneratorOption) *Generator {
	g := &Generator{
		baseDir:      baseDir,
		services:     DefaultServices(),
		registry:     registry,
		logger:       log.GetDefaultLogger(),
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithComponent("generator")
	return g
}

// DeploymentDir returns <base>/<deployment>.
func (g *Generator) DeploymentDir(deployment string) string {
	return filepath.Join(g.baseDir, deployment)
}

// StagingPath returns the staging directory of a deployment.
func (g *Generator) StagingPath(deployment string) string {
	return filepath.Join(g.DeploymentDir(deployment), StagingDir)
}

// Generate stages the profiles of every enabled service of d. The staging
// directory is rebuilt from scratch on every run. On failure no
// configuration is returned.
func (g *Generator) Generate(ctx context.Context, d *types.DeploymentConfiguration) (_ *ResolvedConfiguration, err error) {
	start := g.now()
	defer func() { g.metrics.ObserveGeneration(start, err) }()

	if d == nil || d.Name == "" {
		return nil, types.IllegalArgumentf("generate requires a named deployment")
	}
	rc, err := g.generate(ctx, d)
	if err != nil {
		g.logger.Error("Generation failed", log.Deployment(d.Name), log.Err(err))
		return nil, types.Fatalf(err, "generate %s", d.Name)
	}
	g.logger.Info("Generated deployment",
		log.Deployment(d.Name),
		log.Str("run", rc.RunID),
		log.Int("files", len(rc.StagedFiles())),
		log.Duration("took", time.Since(start)))
	return rc, nil
}

func (g *Generator) generate(ctx context.Context, d *types.DeploymentConfiguration) (*ResolvedConfiguration, error) {
	// Secrets are resolved in place, so work on a private copy.
	cfg, err := types.Clone(&types.Config{Deployments: []*types.DeploymentConfiguration{d}})
	if err != nil {
		return nil, err
	}
	dep := cfg.Deployments[0]
	depDir := g.DeploymentDir(dep.Name)

	settings, err := g.runtimeSettings(dep, depDir)
	if err != nil {
		return nil, err
	}

	staging := filepath.Join(depDir, StagingDir)
	if err := os.RemoveAll(staging); err != nil {
		return nil, types.Fatalf(err, "clear staging directory")
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, types.Fatalf(err, "create staging directory")
	}

	session := secrets.NewSession(g.registry, secrets.WithLogger(g.logger), secrets.WithMetrics(g.metrics))
	defer func() {
		if err := session.End(); err != nil {
			g.logger.Warn("Failed to clean up decrypted files", log.Err(err))
		}
	}()

	env := &Env{
		Context:    ctx,
		Deployment: dep,
		Settings:   settings,
		StagingDir: staging,
		session:    session,
	}
	rc := &ResolvedConfiguration{
		Deployment:  dep.Name,
		StagingPath: staging,
		Settings:    settings,
		Profiles:    make(map[ServiceType][]*Profile),
	}

	for _, svc := range g.services {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, _ := settings.Get(svc.Type())
		if st == nil || !st.Enabled {
			g.logger.Debug("Skipping disabled service", log.Str("service", string(svc.Type())))
			continue
		}
		profiles, err := svc.Profiles(env)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			if err := writeProfile(staging, p); err != nil {
				return nil, err
			}
			g.metrics.RecordProfileStaged(string(svc.Type()))
		}
		if profiles == nil {
			profiles = []*Profile{}
		}
		rc.Profiles[svc.Type()] = profiles
	}

	if rc.Overrides, err = copyOverrides(filepath.Join(depDir, ProfilesDir), staging); err != nil {
		return nil, err
	}
	if err := g.writeSingleFiles(env, depDir, rc); err != nil {
		return nil, err
	}

	rc.RunID = g.runID()
	if err := g.archive(depDir, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// runtimeSettings computes the settings of every service and applies the
// user's service-settings files on top.
func (g *Generator) runtimeSettings(d *types.DeploymentConfiguration, depDir string) (*RuntimeSettings, error) {
	rs := NewRuntimeSettings()
	for _, svc := range g.services {
		s := svc.Settings(d)
		if err := applySettingsOverride(filepath.Join(depDir, ServiceSettingsDir, string(svc.Type())+".yml"), s); err != nil {
			return nil, err
		}
		if err := rs.Set(svc.Type(), s); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

func applySettingsOverride(path string, s *ServiceSettings) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return types.Fatalf(err, "read %s", path)
	}
	var override ServiceSettings
	if err := yaml.Unmarshal(data, &override); err != nil {
		return types.IllegalArgumentf("parse %s: %v", path, err)
	}
	if err := mergo.Merge(s, override, mergo.WithOverride); err != nil {
		return types.Fatalf(err, "merge %s", path)
	}
	// mergo skips zero values, so an explicit "enabled: false" is applied by hand.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		if _, ok := raw["enabled"]; ok {
			s.Enabled = override.Enabled
		}
	}
	return nil
}

func writeProfile(staging string, p *Profile) error {
	perm := os.FileMode(0600)
	if p.Executable {
		perm = 0755
	}
	path := filepath.Join(staging, p.OutputFile)
	if err := utils.WriteFileAtomic(path, []byte(p.Contents), perm); err != nil {
		return types.Fatalf(err, "write profile %s", p.OutputFile)
	}
	return nil
}

// copyOverrides copies user supplied profiles over the staged files.
func copyOverrides(src, staging string) ([]string, error) {
	files, err := utils.ListFiles(src)
	if err != nil {
		return nil, types.Fatalf(err, "list %s", src)
	}
	for _, name := range files {
		from := filepath.Join(src, name)
		info, err := os.Stat(from)
		if err != nil {
			return nil, types.Fatalf(err, "stat %s", from)
		}
		if err := utils.CopyFileAtomic(from, filepath.Join(staging, name), info.Mode().Perm()); err != nil {
			return nil, types.Fatalf(err, "copy profile override %s", name)
		}
	}
	return files, nil
}

func (g *Generator) writeSingleFiles(env *Env, depDir string, rc *ResolvedConfiguration) error {
	b := env.Bindings().Merge(Bindings{
		"staging":            rc.StagingPath,
		"install.commands":   installCommands(env.Deployment, rc),
		"uninstall.commands": uninstallCommands(env.Deployment, rc),
		"connect.commands":   connectCommands(env.Deployment, rc),
	})
	for _, name := range []string{InstallScript, UninstallScript, ConnectScript} {
		tmpl, err := Template(name)
		if err != nil {
			return err
		}
		if err := utils.WriteFileAtomic(filepath.Join(depDir, name), []byte(Render(tmpl, b)), 0755); err != nil {
			return types.Fatalf(err, "write %s", name)
		}
	}

	vault := env.Deployment.DeploymentEnvironment.Vault
	tokenPath := filepath.Join(depDir, VaultTokenFile)
	if !vault.Enabled {
		if err := os.Remove(tokenPath); err != nil && !os.IsNotExist(err) {
			return types.Fatalf(err, "remove stale %s", VaultTokenFile)
		}
		return nil
	}
	token, err := env.Secret(vault.Token)
	if err != nil {
		return fmt.Errorf("vault token: %w", err)
	}
	if err := utils.WriteFileAtomic(tokenPath, []byte(token), 0600); err != nil {
		return types.Fatalf(err, "write %s", VaultTokenFile)
	}
	return nil
}

func installCommands(d *types.DeploymentConfiguration, rc *ResolvedConfiguration) string {
	var lines []string
	if d.DeploymentEnvironment.EffectiveType() == types.DeploymentDistributed {
		lines = append(lines, "kubectl create namespace spinnaker --dry-run=client -o yaml | kubectl apply -f -")
		for _, t := range enabledTypes(rc) {
			var args []string
			for _, p := range rc.Profiles[t] {
				args = append(args, fmt.Sprintf("--from-file=\"$STAGING/%s\"", p.OutputFile))
			}
			if len(args) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf(
				"kubectl -n spinnaker create secret generic spin-%s-files %s --dry-run=client -o yaml | kubectl apply -f -",
				t, strings.Join(args, " ")))
		}
		return strings.Join(lines, "\n")
	}
	for _, f := range rc.StagedFiles() {
		lines = append(lines, fmt.Sprintf("install -D -m 0600 \"$STAGING/%s\" /opt/spinnaker/config/%s", f, f))
	}
	for _, t := range enabledTypes(rc) {
		lines = append(lines, fmt.Sprintf("systemctl enable --now %s", t))
	}
	return strings.Join(lines, "\n")
}

func uninstallCommands(d *types.DeploymentConfiguration, rc *ResolvedConfiguration) string {
	if d.DeploymentEnvironment.EffectiveType() == types.DeploymentDistributed {
		return "kubectl delete namespace spinnaker --ignore-not-found"
	}
	var lines []string
	for _, t := range enabledTypes(rc) {
		lines = append(lines, fmt.Sprintf("systemctl disable --now %s || true", t))
	}
	lines = append(lines, "rm -rf /opt/spinnaker/config")
	return strings.Join(lines, "\n")
}

func connectCommands(d *types.DeploymentConfiguration, rc *ResolvedConfiguration) string {
	var lines []string
	for _, t := range []ServiceType{Deck, Gate} {
		s, ok := rc.Settings.Get(t)
		if !ok || !s.Enabled {
			continue
		}
		if d.DeploymentEnvironment.EffectiveType() == types.DeploymentDistributed {
			lines = append(lines, fmt.Sprintf("kubectl -n spinnaker port-forward svc/spin-%s %d &", t, s.Port))
			continue
		}
		lines = append(lines, fmt.Sprintf("echo \"%s: %s\"", t, s.BaseURL()))
	}
	if d.DeploymentEnvironment.EffectiveType() == types.DeploymentDistributed {
		lines = append(lines, "wait")
	}
	return strings.Join(lines, "\n")
}

func enabledTypes(rc *ResolvedConfiguration) []ServiceType {
	var out []ServiceType
	for _, t := range rc.Settings.Types() {
		if _, ok := rc.Profiles[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (g *Generator) runID() string {
	return g.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// manifest describes an archived run.
type manifest struct {
	RunID      string            `yaml:"runId"`
	Deployment string            `yaml:"deployment"`
	Files      map[string]string `yaml:"files"`
	Overrides  []string          `yaml:"overrides,omitempty"`
}

// archive records the run under history/<runID> and prunes old runs.
func (g *Generator) archive(depDir string, rc *ResolvedConfiguration) error {
	if g.historyLimit <= 0 {
		return nil
	}
	dir := filepath.Join(depDir, HistoryDir, rc.RunID)
	settings, err := yaml.Marshal(rc.Settings.All())
	if err != nil {
		return types.Fatalf(err, "marshal runtime settings")
	}
	if err := utils.WriteFileAtomic(filepath.Join(dir, settingsFile), settings, 0600); err != nil {
		return types.Fatalf(err, "archive runtime settings")
	}

	m := manifest{RunID: rc.RunID, Deployment: rc.Deployment, Files: map[string]string{}, Overrides: rc.Overrides}
	staged, err := utils.ListFiles(rc.StagingPath)
	if err != nil {
		return types.Fatalf(err, "list staged files")
	}
	for _, name := range staged {
		data, err := os.ReadFile(filepath.Join(rc.StagingPath, name))
		if err != nil {
			return types.Fatalf(err, "read staged %s", name)
		}
		sum := sha256.Sum256(data)
		m.Files[name] = hex.EncodeToString(sum[:])
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return types.Fatalf(err, "marshal manifest")
	}
	if err := utils.WriteFileAtomic(filepath.Join(dir, manifestFile), data, 0600); err != nil {
		return types.Fatalf(err, "archive manifest")
	}
	return pruneHistory(filepath.Join(depDir, HistoryDir), g.historyLimit)
}

// Runs lists the archived run ids of a deployment, newest first.
func (g *Generator) Runs(deployment string) ([]string, error) {
	runs, err := listRuns(filepath.Join(g.DeploymentDir(deployment), HistoryDir))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

// RunSettings returns the runtime settings archived by a run.
func (g *Generator) RunSettings(deployment, runID string) (map[ServiceType]ServiceSettings, error) {
	path := filepath.Join(g.DeploymentDir(deployment), HistoryDir, runID, settingsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, types.NotFoundf("no run %q for deployment %q", runID, deployment)
	}
	if err != nil {
		return nil, types.Fatalf(err, "read %s", path)
	}
	out := map[ServiceType]ServiceSettings{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, types.Fatalf(err, "parse %s", path)
	}
	return out, nil
}

func listRuns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Fatalf(err, "list %s", dir)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

func pruneHistory(dir string, limit int) error {
	runs, err := listRuns(dir)
	if err != nil {
		return err
	}
	for len(runs) > limit {
		if err := os.RemoveAll(filepath.Join(dir, runs[0])); err != nil {
			return types.Fatalf(err, "prune run %s", runs[0])
		}
		runs = runs[1:]
	}
	return nil
}
