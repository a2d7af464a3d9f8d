package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/utils"
)

type fakeService struct {
	typ        ServiceType
	files      []string
	executable bool
	disabled   bool
	render     func(env *Env, p *Profile) error
}

func (s *fakeService) Type() ServiceType { return s.typ }

func (s *fakeService) Settings(*types.DeploymentConfiguration) *ServiceSettings {
	return &ServiceSettings{Host: "localhost", Port: 1000, Enabled: !s.disabled}
}

func (s *fakeService) Profiles(env *Env) ([]*Profile, error) {
	var out []*Profile
	for _, f := range s.files {
		p := &Profile{
			Name:       f,
			OutputFile: f,
			Executable: s.executable,
			Contents:   Render("service={%svc%} deployment={%deployment.name%}\n", env.Bindings().Merge(Bindings{"svc": s.typ})),
		}
		if s.render != nil {
			if err := s.render(env, p); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func newTestGenerator(t *testing.T, opts ...GeneratorOption) (*Generator, string) {
	t.Helper()
	base := t.TempDir()
	registry := secrets.NewRegistry(secrets.NewEnvEngine())
	opts = append([]GeneratorOption{WithLogger(log.NewTestLogger())}, opts...)
	return NewGenerator(base, registry, opts...), base
}

func readStaged(t *testing.T, dir string) map[string]string {
	t.Helper()
	files, err := utils.ListFiles(dir)
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		require.NoError(t, err)
		out[f] = string(data)
	}
	return out
}

func TestGenerateStagesEveryProfile(t *testing.T) {
	g, base := newTestGenerator(t, WithServices(
		&fakeService{typ: Redis},
		&fakeService{typ: Orca, files: []string{"a.yml", "b.yml", "c.yml"}},
	))
	d := types.NewDeploymentConfiguration("default")

	rc, err := g.Generate(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "default", StagingDir), rc.StagingPath)
	assert.Contains(t, rc.Profiles, Redis)
	assert.Empty(t, rc.Profiles[Redis])
	assert.Len(t, rc.Profiles[Orca], 3)
	assert.Equal(t, []string{"a.yml", "b.yml", "c.yml"}, rc.StagedFiles())

	staged := readStaged(t, rc.StagingPath)
	assert.Len(t, staged, 3)
	assert.Equal(t, "service=orca deployment=default\n", staged["a.yml"])

	info, err := os.Stat(filepath.Join(rc.StagingPath, "a.yml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestGenerateExecutableProfiles(t *testing.T) {
	g, _ := newTestGenerator(t, WithServices(&fakeService{typ: Orca, files: []string{"run.sh"}, executable: true}))

	rc, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(rc.StagingPath, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestGenerateSkipsDisabledServices(t *testing.T) {
	g, _ := newTestGenerator(t, WithServices(
		&fakeService{typ: Orca, files: []string{"orca.yml"}},
		&fakeService{typ: Kayenta, files: []string{"kayenta.yml"}, disabled: true},
	))

	rc, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
	require.NoError(t, err)
	assert.NotContains(t, rc.Profiles, Kayenta)
	assert.Equal(t, []string{"orca.yml"}, rc.StagedFiles())

	kayenta, ok := rc.Settings.Get(Kayenta)
	require.True(t, ok)
	assert.False(t, kayenta.Enabled)
}

func TestGenerateUserOverrideWins(t *testing.T) {
	g, base := newTestGenerator(t, WithServices(&fakeService{typ: Orca, files: []string{"foo.yml", "bar.yml"}}))
	overrides := filepath.Join(base, "default", ProfilesDir)
	require.NoError(t, os.MkdirAll(overrides, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(overrides, "foo.yml"), []byte("mine: true\n"), 0644))

	d := types.NewDeploymentConfiguration("default")
	for i := 0; i < 2; i++ {
		rc, err := g.Generate(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, []string{"foo.yml"}, rc.Overrides)

		staged := readStaged(t, rc.StagingPath)
		assert.Equal(t, "mine: true\n", staged["foo.yml"])
		assert.Equal(t, "service=orca deployment=default\n", staged["bar.yml"])
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	g, base := newTestGenerator(t)
	d := types.NewDeploymentConfiguration("default")

	staging := filepath.Join(base, "default", StagingDir)
	require.NoError(t, os.MkdirAll(staging, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "stale.yml"), []byte("old"), 0644))

	first, err := g.Generate(context.Background(), d)
	require.NoError(t, err)
	firstFiles := readStaged(t, first.StagingPath)
	assert.NotContains(t, firstFiles, "stale.yml")

	second, err := g.Generate(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, firstFiles, readStaged(t, second.StagingPath))
	assert.Equal(t, first.StagedFiles(), second.StagedFiles())
}

func TestGenerateDefaultServices(t *testing.T) {
	g, base := newTestGenerator(t)
	d := types.NewDeploymentConfiguration("default")

	rc, err := g.Generate(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"clouddriver.yml", "echo.yml", "front50.yml", "gate.yml", "orca.yml", "settings.js"},
		rc.StagedFiles())
	assert.Empty(t, rc.Profiles[Redis])

	staged := readStaged(t, rc.StagingPath)
	assert.Contains(t, staged["gate.yml"], "port: 8084")
	assert.Contains(t, staged["settings.js"], "gateUrl: 'http://localhost:8084'")
	assert.Contains(t, staged["orca.yml"], "baseUrl: http://localhost:7002")
	for name, contents := range staged {
		assert.NotContains(t, contents, "{%", name)
	}

	depDir := filepath.Join(base, "default")
	for _, script := range []string{InstallScript, UninstallScript, ConnectScript} {
		info, err := os.Stat(filepath.Join(depDir, script))
		require.NoError(t, err, script)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), script)
	}
	install, err := os.ReadFile(filepath.Join(depDir, InstallScript))
	require.NoError(t, err)
	assert.Contains(t, string(install), "systemctl enable --now gate")
	assert.NoFileExists(t, filepath.Join(depDir, VaultTokenFile))
}

func TestGenerateDistributedScripts(t *testing.T) {
	g, base := newTestGenerator(t)
	d := types.NewDeploymentConfiguration("default")
	d.DeploymentEnvironment.Type = types.DeploymentDistributed

	_, err := g.Generate(context.Background(), d)
	require.NoError(t, err)

	install, err := os.ReadFile(filepath.Join(base, "default", InstallScript))
	require.NoError(t, err)
	assert.Contains(t, string(install), "create secret generic spin-gate-files")

	connect, err := os.ReadFile(filepath.Join(base, "default", ConnectScript))
	require.NoError(t, err)
	assert.Contains(t, string(connect), "port-forward svc/spin-deck 9000")
}

func TestGenerateServiceSettingsOverride(t *testing.T) {
	g, base := newTestGenerator(t, WithServices(
		&fakeService{typ: Orca, files: []string{"orca.yml"}},
		&fakeService{typ: Echo, files: []string{"echo.yml"}},
	))
	dir := filepath.Join(base, "default", ServiceSettingsDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orca.yml"), []byte("port: 9999\nhost: orca.internal\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yml"), []byte("enabled: false\n"), 0644))

	rc, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
	require.NoError(t, err)

	orca, ok := rc.Settings.Get(Orca)
	require.True(t, ok)
	assert.Equal(t, 9999, orca.Port)
	assert.Equal(t, "orca.internal", orca.Host)
	assert.True(t, orca.Enabled)

	echo, ok := rc.Settings.Get(Echo)
	require.True(t, ok)
	assert.False(t, echo.Enabled)
	assert.NotContains(t, rc.Profiles, Echo)
}

func TestGenerateResolvesSecrets(t *testing.T) {
	t.Setenv("KEEL_TEST_SLACK", "xoxb-clear")
	t.Setenv("KEEL_TEST_KUBECONFIG", "apiVersion: v1\n")

	g, _ := newTestGenerator(t)
	d := types.NewDeploymentConfiguration("default")
	d.Notifications.Slack.Enabled = true
	d.Notifications.Slack.Token = "encrypted:env!name:KEEL_TEST_SLACK"
	d.Providers.Kubernetes.Enabled = true
	kubeconfig := "encrypted:env!name:KEEL_TEST_KUBECONFIG"
	require.NoError(t, d.Providers.Kubernetes.AccountList.Add(&types.KubernetesAccount{Name: "k8s", KubeconfigFile: kubeconfig}))

	rc, err := g.Generate(context.Background(), d)
	require.NoError(t, err)

	staged := readStaged(t, rc.StagingPath)
	assert.Contains(t, staged["echo.yml"], "token: xoxb-clear")
	assert.Contains(t, staged["clouddriver.yml"], filepath.Join(rc.StagingPath, SecretsDir))

	secretFiles, err := utils.ListFiles(filepath.Join(rc.StagingPath, SecretsDir))
	require.NoError(t, err)
	require.Len(t, secretFiles, 1)
	path := filepath.Join(rc.StagingPath, SecretsDir, secretFiles[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1\n", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// The caller's tree keeps its references.
	assert.Equal(t, "encrypted:env!name:KEEL_TEST_SLACK", d.Notifications.Slack.Token)
	account, ok := d.Providers.Kubernetes.AccountList.Get("k8s")
	require.True(t, ok)
	assert.Equal(t, kubeconfig, account.KubeconfigFile)
}

func TestGenerateWritesVaultToken(t *testing.T) {
	t.Setenv("KEEL_TEST_VAULT", "s.token")
	g, base := newTestGenerator(t)
	d := types.NewDeploymentConfiguration("default")
	d.DeploymentEnvironment.Vault.Enabled = true
	d.DeploymentEnvironment.Vault.Token = "encrypted:env!name:KEEL_TEST_VAULT"

	_, err := g.Generate(context.Background(), d)
	require.NoError(t, err)

	path := filepath.Join(base, "default", VaultTokenFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s.token", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	d.DeploymentEnvironment.Vault.Enabled = false
	_, err = g.Generate(context.Background(), d)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestGenerateFailures(t *testing.T) {
	t.Run("service error is fatal", func(t *testing.T) {
		g, _ := newTestGenerator(t, WithServices(&fakeService{
			typ:    Orca,
			files:  []string{"orca.yml"},
			render: func(*Env, *Profile) error { return errors.New("boom") },
		}))
		rc, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
		assert.Nil(t, rc)
		assert.True(t, errors.Is(err, types.ErrFatal))
	})

	t.Run("taxonomy error keeps its code", func(t *testing.T) {
		g, _ := newTestGenerator(t, WithServices(&fakeService{
			typ:   Orca,
			files: []string{"orca.yml"},
			render: func(env *Env, p *Profile) error {
				_, err := env.Secret("encrypted:env!name:KEEL_TEST_UNSET_VARIABLE")
				return err
			},
		}))
		rc, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
		assert.Nil(t, rc)
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})

	t.Run("unnamed deployment", func(t *testing.T) {
		g, _ := newTestGenerator(t)
		_, err := g.Generate(context.Background(), &types.DeploymentConfiguration{})
		assert.True(t, errors.Is(err, types.ErrIllegalArgument))
	})

	t.Run("duplicate service type", func(t *testing.T) {
		g, _ := newTestGenerator(t, WithServices(&fakeService{typ: Orca}, &fakeService{typ: Orca}))
		_, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
		assert.True(t, errors.Is(err, types.ErrDuplicate))
	})
}

func TestGenerateHistory(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	m := metrics.New()
	g, base := newTestGenerator(t,
		WithServices(&fakeService{typ: Orca, files: []string{"orca.yml"}}),
		WithHistoryLimit(2),
		WithClock(now),
		WithMetrics(m))
	d := types.NewDeploymentConfiguration("default")

	var ids []string
	for i := 0; i < 3; i++ {
		rc, err := g.Generate(context.Background(), d)
		require.NoError(t, err)
		ids = append(ids, rc.RunID)
	}

	runs, err := g.Runs("default")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1]}, runs)

	settings, err := g.RunSettings("default", ids[2])
	require.NoError(t, err)
	assert.Equal(t, 1000, settings[Orca].Port)
	assert.FileExists(t, filepath.Join(base, "default", HistoryDir, ids[2], manifestFile))

	_, err = g.RunSettings("default", ids[0])
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestGenerateWithoutHistory(t *testing.T) {
	g, base := newTestGenerator(t, WithServices(&fakeService{typ: Orca, files: []string{"orca.yml"}}), WithHistoryLimit(0))
	_, err := g.Generate(context.Background(), types.NewDeploymentConfiguration("default"))
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(base, "default", HistoryDir))
}
