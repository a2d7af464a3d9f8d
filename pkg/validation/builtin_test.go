package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
)

type fakeProfiles map[string]bool

func (f fakeProfiles) CheckProfile(_ context.Context, profile string) error {
	if f[profile] {
		return nil
	}
	return errors.New("profile not found")
}

type fakeRegistries struct {
	calls []string
	err   error
}

func (f *fakeRegistries) CheckRepositories(_ context.Context, address string, _ []string) error {
	f.calls = append(f.calls, address)
	return f.err
}

func validateDefault(t *testing.T, cfg *types.Config, checks Checks) *ProblemSet {
	t.Helper()
	r := NewDefaultRegistry(WithLogger(log.NewTestLogger()), WithChecks(checks))
	session := secrets.NewSession(secrets.NewRegistry(secrets.NewEnvEngine()), secrets.WithLogger(log.NewTestLogger()))
	t.Cleanup(func() { _ = session.End() })
	return r.Validate(context.Background(), cfg, session)
}

func messages(ps *ProblemSet, min Severity) []string {
	var out []string
	for _, p := range ps.Filter(min) {
		out = append(out, p.Message)
	}
	return out
}

func TestFreshDeploymentIsNotBlocked(t *testing.T) {
	ps := validateDefault(t, types.NewConfig("default"), Checks{})
	assert.False(t, ps.Blocking(), messages(ps, SeverityError))
}

func TestPrimaryAccountMustExist(t *testing.T) {
	cfg := types.NewConfig("default")
	d, _ := cfg.Deployment("default")
	d.Providers.Aws.Enabled = true
	d.Providers.Aws.PrimaryAccount = "prod"

	ps := validateDefault(t, cfg, Checks{})
	assert.Contains(t, messages(ps, SeverityError), `primary account "prod" does not exist`)

	require.NoError(t, d.Providers.Aws.AccountList.Add(&types.AwsAccount{Name: "prod", AccountID: "123456789012", AssumeRole: "role/keel"}))
	ps = validateDefault(t, cfg, Checks{})
	assert.False(t, ps.Blocking(), messages(ps, SeverityError))
}

func TestAwsAccountChecks(t *testing.T) {
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/aws/accounts",
		&types.AwsAccount{Name: "prod", AccountID: "12345", Profile: "missing"}))

	ps := validateDefault(t, cfg, Checks{Profiles: fakeProfiles{"known": true}})
	errs := messages(ps, SeverityError)
	assert.Contains(t, errs, `account id "12345" must be 12 digits`)
	assert.Contains(t, errs, `aws profile "missing" cannot be loaded: profile not found`)
}

func TestSharedConfigProfiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configFile, []byte("[profile deploy]\nregion = us-east-1\n"), 0600))
	checker := SharedConfigProfiles{ConfigFiles: []string{configFile}, CredentialsFiles: []string{filepath.Join(dir, "credentials")}}

	assert.NoError(t, checker.CheckProfile(context.Background(), "deploy"))
	assert.Error(t, checker.CheckProfile(context.Background(), "absent"))
}

func TestDockerRegistryAccountChecks(t *testing.T) {
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/dockerRegistry/accounts", &types.DockerRegistryAccount{
		Name:         "ecr",
		Address:      "123456789012.dkr.ecr.us-east-1.amazonaws.com",
		Repositories: []string{"team/app", "Invalid Repo"},
	}))
	registries := &fakeRegistries{err: errors.New("access denied")}

	ps := validateDefault(t, cfg, Checks{Registries: registries})
	assert.Len(t, ps.Filter(SeverityError), 1)
	assert.Contains(t, ps.Filter(SeverityError)[0].Message, `repository "Invalid Repo" is not a valid image name`)
	assert.Contains(t, messages(ps, SeverityWarning), "repositories could not be verified: access denied")
	assert.Equal(t, []string{"123456789012.dkr.ecr.us-east-1.amazonaws.com"}, registries.calls)
}

func TestKubernetesAccountReferences(t *testing.T) {
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/kubernetes/accounts", &types.KubernetesAccount{
		Name:             "k8s",
		Context:          "kind-kind",
		KubeconfigFile:   filepath.Join(t.TempDir(), "missing-kubeconfig"),
		DockerRegistries: []types.DockerRegistryRef{{AccountName: "hub"}},
	}))

	errs := messages(validateDefault(t, cfg, Checks{}), SeverityError)
	assert.Contains(t, errs, `docker registry account "hub" does not exist`)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0]+errs[1], "kubeconfigFile")

	require.NoError(t, types.Add(cfg, "default/providers/dockerRegistry/accounts",
		&types.DockerRegistryAccount{Name: "hub", Address: "index.docker.io"}))
	errs = messages(validateDefault(t, cfg, Checks{}), SeverityError)
	assert.NotContains(t, errs, `docker registry account "hub" does not exist`)
}

func TestSecretsMustDecrypt(t *testing.T) {
	cfg := types.NewConfig("default")
	d, _ := cfg.Deployment("default")
	d.Notifications.Slack.Enabled = true
	d.Notifications.Slack.BotName = "keel"
	d.Notifications.Slack.Token = "encrypted:env!name:KEEL_TEST_SLACK_TOKEN_UNSET"

	errs := messages(validateDefault(t, cfg, Checks{}), SeverityError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "token cannot be decrypted")

	t.Setenv("KEEL_TEST_SLACK_TOKEN_UNSET", "xoxb-1")
	assert.Empty(t, messages(validateDefault(t, cfg, Checks{}), SeverityError))
}

func TestDeploymentEnvironmentChecks(t *testing.T) {
	cfg := types.NewConfig("default")
	d, _ := cfg.Deployment("default")
	d.DeploymentEnvironment.HaServices.Clouddriver.Enabled = true

	errs := messages(validateDefault(t, cfg, Checks{}), SeverityError)
	assert.Contains(t, errs, "high availability services require a Distributed deployment")

	d.DeploymentEnvironment.Type = types.DeploymentDistributed
	d.DeploymentEnvironment.AccountName = "k8s"
	errs = messages(validateDefault(t, cfg, Checks{}), SeverityError)
	assert.Equal(t, []string{`kubernetes account "k8s" does not exist`}, errs)
}

func TestSelectedStoreOnly(t *testing.T) {
	cfg := types.NewConfig("default")
	d, _ := cfg.Deployment("default")

	d.PersistentStorage.PersistentStoreType = types.PersistentStoreGcs
	errs := messages(validateDefault(t, cfg, Checks{}), SeverityError)
	assert.ElementsMatch(t, []string{"no bucket set", "no project set"}, errs)

	d.PersistentStorage.PersistentStoreType = types.PersistentStoreS3
	d.PersistentStorage.S3.Bucket = "keel-metadata"
	d.PersistentStorage.S3.Region = "us-west-2"
	assert.Empty(t, messages(validateDefault(t, cfg, Checks{}), SeverityError))
}

func TestPluginChecks(t *testing.T) {
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/plugins/plugins", &types.Plugin{Name: "no-namespace", Enabled: true}))
	require.NoError(t, types.Add(cfg, "default/plugins/repositories", &types.PluginRepository{Name: "repo", URL: "ftp://example.com"}))

	ps := validateDefault(t, cfg, Checks{})
	errs := messages(ps, SeverityError)
	assert.Contains(t, errs, `plugin id "no-namespace" must have the form <namespace>.<name>`)
	assert.Contains(t, errs, `url "ftp://example.com" is not a valid http(s) URL`)
	assert.Contains(t, messages(ps, SeverityWarning), "no version pinned, the latest release is downloaded")
}

func TestParseECRAddress(t *testing.T) {
	id, region, ok := ParseECRAddress("https://123456789012.dkr.ecr.eu-west-1.amazonaws.com/v2")
	require.True(t, ok)
	assert.Equal(t, "123456789012", id)
	assert.Equal(t, "eu-west-1", region)

	_, _, ok = ParseECRAddress("index.docker.io")
	assert.False(t, ok)
}

func TestDeploymentNameShouldBeDNSLabel(t *testing.T) {
	ps := validateDefault(t, types.NewConfig("Prod_US"), Checks{})
	assert.False(t, ps.Blocking())
	found := false
	for _, m := range messages(ps, SeverityWarning) {
		found = found || strings.Contains(m, `deployment name "Prod_US"`)
	}
	assert.True(t, found, messages(ps, SeverityWarning))

	ps = validateDefault(t, types.NewConfig("prod-us"), Checks{})
	for _, m := range messages(ps, SeverityWarning) {
		assert.NotContains(t, m, "deployment name")
	}
}
