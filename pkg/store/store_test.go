package store

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

func newTestStore(t *testing.T, opts ...Option) (*ConfigStore, string) {
	t.Helper()
	base := t.TempDir()
	opts = append([]Option{WithLogger(log.NewTestLogger())}, opts...)
	return New(base, opts...), base
}

func TestLoadMissingDocumentIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	cfg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.Deployments)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, base := newTestStore(t)
	ctx := context.Background()

	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/aws/accounts", &types.AwsAccount{Name: "prod", AccountID: "123456789012"}))
	require.NoError(t, s.Save(ctx, cfg, "add aws account"))

	info, err := os.Stat(filepath.Join(base, DocumentName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	n, err := types.Get(loaded, "default/providers/aws/accounts/prod")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", n.(*types.AwsAccount).AccountID)
	assert.Equal(t, "default/providers/aws/accounts/prod", types.PathOf(n))
}

func TestLocalFilesRelativeOnDisk(t *testing.T) {
	s, base := newTestStore(t)
	ctx := context.Background()
	inside := filepath.Join(base, "kube", "config")
	outside := filepath.Join(t.TempDir(), "gcp.json")

	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/kubernetes/accounts", &types.KubernetesAccount{Name: "k8s", KubeconfigFile: inside}))
	require.NoError(t, types.Add(cfg, "default/providers/google/accounts", &types.GoogleAccount{Name: "gce", Project: "p", JSONPath: outside}))
	require.NoError(t, types.Add(cfg, "default/providers/google/accounts", &types.GoogleAccount{Name: "sealed", Project: "p", JSONPath: "encrypted:local!f:key.enc"}))
	require.NoError(t, s.Save(ctx, cfg, ""))

	raw, err := os.ReadFile(filepath.Join(base, DocumentName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kubeconfigFile: kube/config")
	assert.Contains(t, string(raw), "jsonPath: "+outside)
	assert.Contains(t, string(raw), "encrypted:local!f:key.enc")

	acct, _ := cfg.Deployments[0].Providers.Kubernetes.AccountList.Get("k8s")
	assert.Equal(t, inside, acct.KubeconfigFile, "Save must not modify its argument")

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	acct, _ = loaded.Deployments[0].Providers.Kubernetes.AccountList.Get("k8s")
	assert.Equal(t, inside, acct.KubeconfigFile)
	sealed, _ := loaded.Deployments[0].Providers.Google.AccountList.Get("sealed")
	assert.Equal(t, "encrypted:local!f:key.enc", sealed.JSONPath)
}

func TestBackupAndRestore(t *testing.T) {
	s, base := newTestStore(t)
	ctx := context.Background()

	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kubeconfig, []byte("apiVersion: v1\n"), 0600))
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/kubernetes/accounts", &types.KubernetesAccount{Name: "k8s", KubeconfigFile: kubeconfig}))
	require.NoError(t, s.Save(ctx, cfg, ""))

	dir, err := s.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, BackupDir), dir)

	raw, err := os.ReadFile(filepath.Join(dir, DocumentName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kubeconfigFile: "+RequiredFilesDir+"/"+requiredFileName(kubeconfig))

	copied := filepath.Join(dir, RequiredFilesDir, requiredFileName(kubeconfig))
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1\n", string(data))

	s.SwitchToBackup()
	assert.Equal(t, s.BackupPath(), s.Path())
	backup, err := s.Load(ctx)
	require.NoError(t, err)
	acct, _ := backup.Deployments[0].Providers.Kubernetes.AccountList.Get("k8s")
	assert.Equal(t, copied, acct.KubeconfigFile)
	s.SwitchToPrimary()
	assert.Equal(t, s.PrimaryPath(), s.Path())

	require.NoError(t, os.Remove(s.PrimaryPath()))
	restored, err := s.RestoreBackup(ctx)
	require.NoError(t, err)
	acct, _ = restored.Deployments[0].Providers.Kubernetes.AccountList.Get("k8s")
	assert.Equal(t, copied, acct.KubeconfigFile)
	assert.True(t, filepath.IsAbs(acct.KubeconfigFile))

	primary, err := s.Load(ctx)
	require.NoError(t, err)
	acct, _ = primary.Deployments[0].Providers.Kubernetes.AccountList.Get("k8s")
	assert.Equal(t, copied, acct.KubeconfigFile)
}

func TestBackupFailsOnMissingLocalFile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/kubernetes/accounts",
		&types.KubernetesAccount{Name: "k8s", KubeconfigFile: filepath.Join(t.TempDir(), "gone")}))
	require.NoError(t, s.Save(ctx, cfg, ""))

	_, err := s.Backup(ctx)
	assert.True(t, errors.Is(err, types.ErrFatal))
}

func TestRestoreWithoutBackupIsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.RestoreBackup(context.Background())
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSaveRecordsRevisions(t *testing.T) {
	history := NewMemoryHistory(0)
	s, _ := newTestStore(t, WithHistory(history))
	ctx := context.Background()

	cfg := types.NewConfig("default")
	require.NoError(t, s.Save(ctx, cfg, "init"))
	require.NoError(t, types.Add(cfg, "default/ci/jenkins/masters", &types.JenkinsMaster{Name: "ci", Address: "https://ci.example.com"}))
	require.NoError(t, s.Save(ctx, cfg, "add master"))

	revs, err := history.Revisions(ctx)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "add master", revs[0].Summary)
	assert.Nil(t, revs[0].Document)

	old, err := s.Revision(ctx, revs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, old.Deployments[0].Ci.Jenkins.Masters.Len())
}

func TestCorruptDocumentIsFatal(t *testing.T) {
	s, base := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(base, DocumentName), []byte("deploymentConfigurations: [: bad"), 0600))
	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, types.ErrFatal))
}
