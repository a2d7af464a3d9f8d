package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/types"
)

func newTestRegistry() *Registry {
	return NewRegistry(WithLogger(log.NewTestLogger()))
}

func TestDispatchUsesExactKind(t *testing.T) {
	r := newTestRegistry()
	var seen []string
	Register(r, func(c *Context, a *types.AwsAccount) {
		seen = append(seen, a.Name)
		c.Warn("aws account seen")
	})

	cfg := types.NewConfig("default")
	require.NoError(t, types.Add(cfg, "default/providers/aws/accounts", &types.AwsAccount{Name: "prod"}))
	require.NoError(t, types.Add(cfg, "default/providers/google/accounts", &types.GoogleAccount{Name: "gce"}))

	ps := r.Validate(context.Background(), cfg, nil)
	assert.Equal(t, []string{"prod"}, seen)
	require.Equal(t, 1, ps.Len())
	assert.Equal(t, "default/providers/aws/accounts/prod", ps.Problems()[0].Location)
	assert.True(t, r.Has(types.KindAwsAccount))
	assert.False(t, r.Has(types.KindGoogleAccount))
}

func TestMissingValidatorMeansNoChecks(t *testing.T) {
	r := newTestRegistry()
	ps := r.Validate(context.Background(), types.NewDeploymentConfiguration("default"), nil)
	assert.True(t, ps.Empty())
}

func TestChildrenValidatedBeforeParent(t *testing.T) {
	r := newTestRegistry()
	var order []string
	record := func(n types.Node) { order = append(order, string(n.Kind())) }
	Register(r, func(_ *Context, n *types.DeploymentConfiguration) { record(n) })
	Register(r, func(_ *Context, n *types.Providers) { record(n) })
	Register(r, func(_ *Context, n *types.AwsProvider) { record(n) })
	Register(r, func(_ *Context, n *types.AwsAccount) { record(n) })

	d := types.NewDeploymentConfiguration("default")
	require.NoError(t, d.Providers.Aws.AccountList.Add(&types.AwsAccount{Name: "prod"}))

	r.Validate(context.Background(), d, nil)
	assert.Equal(t, []string{
		string(types.KindAwsAccount),
		string(types.KindAwsProvider),
		string(types.KindProviders),
		string(types.KindDeployment),
	}, order)
}

func TestDuplicateNamesAreErrors(t *testing.T) {
	doc := `
deploymentConfigurations:
- name: default
  providers:
    kubernetes:
      accounts:
      - name: k8s
      - name: k8s
`
	cfg := &types.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), cfg))
	cfg.Relink()

	ps := newTestRegistry().Validate(context.Background(), cfg, nil)
	require.True(t, ps.Blocking())
	assert.Equal(t, "default/providers/kubernetes/accounts", ps.Filter(SeverityError)[0].Location)
	assert.Contains(t, ps.Filter(SeverityError)[0].Message, `duplicate name "k8s"`)
}

func TestRegisterMultipleValidatorsForOneKind(t *testing.T) {
	r := newTestRegistry()
	Register(r, func(c *Context, _ *types.Canary) { c.Info("first") })
	Register(r, func(c *Context, _ *types.Canary) { c.Info("second") })

	ps := r.Validate(context.Background(), &types.Canary{}, nil)
	require.Equal(t, 2, ps.Len())
	assert.Equal(t, "first", ps.Problems()[0].Message)
	assert.Equal(t, "second", ps.Problems()[1].Message)
}
