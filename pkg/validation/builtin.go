package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // timezone checks must not depend on the host zoneinfo

	"github.com/distribution/reference"

	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/utils"
)

var (
	awsAccountIDRe = regexp.MustCompile(`^\d{12}$`)
	pluginIDRe     = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)
	s3BucketRe     = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

var knownMetricsStores = map[string]bool{
	"prometheus": true, "datadog": true, "stackdriver": true, "newrelic": true, "signalfx": true,
}

// NewDefaultRegistry returns a registry with every built-in validator.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins registers the built-in validators on r.
func RegisterBuiltins(r *Registry) {
	Register(r, validateDeployment)

	Register(r, func(c *Context, p *types.KubernetesProvider) { validateProvider(c, p) })
	Register(r, func(c *Context, p *types.AwsProvider) { validateProvider(c, p) })
	Register(r, func(c *Context, p *types.GoogleProvider) { validateProvider(c, p) })
	Register(r, func(c *Context, p *types.DockerRegistryProvider) { validateProvider(c, p) })

	Register(r, validateKubernetesAccount)
	Register(r, validateAwsAccount)
	Register(r, validateGoogleAccount)
	Register(r, validateDockerRegistryAccount)
	Register(r, validateJenkinsMaster)
	Register(r, validateSlack)
	Register(r, validateEmail)
	Register(r, validatePersistentStorage)
	Register(r, validateS3Store)
	Register(r, validateGcsStore)
	Register(r, validateDeploymentEnvironment)
	Register(r, validateVault)
	Register(r, validateAPISecurity)
	Register(r, validateAuthn)
	Register(r, validateWebhookTrust)
	Register(r, validateCanary)
	Register(r, validatePlugin)
	Register(r, validatePluginRepository)
}

func validateDeployment(c *Context, d *types.DeploymentConfiguration) {
	if err := utils.ValidateDNSLabel(d.Name); err != nil {
		c.Warn("deployment name %q %v", d.Name, err).
			WithRemediation("the name is used for directories and host names, prefer a DNS label such as prod-us")
	}
	if d.Version == "" {
		c.Error("no version set").WithRemediation("set a release version, for example %s", types.DefaultVersion)
	}
	if d.Timezone != "" {
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			c.Error("unknown timezone %q", d.Timezone).WithRemediation("use an IANA zone name such as America/Los_Angeles")
		}
	}
}

func validateProvider(c *Context, p types.Provider) {
	accounts := p.Accounts()
	if p.IsEnabled() && len(accounts) == 0 {
		c.Warn("provider is enabled but has no accounts")
	}
	primary := p.Primary()
	if primary == "" {
		if p.IsEnabled() && len(accounts) > 0 {
			c.Info("no primary account set")
		}
		return
	}
	for _, a := range accounts {
		if a.AccountName() == primary {
			return
		}
	}
	c.Error("primary account %q does not exist", primary).
		WithRemediation("add an account named %q or change the primary account", primary)
}

func validateKubernetesAccount(c *Context, a *types.KubernetesAccount) {
	if a.Context == "" && a.KubeconfigFile == "" {
		c.Warn("neither context nor kubeconfigFile is set, the current context of the default kubeconfig is used")
	}
	c.ReadableFile("kubeconfigFile", a.KubeconfigFile)

	d := c.Deployment()
	for _, ref := range a.DockerRegistries {
		if d == nil {
			break
		}
		if _, ok := d.Providers.DockerRegistry.AccountList.Get(ref.AccountName); !ok {
			c.Error("docker registry account %q does not exist", ref.AccountName).
				WithRemediation("add the docker registry account before referencing it")
		}
	}
	if overlap := intersect(a.Namespaces, a.OmitNamespaces); len(overlap) > 0 {
		c.Error("namespaces %s are both included and omitted", strings.Join(overlap, ", "))
	}
}

func validateAwsAccount(c *Context, a *types.AwsAccount) {
	if !awsAccountIDRe.MatchString(a.AccountID) {
		c.Error("account id %q must be 12 digits", a.AccountID)
	}
	if a.AssumeRole == "" {
		c.Warn("no assumeRole set, credentials of the managing account are used directly")
	}
	if a.Profile != "" && c.Checks().Profiles != nil {
		if err := c.Checks().Profiles.CheckProfile(c, a.Profile); err != nil {
			c.Error("aws profile %q cannot be loaded: %v", a.Profile, err).
				WithRemediation("define the profile in ~/.aws/config or ~/.aws/credentials")
		}
	}
}

func validateGoogleAccount(c *Context, a *types.GoogleAccount) {
	if a.Project == "" {
		c.Error("no project set")
	}
	c.ReadableFile("jsonPath", a.JSONPath)
}

func validateDockerRegistryAccount(c *Context, a *types.DockerRegistryAccount) {
	if a.Address == "" {
		c.Error("no address set")
		return
	}
	if a.Password != "" && a.PasswordFile != "" {
		c.Error("password and passwordFile are mutually exclusive")
	}
	if _, err := c.Decrypt(a.Password); err != nil {
		c.Error("password cannot be decrypted: %v", err)
	}
	c.ReadableFile("passwordFile", a.PasswordFile)

	valid := make([]string, 0, len(a.Repositories))
	for _, repo := range a.Repositories {
		if _, err := reference.ParseNormalizedNamed(repo); err != nil {
			c.Error("repository %q is not a valid image name: %v", repo, err)
			continue
		}
		valid = append(valid, repo)
	}
	if a.CacheIntervalSeconds < 0 {
		c.Error("cacheIntervalSeconds must not be negative")
	}
	if rc := c.Checks().Registries; rc != nil && len(valid) > 0 {
		if err := rc.CheckRepositories(c, a.Address, valid); err != nil {
			c.Warn("repositories could not be verified: %v", err)
		}
	}
}

func validateJenkinsMaster(c *Context, m *types.JenkinsMaster) {
	checkURL(c, "address", m.Address, true)
	if _, err := c.Decrypt(m.Password); err != nil {
		c.Error("password cannot be decrypted: %v", err)
	}
}

func validateSlack(c *Context, s *types.SlackNotification) {
	if !s.Enabled {
		return
	}
	if s.Token == "" {
		c.Error("slack is enabled but no token is set")
	} else if _, err := c.Decrypt(s.Token); err != nil {
		c.Error("token cannot be decrypted: %v", err)
	}
	if s.BotName == "" {
		c.Warn("no botName set")
	}
	if s.BaseURL != "" {
		checkURL(c, "baseUrl", s.BaseURL, false)
	}
}

func validateEmail(c *Context, e *types.EmailNotification) {
	if !e.Enabled {
		return
	}
	if e.From == "" {
		c.Error("email is enabled but no from address is set")
	}
	if e.SMTPHost == "" {
		c.Error("email is enabled but no smtpHost is set")
	}
	if e.SMTPPort < 0 || e.SMTPPort > 65535 {
		c.Error("smtpPort %d is out of range", e.SMTPPort)
	}
}

func validatePersistentStorage(c *Context, p *types.PersistentStorage) {
	switch p.PersistentStoreType {
	case "":
		c.Warn("no persistent store selected").
			WithRemediation("set persistentStoreType to one of s3, gcs or redis")
	case types.PersistentStoreS3, types.PersistentStoreGcs, types.PersistentStoreRedis:
	default:
		c.Error("unknown persistent store type %q", p.PersistentStoreType)
	}
}

func selectedStore(n types.Node, t types.PersistentStoreType) bool {
	p, ok := types.FindParent[*types.PersistentStorage](n)
	return ok && p.PersistentStoreType == t
}

func validateS3Store(c *Context, s *types.S3PersistentStore) {
	if !selectedStore(s, types.PersistentStoreS3) {
		return
	}
	if s.Bucket == "" {
		c.Error("no bucket set")
	} else if !s3BucketRe.MatchString(s.Bucket) {
		c.Error("bucket name %q is not valid", s.Bucket)
	}
	if s.Region == "" && s.Endpoint == "" {
		c.Warn("neither region nor endpoint set, us-west-2 is assumed")
	}
	if s.Endpoint != "" {
		checkURL(c, "endpoint", s.Endpoint, false)
	}
	if _, err := c.Decrypt(s.SecretAccessKey); err != nil {
		c.Error("secretAccessKey cannot be decrypted: %v", err)
	}
}

func validateGcsStore(c *Context, g *types.GcsPersistentStore) {
	if !selectedStore(g, types.PersistentStoreGcs) {
		return
	}
	if g.Bucket == "" {
		c.Error("no bucket set")
	}
	if g.Project == "" {
		c.Error("no project set")
	}
	c.ReadableFile("jsonPath", g.JSONPath)
}

func validateDeploymentEnvironment(c *Context, e *types.DeploymentEnvironment) {
	switch e.EffectiveType() {
	case types.DeploymentLocalDebian:
		if e.HaServices.Clouddriver.Enabled || e.HaServices.Echo.Enabled {
			c.Error("high availability services require a Distributed deployment").
				WithRemediation("set type to Distributed or disable haServices")
		}
	case types.DeploymentDistributed:
		if e.AccountName == "" {
			c.Error("a Distributed deployment requires an accountName")
			break
		}
		d := c.Deployment()
		if d == nil {
			break
		}
		if _, ok := d.Providers.Kubernetes.AccountList.Get(e.AccountName); !ok {
			c.Error("kubernetes account %q does not exist", e.AccountName).
				WithRemediation("deploy to an existing kubernetes account")
		}
	default:
		c.Error("unknown deployment type %q", e.Type)
	}
}

func validateVault(c *Context, v *types.Vault) {
	if !v.Enabled {
		return
	}
	if v.Address == "" {
		c.Error("vault is enabled but no address is set")
	} else {
		checkURL(c, "address", v.Address, true)
	}
	if _, err := c.Decrypt(v.Token); err != nil {
		c.Error("token cannot be decrypted: %v", err)
	}
}

func validateAPISecurity(c *Context, a *types.APISecurity) {
	if a.OverrideBaseURL != "" {
		checkURL(c, "overrideBaseUrl", a.OverrideBaseURL, true)
	}
	if a.SSL.Enabled {
		if a.SSL.KeyStore == "" {
			c.Error("ssl is enabled but no keyStore is set")
		}
		c.ReadableFile("ssl.keyStore", a.SSL.KeyStore)
	}
}

func validateAuthn(c *Context, a *types.Authn) {
	if !a.Enabled || !a.OAuth2.Enabled {
		return
	}
	if a.OAuth2.ClientID == "" {
		c.Error("oauth2 is enabled but no clientId is set")
	}
	if a.OAuth2.ClientSecret == "" {
		c.Error("oauth2 is enabled but no clientSecret is set")
	} else if _, err := c.Decrypt(a.OAuth2.ClientSecret); err != nil {
		c.Error("clientSecret cannot be decrypted: %v", err)
	}
}

func validateWebhookTrust(c *Context, t *types.WebhookTrust) {
	if !t.Enabled {
		return
	}
	if t.TrustStore == "" {
		c.Error("trust is enabled but no trustStore is set")
		return
	}
	c.ReadableFile("trustStore", t.TrustStore)
}

func validateCanary(c *Context, cn *types.Canary) {
	if !cn.Enabled {
		return
	}
	if cn.DefaultMetricsStore == "" {
		c.Error("canary is enabled but no defaultMetricsStore is set")
	} else if !knownMetricsStores[cn.DefaultMetricsStore] {
		c.Error("unknown metrics store %q", cn.DefaultMetricsStore)
	}
	if cn.DefaultJudge == "" {
		c.Info("no defaultJudge set, NetflixACAJudge-v1.0 is used")
	}
}

func validatePlugin(c *Context, p *types.Plugin) {
	if !pluginIDRe.MatchString(p.Name) {
		c.Error("plugin id %q must have the form <namespace>.<name>", p.Name)
	}
	if p.Enabled && p.Version == "" {
		c.Warn("no version pinned, the latest release is downloaded")
	}
	if p.UIResourceLocation != "" {
		checkURL(c, "uiResourceLocation", p.UIResourceLocation, false)
	}
}

func validatePluginRepository(c *Context, r *types.PluginRepository) {
	checkURL(c, "url", r.URL, true)
}

func checkURL(c *Context, field, raw string, required bool) {
	if raw == "" {
		if required {
			c.Error("no %s set", field)
		}
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.Error("%s %q is not a valid http(s) URL", field, raw)
	}
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}
