package profile

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/types"
)

//go:embed templates/*
var templateFS embed.FS

// Template returns the embedded template with the given name.
func Template(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", types.NotFoundf("no template named %q", name)
	}
	return string(data), nil
}

// binder computes the service specific bindings of one profile.
type binder func(env *Env, p *Profile) (Bindings, error)

// templateService renders one embedded template per output file.
type templateService struct {
	typ     ServiceType
	port    int
	files   []string
	enabled func(d *types.DeploymentConfiguration) bool
	scheme  func(d *types.DeploymentConfiguration) string
	bind    binder
}

func (s *templateService) Type() ServiceType { return s.typ }

func (s *templateService) Settings(d *types.DeploymentConfiguration) *ServiceSettings {
	host := "localhost"
	if d.DeploymentEnvironment.EffectiveType() == types.DeploymentDistributed {
		host = "spin-" + string(s.typ)
	}
	scheme := "http"
	if s.scheme != nil {
		scheme = s.scheme(d)
	}
	return &ServiceSettings{
		Host:     host,
		Address:  host,
		Port:     s.port,
		Scheme:   scheme,
		Enabled:  s.enabled == nil || s.enabled(d),
		Artifact: fmt.Sprintf("%s:%s", s.typ, d.Version),
	}
}

func (s *templateService) Profiles(env *Env) ([]*Profile, error) {
	profiles := make([]*Profile, 0, len(s.files))
	for _, name := range s.files {
		tmpl, err := Template(name)
		if err != nil {
			return nil, err
		}
		p := &Profile{Name: name, OutputFile: name}
		b := env.Bindings()
		if s.bind != nil {
			extra, err := s.bind(env, p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.typ, err)
			}
			b.Merge(extra)
		}
		p.Contents = Render(tmpl, b)
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DefaultServices returns the built-in services in generation order.
func DefaultServices() []Service {
	return []Service{
		&templateService{typ: Redis, port: 6379},
		&templateService{typ: Clouddriver, port: 7002, files: []string{"clouddriver.yml"}, bind: bindClouddriver},
		&templateService{typ: Front50, port: 8080, files: []string{"front50.yml"}, bind: bindFront50},
		&templateService{typ: Orca, port: 8083, files: []string{"orca.yml"}, bind: bindOrca},
		&templateService{typ: Echo, port: 8089, files: []string{"echo.yml"}, bind: bindEcho},
		&templateService{
			typ:     Igor,
			port:    8088,
			files:   []string{"igor.yml"},
			enabled: func(d *types.DeploymentConfiguration) bool { return d.Ci.Jenkins.Masters.Len() > 0 },
			bind:    bindIgor,
		},
		&templateService{
			typ:     Fiat,
			port:    7003,
			files:   []string{"fiat.yml"},
			enabled: func(d *types.DeploymentConfiguration) bool { return d.Security.Authz.Enabled },
		},
		&templateService{
			typ:     Kayenta,
			port:    8090,
			files:   []string{"kayenta.yml"},
			enabled: func(d *types.DeploymentConfiguration) bool { return d.Canary.Enabled },
			bind:    bindKayenta,
		},
		&templateService{
			typ:    Gate,
			port:   8084,
			files:  []string{"gate.yml"},
			scheme: func(d *types.DeploymentConfiguration) string { return schemeOf(d.Security.APISecurity.SSL) },
			bind:   bindGate,
		},
		&templateService{
			typ:    Deck,
			port:   9000,
			files:  []string{"settings.js"},
			scheme: func(d *types.DeploymentConfiguration) string { return schemeOf(d.Security.UISecurity.SSL) },
			bind:   bindDeck,
		},
	}
}

func schemeOf(ssl types.SSL) string {
	if ssl.Enabled {
		return "https"
	}
	return "http"
}

func bindGate(env *Env, p *Profile) (Bindings, error) {
	sec := env.Deployment.Security
	if err := env.Resolve(sec, p); err != nil {
		return nil, err
	}
	api := sec.APISecurity
	oauth := sec.Authn.OAuth2
	plugins, err := pluginsSection(env, p)
	if err != nil {
		return nil, err
	}
	return Bindings{
		"gate.ssl.enabled":                 api.SSL.Enabled,
		"gate.ssl.keyStore":                api.SSL.KeyStore,
		"gate.ssl.keyStorePassword":        api.SSL.KeyStorePassword,
		"gate.cors":                        strings.Join(api.CorsAccessURL, "|"),
		"gate.oauth2.enabled":              sec.Authn.Enabled && oauth.Enabled,
		"gate.oauth2.clientId":             oauth.ClientID,
		"gate.oauth2.clientSecret":         oauth.ClientSecret,
		"gate.oauth2.accessTokenUri":       oauth.AccessTokenURI,
		"gate.oauth2.userAuthorizationUri": oauth.UserAuthorizeURI,
		"gate.oauth2.provider":             oauth.Provider,
		"plugins":                          plugins,
	}, nil
}

func bindDeck(env *Env, _ *Profile) (Bindings, error) {
	gateURL := env.Deployment.Security.APISecurity.OverrideBaseURL
	if gateURL == "" {
		if gate, ok := env.Settings.Get(Gate); ok {
			gateURL = gate.BaseURL()
		}
	}
	return Bindings{
		"deck.gateUrl":     gateURL,
		"deck.authEnabled": env.Deployment.Security.Authn.Enabled,
	}, nil
}

func bindOrca(env *Env, p *Profile) (Bindings, error) {
	trust := env.Deployment.Webhook.Trust
	if err := env.Resolve(trust, p); err != nil {
		return nil, err
	}
	plugins, err := pluginsSection(env, p)
	if err != nil {
		return nil, err
	}
	return Bindings{
		"orca.webhook.trust.enabled":            trust.Enabled,
		"orca.webhook.trust.trustStore":         trust.TrustStore,
		"orca.webhook.trust.trustStorePassword": trust.TrustStorePassword,
		"plugins":                               plugins,
	}, nil
}

func bindEcho(env *Env, p *Profile) (Bindings, error) {
	n := env.Deployment.Notifications
	if err := env.Resolve(n, p); err != nil {
		return nil, err
	}
	return Bindings{
		"echo.slack.enabled":  n.Slack.Enabled,
		"echo.slack.botName":  n.Slack.BotName,
		"echo.slack.token":    n.Slack.Token,
		"echo.slack.baseUrl":  n.Slack.BaseURL,
		"echo.email.enabled":  n.Email.Enabled,
		"echo.email.from":     n.Email.From,
		"echo.email.host":     n.Email.SMTPHost,
		"echo.email.port":     n.Email.SMTPPort,
		"echo.email.username": n.Email.Username,
		"echo.email.password": n.Email.Password,
	}, nil
}

func bindKayenta(env *Env, _ *Profile) (Bindings, error) {
	c := env.Deployment.Canary
	return Bindings{
		"kayenta.defaultJudge":        c.DefaultJudge,
		"kayenta.defaultMetricsStore": c.DefaultMetricsStore,
		"kayenta.stagesEnabled":       c.StagesEnabled,
	}, nil
}

func bindIgor(env *Env, p *Profile) (Bindings, error) {
	jenkins := env.Deployment.Ci.Jenkins
	if err := env.Resolve(jenkins, p); err != nil {
		return nil, err
	}
	masters := make([]map[string]interface{}, 0, jenkins.Masters.Len())
	for _, m := range jenkins.Masters.All() {
		masters = append(masters, map[string]interface{}{
			"name":     m.Name,
			"address":  m.Address,
			"username": m.Username,
			"password": m.Password,
			"csrf":     m.Csrf,
		})
	}
	out, err := section("jenkins", map[string]interface{}{
		"enabled": jenkins.Enabled,
		"masters": masters,
	})
	if err != nil {
		return nil, err
	}
	return Bindings{"igor.jenkins": out}, nil
}

func bindClouddriver(env *Env, p *Profile) (Bindings, error) {
	providers := env.Deployment.Providers
	if err := env.Resolve(providers, p); err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if k := providers.Kubernetes; k.Enabled {
		doc["kubernetes"] = providerSection(&k.ProviderBase, k.AccountList.All())
	}
	if a := providers.Aws; a.Enabled {
		s := providerSection(&a.ProviderBase, a.AccountList.All())
		s["accessKeyId"] = a.AccessKeyID
		s["secretAccessKey"] = a.SecretAccessKey
		doc["aws"] = s
	}
	if g := providers.Google; g.Enabled {
		doc["google"] = providerSection(&g.ProviderBase, g.AccountList.All())
	}
	if r := providers.DockerRegistry; r.Enabled {
		doc["dockerRegistry"] = providerSection(&r.ProviderBase, r.AccountList.All())
	}
	if len(doc) == 0 {
		return Bindings{"clouddriver.providers": nil}, nil
	}
	out, err := yamlString(doc)
	if err != nil {
		return nil, err
	}
	return Bindings{"clouddriver.providers": out}, nil
}

func providerSection[T types.Account](base *types.ProviderBase, accounts []T) map[string]interface{} {
	return map[string]interface{}{
		"enabled":        base.Enabled,
		"primaryAccount": base.PrimaryAccount,
		"accounts":       accounts,
	}
}

func bindFront50(env *Env, p *Profile) (Bindings, error) {
	storage := env.Deployment.PersistentStorage
	selected := storage.Selected()
	if selected == nil {
		return Bindings{"front50.storage": nil}, nil
	}
	if err := env.Resolve(selected, p); err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	switch s := selected.(type) {
	case *types.S3PersistentStore:
		doc = map[string]interface{}{"s3": map[string]interface{}{
			"enabled":         true,
			"bucket":          s.Bucket,
			"rootFolder":      s.RootFolder,
			"region":          s.Region,
			"endpoint":        s.Endpoint,
			"accessKeyId":     s.AccessKeyID,
			"secretAccessKey": s.SecretAccessKey,
		}}
	case *types.GcsPersistentStore:
		doc = map[string]interface{}{"gcs": map[string]interface{}{
			"enabled":    true,
			"bucket":     s.Bucket,
			"project":    s.Project,
			"rootFolder": s.RootFolder,
			"jsonPath":   s.JSONPath,
		}}
	default:
		doc = map[string]interface{}{"spinnaker": map[string]interface{}{
			"redis": map[string]interface{}{"enabled": true},
		}}
	}
	out, err := yamlString(doc)
	if err != nil {
		return nil, err
	}
	return Bindings{"front50.storage": out}, nil
}

// pluginsSection renders the extensibility block shared by gate and orca.
func pluginsSection(env *Env, _ *Profile) (interface{}, error) {
	pl := env.Deployment.Plugins
	if !pl.Enabled {
		return nil, nil
	}
	plugins := map[string]interface{}{}
	for _, p := range pl.Plugins.All() {
		plugins[p.Name] = map[string]interface{}{
			"enabled":    p.Enabled,
			"version":    p.Version,
			"extensions": p.Extensions,
		}
	}
	repos := map[string]interface{}{}
	for _, r := range pl.Repositories.All() {
		repos[r.Name] = map[string]interface{}{"url": r.URL}
	}
	out, err := section("spinnaker", map[string]interface{}{
		"extensibility": map[string]interface{}{
			"plugins-root-path":  "/opt/spinnaker/plugins",
			"downloadingEnabled": pl.DownloadingEnabled,
			"plugins":            plugins,
			"repositories":       repos,
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func section(key string, v interface{}) (string, error) {
	return yamlString(map[string]interface{}{key: v})
}

func yamlString(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", types.Fatalf(err, "render section")
	}
	return strings.TrimRight(string(data), "\n"), nil
}
