package types

import "gopkg.in/yaml.v3"

// Security groups API/UI exposure and authentication settings.
type Security struct {
	nodeBase `yaml:"-"`

	APISecurity *APISecurity `yaml:"apiSecurity"`
	UISecurity  *UISecurity  `yaml:"uiSecurity"`
	Authn       *Authn       `yaml:"authn"`
	Authz       *Authz       `yaml:"authz"`
}

func (*Security) Kind() Kind { return KindSecurity }

func (*Security) NodeName() string { return "security" }

func (s *Security) slots() []slot {
	return []slot{
		bind("apiSecurity", &s.APISecurity),
		bind("uiSecurity", &s.UISecurity),
		bind("authn", &s.Authn),
		bind("authz", &s.Authz),
	}
}

func (s *Security) Children() []Node { return slotChildren(s.slots()) }

func (s *Security) Child(name string) (Node, bool) { return slotChild(s.slots(), name) }

// SSL configures TLS termination for an endpoint.
type SSL struct {
	Enabled          bool   `yaml:"enabled"`
	KeyStore         string `yaml:"keyStore,omitempty"`
	KeyStorePassword string `yaml:"keyStorePassword,omitempty"`
}

// APISecurity configures the API gateway endpoint.
type APISecurity struct {
	leaf `yaml:"-"`

	OverrideBaseURL string   `yaml:"overrideBaseUrl,omitempty"`
	CorsAccessURL   []string `yaml:"corsAccessPattern,omitempty"`
	SSL             SSL      `yaml:"ssl"`
}

func (*APISecurity) Kind() Kind { return KindAPISecurity }

func (*APISecurity) NodeName() string { return "apiSecurity" }

func (a *APISecurity) LocalFiles() []*string { return []*string{&a.SSL.KeyStore} }

func (a *APISecurity) Secrets() []SecretField {
	return []SecretField{
		{Name: "ssl.keyStore", Value: &a.SSL.KeyStore, File: true},
		{Name: "ssl.keyStorePassword", Value: &a.SSL.KeyStorePassword},
	}
}

// UISecurity configures the UI endpoint.
type UISecurity struct {
	leaf `yaml:"-"`

	OverrideBaseURL string `yaml:"overrideBaseUrl,omitempty"`
	SSL             SSL    `yaml:"ssl"`
}

func (*UISecurity) Kind() Kind { return KindUISecurity }

func (*UISecurity) NodeName() string { return "uiSecurity" }

func (u *UISecurity) LocalFiles() []*string { return []*string{&u.SSL.KeyStore} }

func (u *UISecurity) Secrets() []SecretField {
	return []SecretField{
		{Name: "ssl.keyStore", Value: &u.SSL.KeyStore, File: true},
		{Name: "ssl.keyStorePassword", Value: &u.SSL.KeyStorePassword},
	}
}

// OAuth2 holds an OAuth2 client registration.
type OAuth2 struct {
	Enabled          bool   `yaml:"enabled"`
	Provider         string `yaml:"provider,omitempty"`
	ClientID         string `yaml:"clientId,omitempty"`
	ClientSecret     string `yaml:"clientSecret,omitempty"`
	AccessTokenURI   string `yaml:"accessTokenUri,omitempty"`
	UserAuthorizeURI string `yaml:"userAuthorizationUri,omitempty"`
}

// Authn configures user authentication.
type Authn struct {
	leaf `yaml:"-"`

	Enabled bool   `yaml:"enabled"`
	OAuth2  OAuth2 `yaml:"oauth2"`
}

func (*Authn) Kind() Kind { return KindAuthn }

func (*Authn) NodeName() string { return "authn" }

func (a *Authn) Secrets() []SecretField {
	return []SecretField{{Name: "oauth2.clientSecret", Value: &a.OAuth2.ClientSecret}}
}

// Authz configures role-based authorization.
type Authz struct {
	leaf `yaml:"-"`

	Enabled bool `yaml:"enabled"`
}

func (*Authz) Kind() Kind { return KindAuthz }

func (*Authz) NodeName() string { return "authz" }

func (s *Security) Replace(name string, n Node) error { return slotReplace(s, s.slots(), name, n) }

func (s *Security) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(s, s.slots(), name, value)
}
