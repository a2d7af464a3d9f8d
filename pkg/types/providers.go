package types

import "gopkg.in/yaml.v3"

// Provider is implemented by every cloud or registry provider node.
type Provider interface {
	Node
	IsEnabled() bool
	Primary() string
	Accounts() []Account
}

// Account is implemented by every provider account node.
type Account interface {
	Node
	AccountName() string
}

// ProviderBase holds the fields shared by all providers.
type ProviderBase struct {
	Enabled        bool   `yaml:"enabled"`
	PrimaryAccount string `yaml:"primaryAccount,omitempty"`
}

func (p *ProviderBase) IsEnabled() bool { return p.Enabled }

func (p *ProviderBase) Primary() string { return p.PrimaryAccount }

// Providers groups the supported providers of a deployment.
type Providers struct {
	nodeBase `yaml:"-"`

	Kubernetes     *KubernetesProvider     `yaml:"kubernetes"`
	Aws            *AwsProvider            `yaml:"aws"`
	Google         *GoogleProvider         `yaml:"google"`
	DockerRegistry *DockerRegistryProvider `yaml:"dockerRegistry"`
}

func (*Providers) Kind() Kind { return KindProviders }

func (*Providers) NodeName() string { return "providers" }

func (p *Providers) slots() []slot {
	return []slot{
		bind("kubernetes", &p.Kubernetes),
		bind("aws", &p.Aws),
		bind("google", &p.Google),
		bind("dockerRegistry", &p.DockerRegistry),
	}
}

func (p *Providers) Children() []Node { return slotChildren(p.slots()) }

func (p *Providers) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

func (p *Providers) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *Providers) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}

// All returns the providers in declaration order.
func (p *Providers) All() []Provider {
	return []Provider{p.Kubernetes, p.Aws, p.Google, p.DockerRegistry}
}

// KubernetesProvider manages Kubernetes cluster accounts.
type KubernetesProvider struct {
	nodeBase     `yaml:"-"`
	ProviderBase `yaml:",inline"`

	AccountList *NodeList[*KubernetesAccount] `yaml:"accounts"`
}

func (*KubernetesProvider) Kind() Kind { return KindKubernetesProvider }

func (*KubernetesProvider) NodeName() string { return "kubernetes" }

func (p *KubernetesProvider) slots() []slot { return []slot{bind("accounts", &p.AccountList)} }

func (p *KubernetesProvider) Children() []Node { return slotChildren(p.slots()) }

func (p *KubernetesProvider) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

func (p *KubernetesProvider) Accounts() []Account { return accountsOf(p.AccountList) }

// KubernetesAccount is a Kubernetes cluster the platform deploys to.
type KubernetesAccount struct {
	leaf `yaml:"-"`

	Name             string              `yaml:"name"`
	Context          string              `yaml:"context,omitempty"`
	KubeconfigFile   string              `yaml:"kubeconfigFile,omitempty"`
	Namespaces       []string            `yaml:"namespaces,omitempty"`
	OmitNamespaces   []string            `yaml:"omitNamespaces,omitempty"`
	DockerRegistries []DockerRegistryRef `yaml:"dockerRegistries,omitempty"`
	ServiceAccount   bool                `yaml:"serviceAccount,omitempty"`
}

// DockerRegistryRef points a Kubernetes account at a docker registry account.
type DockerRegistryRef struct {
	AccountName string   `yaml:"accountName"`
	Namespaces  []string `yaml:"namespaces,omitempty"`
}

func (*KubernetesAccount) Kind() Kind { return KindKubernetesAccount }

func (a *KubernetesAccount) NodeName() string { return a.Name }

func (a *KubernetesAccount) AccountName() string { return a.Name }

func (a *KubernetesAccount) LocalFiles() []*string { return []*string{&a.KubeconfigFile} }

func (a *KubernetesAccount) Secrets() []SecretField {
	return []SecretField{{Name: "kubeconfigFile", Value: &a.KubeconfigFile, File: true}}
}

// AwsProvider manages AWS accounts.
type AwsProvider struct {
	nodeBase     `yaml:"-"`
	ProviderBase `yaml:",inline"`

	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`

	AccountList *NodeList[*AwsAccount] `yaml:"accounts"`
}

func (*AwsProvider) Kind() Kind { return KindAwsProvider }

func (*AwsProvider) NodeName() string { return "aws" }

func (p *AwsProvider) slots() []slot { return []slot{bind("accounts", &p.AccountList)} }

func (p *AwsProvider) Children() []Node { return slotChildren(p.slots()) }

func (p *AwsProvider) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

func (p *AwsProvider) Accounts() []Account { return accountsOf(p.AccountList) }

func (p *AwsProvider) Secrets() []SecretField {
	return []SecretField{{Name: "secretAccessKey", Value: &p.SecretAccessKey}}
}

// AwsAccount is an AWS account reached by assuming a role.
type AwsAccount struct {
	leaf `yaml:"-"`

	Name       string   `yaml:"name"`
	AccountID  string   `yaml:"accountId"`
	AssumeRole string   `yaml:"assumeRole,omitempty"`
	Profile    string   `yaml:"profile,omitempty"`
	Regions    []string `yaml:"regions,omitempty"`
}

func (*AwsAccount) Kind() Kind { return KindAwsAccount }

func (a *AwsAccount) NodeName() string { return a.Name }

func (a *AwsAccount) AccountName() string { return a.Name }

// GoogleProvider manages Google Cloud accounts.
type GoogleProvider struct {
	nodeBase     `yaml:"-"`
	ProviderBase `yaml:",inline"`

	AccountList *NodeList[*GoogleAccount] `yaml:"accounts"`
}

func (*GoogleProvider) Kind() Kind { return KindGoogleProvider }

func (*GoogleProvider) NodeName() string { return "google" }

func (p *GoogleProvider) slots() []slot { return []slot{bind("accounts", &p.AccountList)} }

func (p *GoogleProvider) Children() []Node { return slotChildren(p.slots()) }

func (p *GoogleProvider) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

func (p *GoogleProvider) Accounts() []Account { return accountsOf(p.AccountList) }

// GoogleAccount is a Google Cloud project.
type GoogleAccount struct {
	leaf `yaml:"-"`

	Name     string   `yaml:"name"`
	Project  string   `yaml:"project"`
	JSONPath string   `yaml:"jsonPath,omitempty"`
	Regions  []string `yaml:"regions,omitempty"`
}

func (*GoogleAccount) Kind() Kind { return KindGoogleAccount }

func (a *GoogleAccount) NodeName() string { return a.Name }

func (a *GoogleAccount) AccountName() string { return a.Name }

func (a *GoogleAccount) LocalFiles() []*string { return []*string{&a.JSONPath} }

func (a *GoogleAccount) Secrets() []SecretField {
	return []SecretField{{Name: "jsonPath", Value: &a.JSONPath, File: true}}
}

// DockerRegistryProvider manages docker registry accounts.
type DockerRegistryProvider struct {
	nodeBase     `yaml:"-"`
	ProviderBase `yaml:",inline"`

	AccountList *NodeList[*DockerRegistryAccount] `yaml:"accounts"`
}

func (*DockerRegistryProvider) Kind() Kind { return KindDockerRegistry }

func (*DockerRegistryProvider) NodeName() string { return "dockerRegistry" }

func (p *DockerRegistryProvider) slots() []slot { return []slot{bind("accounts", &p.AccountList)} }

func (p *DockerRegistryProvider) Children() []Node { return slotChildren(p.slots()) }

func (p *DockerRegistryProvider) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

func (p *DockerRegistryProvider) Accounts() []Account { return accountsOf(p.AccountList) }

// DockerRegistryAccount is a docker registry indexed by the platform.
type DockerRegistryAccount struct {
	leaf `yaml:"-"`

	Name                 string   `yaml:"name"`
	Address              string   `yaml:"address"`
	Username             string   `yaml:"username,omitempty"`
	Password             string   `yaml:"password,omitempty"`
	PasswordFile         string   `yaml:"passwordFile,omitempty"`
	Email                string   `yaml:"email,omitempty"`
	Repositories         []string `yaml:"repositories,omitempty"`
	CacheIntervalSeconds int      `yaml:"cacheIntervalSeconds,omitempty"`
}

func (*DockerRegistryAccount) Kind() Kind { return KindDockerRegistryAccount }

func (a *DockerRegistryAccount) NodeName() string { return a.Name }

func (a *DockerRegistryAccount) AccountName() string { return a.Name }

func (a *DockerRegistryAccount) LocalFiles() []*string { return []*string{&a.PasswordFile} }

func (a *DockerRegistryAccount) Secrets() []SecretField {
	return []SecretField{
		{Name: "password", Value: &a.Password},
		{Name: "passwordFile", Value: &a.PasswordFile, File: true},
	}
}

func accountsOf[T Account](l *NodeList[T]) []Account {
	if l == nil {
		return nil
	}
	out := make([]Account, 0, l.Len())
	for _, a := range l.All() {
		out = append(out, a)
	}
	return out
}

func (p *KubernetesProvider) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *KubernetesProvider) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}

func (p *AwsProvider) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *AwsProvider) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}

func (p *GoogleProvider) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *GoogleProvider) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}

func (p *DockerRegistryProvider) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *DockerRegistryProvider) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}
