package types

import "gopkg.in/yaml.v3"

// DeploymentType selects how services are installed.
type DeploymentType string

const (
	DeploymentLocalDebian DeploymentType = "LocalDebian"
	DeploymentDistributed DeploymentType = "Distributed"
)

// DeploymentEnvironment describes where and how services run.
type DeploymentEnvironment struct {
	nodeBase `yaml:"-"`

	Type        DeploymentType `yaml:"type,omitempty"`
	AccountName string         `yaml:"accountName,omitempty"`
	Location    string         `yaml:"location,omitempty"`
	HaServices  *HaServices    `yaml:"haServices"`
	Vault       *Vault         `yaml:"vault"`
}

func (*DeploymentEnvironment) Kind() Kind { return KindDeploymentEnvironment }

func (*DeploymentEnvironment) NodeName() string { return "deploymentEnvironment" }

func (e *DeploymentEnvironment) slots() []slot {
	return []slot{bind("haServices", &e.HaServices), bind("vault", &e.Vault)}
}

func (e *DeploymentEnvironment) Children() []Node { return slotChildren(e.slots()) }

func (e *DeploymentEnvironment) Child(name string) (Node, bool) { return slotChild(e.slots(), name) }

// EffectiveType defaults an unset type to LocalDebian.
func (e *DeploymentEnvironment) EffectiveType() DeploymentType {
	if e.Type == "" {
		return DeploymentLocalDebian
	}
	return e.Type
}

// HaServices splits selected services into read/write replicas.
type HaServices struct {
	leaf `yaml:"-"`

	Clouddriver HaService `yaml:"clouddriver"`
	Echo        HaService `yaml:"echo"`
}

// HaService toggles high availability for one service.
type HaService struct {
	Enabled bool `yaml:"enabled"`
}

func (*HaServices) Kind() Kind { return KindHaServices }

func (*HaServices) NodeName() string { return "haServices" }

// Vault configures the secret store services read at runtime.
type Vault struct {
	leaf `yaml:"-"`

	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
	Token   string `yaml:"token,omitempty"`
}

func (*Vault) Kind() Kind { return KindVault }

func (*Vault) NodeName() string { return "vault" }

func (v *Vault) Secrets() []SecretField {
	return []SecretField{{Name: "token", Value: &v.Token}}
}

func (e *DeploymentEnvironment) Replace(name string, n Node) error { return slotReplace(e, e.slots(), name, n) }

func (e *DeploymentEnvironment) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(e, e.slots(), name, value)
}
