package types

import "gopkg.in/yaml.v3"

// DefaultVersion is the platform version assigned to new deployments.
const DefaultVersion = "1.35.0"

// DeploymentConfiguration aggregates everything needed to deploy one
// installation of the platform.
type DeploymentConfiguration struct {
	nodeBase `yaml:"-"`

	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Timezone string `yaml:"timezone"`

	Providers             *Providers             `yaml:"providers"`
	Ci                    *Ci                    `yaml:"ci"`
	Notifications         *Notifications         `yaml:"notifications"`
	Security              *Security              `yaml:"security"`
	PersistentStorage     *PersistentStorage     `yaml:"persistentStorage"`
	DeploymentEnvironment *DeploymentEnvironment `yaml:"deploymentEnvironment"`
	Canary                *Canary                `yaml:"canary"`
	Webhook               *Webhook               `yaml:"webhook"`
	Plugins               *Plugins               `yaml:"plugins"`
}

// NewDeploymentConfiguration creates a deployment with every section
// allocated.
func NewDeploymentConfiguration(name string) *DeploymentConfiguration {
	d := &DeploymentConfiguration{Name: name, Version: DefaultVersion, Timezone: "America/Los_Angeles"}
	link(d)
	return d
}

func (*DeploymentConfiguration) Kind() Kind { return KindDeployment }

func (d *DeploymentConfiguration) NodeName() string { return d.Name }

func (d *DeploymentConfiguration) slots() []slot {
	return []slot{
		bind("providers", &d.Providers),
		bind("ci", &d.Ci),
		bind("notifications", &d.Notifications),
		bind("security", &d.Security),
		bind("persistentStorage", &d.PersistentStorage),
		bind("deploymentEnvironment", &d.DeploymentEnvironment),
		bind("canary", &d.Canary),
		bind("webhook", &d.Webhook),
		bind("plugins", &d.Plugins),
	}
}

func (d *DeploymentConfiguration) Children() []Node { return slotChildren(d.slots()) }

func (d *DeploymentConfiguration) Child(name string) (Node, bool) { return slotChild(d.slots(), name) }

func (d *DeploymentConfiguration) Replace(name string, n Node) error {
	return slotReplace(d, d.slots(), name, n)
}

func (d *DeploymentConfiguration) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(d, d.slots(), name, value)
}
