package types

import (
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration document.
type Config struct {
	nodeBase `yaml:"-"`

	// CurrentDeployment records the caller's default deployment. The core
	// never reads it implicitly; callers pass the deployment name.
	CurrentDeployment string                     `yaml:"currentDeployment"`
	Deployments       []*DeploymentConfiguration `yaml:"deploymentConfigurations"`
}

// NewConfig returns a document with a single empty deployment.
func NewConfig(deployment string) *Config {
	c := &Config{CurrentDeployment: deployment}
	if deployment != "" {
		_ = c.Add(NewDeploymentConfiguration(deployment))
	}
	return c
}

func (*Config) Kind() Kind { return KindConfig }

func (*Config) NodeName() string { return "" }

func (c *Config) Children() []Node { return c.Items() }

func (c *Config) Items() []Node {
	out := make([]Node, len(c.Deployments))
	for i, d := range c.Deployments {
		out[i] = d
	}
	return out
}

func (c *Config) Child(name string) (Node, bool) {
	d, err := c.Deployment(name)
	if err != nil {
		return nil, false
	}
	return d, true
}

// Deployment returns the named deployment.
func (c *Config) Deployment(name string) (*DeploymentConfiguration, error) {
	for _, d := range c.Deployments {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, NotFoundf("deployment %q not found", name)
}

// Add appends a deployment. Deployments have no parent.
func (c *Config) Add(n Node) error {
	d, ok := n.(*DeploymentConfiguration)
	if !ok || d == nil {
		return IllegalArgumentf("the document root only accepts deployment nodes")
	}
	if d.Name == "" {
		return IllegalArgumentf("deployments require a name")
	}
	if _, err := c.Deployment(d.Name); err == nil {
		return Duplicatef("deployment %q already exists", d.Name)
	}
	c.Deployments = append(c.Deployments, d)
	d.setParent(nil)
	link(d)
	return nil
}

// Remove deletes the named deployment.
func (c *Config) Remove(name string) (Node, error) {
	for i, d := range c.Deployments {
		if d.Name == name {
			c.Deployments = append(c.Deployments[:i:i], c.Deployments[i+1:]...)
			return d, nil
		}
	}
	return nil, NotFoundf("deployment %q not found", name)
}

// Replace swaps the named deployment for n.
func (c *Config) Replace(name string, n Node) error {
	d, ok := n.(*DeploymentConfiguration)
	if !ok || d == nil {
		return IllegalArgumentf("the document root only accepts deployment nodes")
	}
	if d.Name != name {
		return IllegalArgumentf("cannot store deployment %q under name %q", d.Name, name)
	}
	for i, existing := range c.Deployments {
		if existing.Name == name {
			c.Deployments[i] = d
			d.setParent(nil)
			link(d)
			return nil
		}
	}
	return NotFoundf("deployment %q not found", name)
}

// DecodeChild decodes a new deployment.
func (c *Config) DecodeChild(_ string, value *yaml.Node) (Node, error) {
	d := &DeploymentConfiguration{}
	if err := value.Decode(d); err != nil {
		return nil, IllegalArgumentf("decode deployment: %v", err)
	}
	return d, nil
}

// Relink restores parent pointers and allocates missing sections. It must
// be called after decoding a document.
func (c *Config) Relink() {
	for _, d := range c.Deployments {
		d.setParent(nil)
		link(d)
	}
}

// Clone deep-copies the document through its YAML form.
func Clone(c *Config) (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, Fatalf(err, "clone document")
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, Fatalf(err, "clone document")
	}
	out.Relink()
	return out, nil
}
