package types

import "gopkg.in/yaml.v3"

// Ci groups continuous-integration systems.
type Ci struct {
	nodeBase `yaml:"-"`

	Jenkins *JenkinsCi `yaml:"jenkins"`
}

func (*Ci) Kind() Kind { return KindCi }

func (*Ci) NodeName() string { return "ci" }

func (c *Ci) slots() []slot { return []slot{bind("jenkins", &c.Jenkins)} }

func (c *Ci) Children() []Node { return slotChildren(c.slots()) }

func (c *Ci) Child(name string) (Node, bool) { return slotChild(c.slots(), name) }

// JenkinsCi configures Jenkins masters polled for build triggers.
type JenkinsCi struct {
	nodeBase `yaml:"-"`

	Enabled bool                      `yaml:"enabled"`
	Masters *NodeList[*JenkinsMaster] `yaml:"masters"`
}

func (*JenkinsCi) Kind() Kind { return KindJenkins }

func (*JenkinsCi) NodeName() string { return "jenkins" }

func (j *JenkinsCi) slots() []slot { return []slot{bind("masters", &j.Masters)} }

func (j *JenkinsCi) Children() []Node { return slotChildren(j.slots()) }

func (j *JenkinsCi) Child(name string) (Node, bool) { return slotChild(j.slots(), name) }

// JenkinsMaster is a single Jenkins server.
type JenkinsMaster struct {
	leaf `yaml:"-"`

	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Csrf     bool   `yaml:"csrf,omitempty"`
}

func (*JenkinsMaster) Kind() Kind { return KindJenkinsMaster }

func (m *JenkinsMaster) NodeName() string { return m.Name }

func (m *JenkinsMaster) Secrets() []SecretField {
	return []SecretField{{Name: "password", Value: &m.Password}}
}

func (c *Ci) Replace(name string, n Node) error { return slotReplace(c, c.slots(), name, n) }

func (c *Ci) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(c, c.slots(), name, value)
}

func (j *JenkinsCi) Replace(name string, n Node) error { return slotReplace(j, j.slots(), name, n) }

func (j *JenkinsCi) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(j, j.slots(), name, value)
}
