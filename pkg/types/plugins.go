package types

import "gopkg.in/yaml.v3"

// Plugins configures service extensions.
type Plugins struct {
	nodeBase `yaml:"-"`

	Enabled            bool                         `yaml:"enabled"`
	DownloadingEnabled bool                         `yaml:"downloadingEnabled"`
	Plugins            *NodeList[*Plugin]           `yaml:"plugins"`
	Repositories       *NodeList[*PluginRepository] `yaml:"repositories"`
}

func (*Plugins) Kind() Kind { return KindPlugins }

func (*Plugins) NodeName() string { return "plugins" }

func (p *Plugins) slots() []slot {
	return []slot{bind("plugins", &p.Plugins), bind("repositories", &p.Repositories)}
}

func (p *Plugins) Children() []Node { return slotChildren(p.slots()) }

func (p *Plugins) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

// Plugin is a single extension bundle, identified by name.
type Plugin struct {
	leaf `yaml:"-"`

	Name               string                 `yaml:"name"`
	Enabled            bool                   `yaml:"enabled"`
	Version            string                 `yaml:"version,omitempty"`
	UIResourceLocation string                 `yaml:"uiResourceLocation,omitempty"`
	Extensions         map[string]interface{} `yaml:"extensions,omitempty"`
}

func (*Plugin) Kind() Kind { return KindPlugin }

func (p *Plugin) NodeName() string { return p.Name }

// PluginRepository is a plugin index URL.
type PluginRepository struct {
	leaf `yaml:"-"`

	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func (*PluginRepository) Kind() Kind { return KindPluginRepository }

func (r *PluginRepository) NodeName() string { return r.Name }

func (p *Plugins) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *Plugins) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}
