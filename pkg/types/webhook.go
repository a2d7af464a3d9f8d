package types

import "gopkg.in/yaml.v3"

// Webhook configures outbound webhook stages.
type Webhook struct {
	nodeBase `yaml:"-"`

	Trust *WebhookTrust `yaml:"trust"`
}

func (*Webhook) Kind() Kind { return KindWebhook }

func (*Webhook) NodeName() string { return "webhook" }

func (w *Webhook) slots() []slot { return []slot{bind("trust", &w.Trust)} }

func (w *Webhook) Children() []Node { return slotChildren(w.slots()) }

func (w *Webhook) Child(name string) (Node, bool) { return slotChild(w.slots(), name) }

// WebhookTrust supplies a custom trust store for webhook TLS.
type WebhookTrust struct {
	leaf `yaml:"-"`

	Enabled            bool   `yaml:"enabled"`
	TrustStore         string `yaml:"trustStore,omitempty"`
	TrustStorePassword string `yaml:"trustStorePassword,omitempty"`
}

func (*WebhookTrust) Kind() Kind { return KindWebhookTrust }

func (*WebhookTrust) NodeName() string { return "trust" }

func (t *WebhookTrust) LocalFiles() []*string { return []*string{&t.TrustStore} }

func (t *WebhookTrust) Secrets() []SecretField {
	return []SecretField{{Name: "trustStorePassword", Value: &t.TrustStorePassword}}
}

func (w *Webhook) Replace(name string, n Node) error { return slotReplace(w, w.slots(), name, n) }

func (w *Webhook) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(w, w.slots(), name, value)
}
