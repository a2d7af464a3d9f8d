package types

import "gopkg.in/yaml.v3"

// Notifications groups notification channels.
type Notifications struct {
	nodeBase `yaml:"-"`

	Slack *SlackNotification `yaml:"slack"`
	Email *EmailNotification `yaml:"email"`
}

func (*Notifications) Kind() Kind { return KindNotifications }

func (*Notifications) NodeName() string { return "notifications" }

func (n *Notifications) slots() []slot {
	return []slot{bind("slack", &n.Slack), bind("email", &n.Email)}
}

func (n *Notifications) Children() []Node { return slotChildren(n.slots()) }

func (n *Notifications) Child(name string) (Node, bool) { return slotChild(n.slots(), name) }

// SlackNotification posts pipeline events to Slack.
type SlackNotification struct {
	leaf `yaml:"-"`

	Enabled bool   `yaml:"enabled"`
	BotName string `yaml:"botName,omitempty"`
	Token   string `yaml:"token,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

func (*SlackNotification) Kind() Kind { return KindSlack }

func (*SlackNotification) NodeName() string { return "slack" }

func (s *SlackNotification) Secrets() []SecretField {
	return []SecretField{{Name: "token", Value: &s.Token}}
}

// EmailNotification sends pipeline events over SMTP.
type EmailNotification struct {
	leaf `yaml:"-"`

	Enabled  bool   `yaml:"enabled"`
	From     string `yaml:"from,omitempty"`
	SMTPHost string `yaml:"smtpHost,omitempty"`
	SMTPPort int    `yaml:"smtpPort,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

func (*EmailNotification) Kind() Kind { return KindEmail }

func (*EmailNotification) NodeName() string { return "email" }

func (e *EmailNotification) Secrets() []SecretField {
	return []SecretField{{Name: "password", Value: &e.Password}}
}

func (ns *Notifications) Replace(name string, n Node) error { return slotReplace(ns, ns.slots(), name, n) }

func (n *Notifications) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(n, n.slots(), name, value)
}
