package types

// Canary configures automated canary analysis.
type Canary struct {
	leaf `yaml:"-"`

	Enabled       bool   `yaml:"enabled"`
	DefaultJudge  string `yaml:"defaultJudge,omitempty"`
	StagesEnabled bool   `yaml:"stagesEnabled"`
	// DefaultMetricsStore names the metrics source used by judges.
	DefaultMetricsStore string `yaml:"defaultMetricsStore,omitempty"`
}

func (*Canary) Kind() Kind { return KindCanary }

func (*Canary) NodeName() string { return "canary" }
