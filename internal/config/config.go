package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rzbill/keel/pkg/backup"
	"github.com/rzbill/keel/pkg/crypto"
	"github.com/rzbill/keel/pkg/profile"
)

// EnvPrefix prefixes environment overrides, e.g. KEEL_BASE_DIR.
const EnvPrefix = "KEEL"

// DefaultMasterKeyEnv holds the base64 master key for the env KEK source.
const DefaultMasterKeyEnv = "KEEL_MASTER_KEY"

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

type KEKConfig struct {
	Source string `mapstructure:"source" yaml:"source"`
	File   string `mapstructure:"file" yaml:"file"`
	Env    string `mapstructure:"env" yaml:"env"`
	// PassphraseEnv names the variable holding the passphrase when Source
	// is "passphrase".
	PassphraseEnv string `mapstructure:"passphrase_env" yaml:"passphrase_env"`
}

type Secrets struct {
	KEK KEKConfig `mapstructure:"kek" yaml:"kek"`
}

type Generate struct {
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

type Backup struct {
	Excludes []string `mapstructure:"excludes" yaml:"excludes"`
}

type Metrics struct {
	Address string `mapstructure:"address" yaml:"address"`
}

type Revisions struct {
	Limit int `mapstructure:"limit" yaml:"limit"`
}

type Validation struct {
	// RemoteChecks enables checks that call external APIs, such as
	// verifying ECR repositories.
	RemoteChecks bool `mapstructure:"remote_checks" yaml:"remote_checks"`
}

type Config struct {
	BaseDir    string     `mapstructure:"base_dir" yaml:"base_dir"`
	Log        Log        `mapstructure:"log" yaml:"log"`
	Secrets    Secrets    `mapstructure:"secrets" yaml:"secrets"`
	Generate   Generate   `mapstructure:"generate" yaml:"generate"`
	Backup     Backup     `mapstructure:"backup" yaml:"backup"`
	Metrics    Metrics    `mapstructure:"metrics" yaml:"metrics"`
	Revisions  Revisions  `mapstructure:"revisions" yaml:"revisions"`
	Validation Validation `mapstructure:"validation" yaml:"validation"`
}

func Default() *Config {
	return &Config{
		BaseDir:   defaultBaseDir(),
		Log:       Log{Level: "info", Format: "text"},
		Secrets:   Secrets{KEK: KEKConfig{Source: string(crypto.KEKSourceFile), Env: DefaultMasterKeyEnv}},
		Generate:  Generate{HistoryLimit: profile.DefaultHistoryLimit},
		Backup:    Backup{Excludes: append([]string(nil), backup.DefaultExcludes...)},
		Metrics:   Metrics{Address: "127.0.0.1:9464"},
		Revisions: Revisions{Limit: 50},
	}
}

func defaultBaseDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./.keel"
	}
	return filepath.Join(home, ".keel")
}

// KEKFile returns the key file path, defaulting to <base>/.keys/master.key.
func (c *Config) KEKFile() string {
	if c.Secrets.KEK.File != "" {
		return c.Secrets.KEK.File
	}
	return filepath.Join(c.BaseDir, ".keys", "master.key")
}

func (c *Config) KEKOptions() crypto.KEKOptions {
	source := crypto.KEKSource(c.Secrets.KEK.Source)
	envVar := c.Secrets.KEK.Env
	if source == crypto.KEKSourcePassphrase {
		envVar = c.Secrets.KEK.PassphraseEnv
	}
	return crypto.KEKOptions{
		Source:   source,
		FilePath: c.KEKFile(),
		EnvVar:   envVar,
		// A missing key file is created on first use so a fresh base
		// directory works without setup.
		GenerateIfMissing: source == crypto.KEKSourceGenerated || source == crypto.KEKSourceFile,
	}
}

// Load reads path, or keel.yaml from the working directory, $HOME/.keel
// and /etc/keel when path is empty. KEEL_* variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("keel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".keel"))
		}
		v.AddConfigPath("/etc/keel/")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || path != "" {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("base_dir", cfg.BaseDir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("secrets.kek.source", cfg.Secrets.KEK.Source)
	v.SetDefault("secrets.kek.file", cfg.Secrets.KEK.File)
	v.SetDefault("secrets.kek.env", cfg.Secrets.KEK.Env)
	v.SetDefault("secrets.kek.passphrase_env", cfg.Secrets.KEK.PassphraseEnv)
	v.SetDefault("generate.history_limit", cfg.Generate.HistoryLimit)
	v.SetDefault("backup.excludes", cfg.Backup.Excludes)
	v.SetDefault("metrics.address", cfg.Metrics.Address)
	v.SetDefault("revisions.limit", cfg.Revisions.Limit)
	v.SetDefault("validation.remote_checks", cfg.Validation.RemoteChecks)
}
