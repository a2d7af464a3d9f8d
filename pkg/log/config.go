package log

import (
	"fmt"
	"strings"
)

// Config defines logging configuration.
type Config struct {
	// Level sets the minimum log level
	Level string `yaml:"level" mapstructure:"level"`

	// Format sets the output format (json, text)
	Format string `yaml:"format" mapstructure:"format"`

	// File, when set, adds a file output next to the console output.
	File string `yaml:"file" mapstructure:"file"`

	// MaxFileSize rotates the log file once it grows past this many bytes.
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"`

	// EnableCaller enables adding caller information to logs
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`

	// RedactedFields lists field name markers whose values are masked.
	RedactedFields []string `yaml:"redacted_fields" mapstructure:"redacted_fields"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "text",
		MaxFileSize: 10 << 20,
	}
}

// ApplyConfig creates a logger from a configuration.
func ApplyConfig(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	options := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(config.Format) {
	case "json":
		options = append(options, WithFormatter(&JSONFormatter{EnableCaller: config.EnableCaller}))
	case "text", "":
		options = append(options, WithFormatter(&TextFormatter{EnableCaller: config.EnableCaller}))
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	options = append(options, WithOutput(NewConsoleOutput(WithStderr())))
	if config.File != "" {
		options = append(options, WithOutput(NewFileOutput(config.File, config.MaxFileSize)))
	}

	// Secrets are always masked; configured markers extend the defaults.
	options = append(options, WithHook(NewRedactionHook()))
	if len(config.RedactedFields) > 0 {
		options = append(options, WithHook(NewRedactionHook(config.RedactedFields...)))
	}

	return NewLogger(options...), nil
}

// ParseLevel parses a level string into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
