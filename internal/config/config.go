package config

import (
	"fmt"
	"os"

	"deploykit/internal/app"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level structure of deploykit.yaml
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Transporter TransporterConfig `yaml:"transporter"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Apps        []AppConfig       `yaml:"apps"`
}

// TransporterConfig locates the transporter binary
type TransporterConfig struct {
	Path   string `yaml:"path"`   // Binary path, located automatically when empty
	Remote string `yaml:"remote"` // SSH alias of a macOS host to run on
}

// CredentialsConfig selects the credential providers, tried in this order:
// username, environment, AWS Secrets Manager, interactive prompt
type CredentialsConfig struct {
	Username    string `yaml:"username"`
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
	AWSSecretID string `yaml:"aws_secret_id"`
	AWSRegion   string `yaml:"aws_region"`
	Prompt      *bool  `yaml:"prompt"` // Defaults to true
}

// AppConfig maps an Apple ID to its local metadata directory
type AppConfig struct {
	AppleID     string `yaml:"apple_id"`
	MetadataDir string `yaml:"metadata_dir"`
}

// PromptEnabled reports whether the interactive prompt may be used
func (c CredentialsConfig) PromptEnabled() bool {
	return c.Prompt == nil || *c.Prompt
}

// ParseConfig parses YAML content into a Config struct
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads and parses path. A missing file yields an empty config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}
	return ParseConfig(data)
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	if c.Credentials.AWSRegion != "" && c.Credentials.AWSSecretID == "" {
		return fmt.Errorf("credentials.aws_region set without aws_secret_id")
	}

	seen := make(map[string]bool)
	for i, a := range c.Apps {
		if a.AppleID == "" {
			return fmt.Errorf("app #%d missing apple_id", i)
		}
		if a.MetadataDir == "" {
			return fmt.Errorf("app %s missing metadata_dir", a.AppleID)
		}
		if seen[a.AppleID] {
			return fmt.Errorf("app %s defined twice", a.AppleID)
		}
		seen[a.AppleID] = true
	}
	return nil
}

// App returns the descriptor for appleID, or nil if it is not configured
func (c *Config) App(appleID string) *app.App {
	for _, a := range c.Apps {
		if a.AppleID == appleID {
			return &app.App{AppleID: a.AppleID, MetadataDir: a.MetadataDir}
		}
	}
	return nil
}
