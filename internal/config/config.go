package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".sonarteams"
	DefaultConfigFile = "config.json"
	EnvPrefix         = "SONARTEAMS"
)

// DefaultReportsMetrics is rendered when no metric list is configured.
var DefaultReportsMetrics = []string{
	"bugs",
	"vulnerabilities",
	"code_smells",
	"coverage",
	"duplicated_lines_density",
}

// Load reads the config file and returns a populated Config. A missing file is
// not an error; defaults and SONARTEAMS_* environment variables still apply.
// The configPath flag may override the default location.
func Load(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigType("json")
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file exists but is malformed.
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	path, err := ConfigPath(configPath)
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Redacted returns a copy of cfg with secrets masked, for display.
func Redacted(cfg Config) Config {
	if cfg.Sonar.Token != "" {
		cfg.Sonar.Token = "***"
	}
	if cfg.Gateway.Secret != "" {
		cfg.Gateway.Secret = "***"
	}
	if cfg.Notifier.WebhookURL != "" {
		cfg.Notifier.WebhookURL = redactPath(cfg.Notifier.WebhookURL)
	}
	cfg.Notifier.ReportsMetrics = append([]string(nil), cfg.Notifier.ReportsMetrics...)
	return cfg
}

// redactPath keeps scheme and host; Teams webhook paths embed credentials.
func redactPath(raw string) string {
	i := strings.Index(raw, "://")
	if i < 0 {
		return "***"
	}
	rest := raw[i+3:]
	if j := strings.Index(rest, "/"); j >= 0 {
		return raw[:i+3] + rest[:j] + "/***"
	}
	return raw
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("notifier.enabled", false)
	v.SetDefault("notifier.post_conditions", LabelAlways)
	v.SetDefault("notifier.show_author", false)
	v.SetDefault("notifier.reports_metrics", DefaultReportsMetrics)
	v.SetDefault("notifier.webhook_url", "")
	v.SetDefault("notifier.timeout_seconds", 10)

	v.SetDefault("sonar.url", "")
	v.SetDefault("sonar.token", "")
	v.SetDefault("sonar.fetch_measures", false)

	v.SetDefault("gateway.addr", "127.0.0.1:6090")
	v.SetDefault("gateway.secret", "")
	v.SetDefault("gateway.rate_limit", 5.0)
	v.SetDefault("gateway.burst", 10)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
