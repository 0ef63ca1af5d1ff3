// Package config provides configuration management for the reconciler.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/roundtrip/internal/models"
	"github.com/eddiefleurent/roundtrip/internal/normalize"
)

const (
	// defaultLogLevel is used when environment.log_level is unset.
	defaultLogLevel = "info"
	// defaultDashboardPort is used when dashboard.port is unset.
	defaultDashboardPort = 8080
)

// envPrefix namespaces environment variable overrides, e.g.
// ROUNDTRIP_LOG_LEVEL and ROUNDTRIP_DASHBOARD_PORT.
const envPrefix = "roundtrip"

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Sources     []SourceConfig    `yaml:"sources"`
}

// EnvironmentConfig defines runtime environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"` // debug | info | warn | error
}

// DashboardConfig defines the optional result dashboard server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"DASHBOARD_ENABLED"`
	Port      int    `yaml:"port" envconfig:"DASHBOARD_PORT"`
	AuthToken string `yaml:"auth_token" envconfig:"DASHBOARD_AUTH_TOKEN"`
}

// SourceConfig declares one broker export source.
type SourceConfig struct {
	Name string `yaml:"name"`
	// MatchPolicy is "fifo" or "lifo". Sources whose exports list same-day
	// closes before same-day opens require lifo.
	MatchPolicy string `yaml:"match_policy"`
	// SuspiciousAmount flags rows whose magnitude meets or exceeds it;
	// zero disables the check.
	SuspiciousAmount float64           `yaml:"suspicious_amount"`
	Columns          ColumnsConfig     `yaml:"columns"`
	Codes            map[string]string `yaml:"codes"`
}

// ColumnsConfig names the export's columns for each required field.
type ColumnsConfig struct {
	Symbol     string `yaml:"symbol"`
	Date       string `yaml:"date"`
	Code       string `yaml:"code"`
	Quantity   string `yaml:"quantity"`
	Amount     string `yaml:"amount"`
	OptionType string `yaml:"option_type"`
	Strike     string `yaml:"strike"`
	Expiry     string `yaml:"expiry"`
}

// Load reads and parses the configuration file from the specified path,
// applies environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Environment overrides win over file values
	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	c.normalizeDefaults()

	if _, err := logrus.ParseLevel(c.Environment.LogLevel); err != nil {
		return fmt.Errorf("environment.log_level invalid: %w", err)
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port < 1 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be in [1,65535]")
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		if _, err := models.ParseMatchPolicy(src.MatchPolicy); err != nil {
			return fmt.Errorf("sources[%d].match_policy: %w", i, err)
		}
		if src.SuspiciousAmount < 0 {
			return fmt.Errorf("sources[%d].suspicious_amount must be >= 0", i)
		}
		if err := src.Columns.validate(); err != nil {
			return fmt.Errorf("sources[%d].columns: %w", i, err)
		}
	}

	return nil
}

func (c *ColumnsConfig) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"symbol", c.Symbol},
		{"date", c.Date},
		{"code", c.Code},
		{"quantity", c.Quantity},
		{"amount", c.Amount},
		{"option_type", c.OptionType},
		{"strike", c.Strike},
		{"expiry", c.Expiry},
	}
	for _, col := range required {
		if strings.TrimSpace(col.value) == "" {
			return fmt.Errorf("%s is required", col.name)
		}
	}
	return nil
}

// normalizeDefaults sets default values for unset fields.
func (c *Config) normalizeDefaults() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = defaultLogLevel
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = defaultDashboardPort
	}
}

// LogLevel returns the configured logrus level, falling back to info when
// the value fails to parse (Validate rejects that case at load time).
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Environment.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Profile converts the source declaration into the normalizer's profile.
func (s SourceConfig) Profile() (normalize.SourceProfile, error) {
	policy, err := models.ParseMatchPolicy(s.MatchPolicy)
	if err != nil {
		return normalize.SourceProfile{}, fmt.Errorf("source %q: %w", s.Name, err)
	}

	return normalize.SourceProfile{
		Name: s.Name,
		Columns: normalize.ColumnMapping{
			Symbol:     s.Columns.Symbol,
			Date:       s.Columns.Date,
			Code:       s.Columns.Code,
			Quantity:   s.Columns.Quantity,
			Amount:     s.Columns.Amount,
			OptionType: s.Columns.OptionType,
			Strike:     s.Columns.Strike,
			Expiry:     s.Columns.Expiry,
		},
		Codes:            s.Codes,
		Policy:           policy,
		SuspiciousAmount: decimal.NewFromFloat(s.SuspiciousAmount),
	}, nil
}

// Profiles converts every configured source.
func (c *Config) Profiles() ([]normalize.SourceProfile, error) {
	profiles := make([]normalize.SourceProfile, 0, len(c.Sources))
	for _, src := range c.Sources {
		p, err := src.Profile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
