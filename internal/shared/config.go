package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Refresh policies for last-page resynchronisation before navigation.
const (
	RefreshEvery = "every"
	RefreshLast  = "last"
	RefreshNever = "never"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Client      ClientConfig       `toml:"client"`
	Navigation  NavigationConfig   `toml:"navigation"`
	Database    DatabaseConfig     `toml:"database"`
	Export      ExportConfig       `toml:"export"`
	DevServer   DevServerConfig    `toml:"devserver"`
	Collections []CollectionConfig `toml:"collections"`
}

// ClientConfig contains settings for the HTTP client talking to the backend.
type ClientConfig struct {
	BaseURL        string  `toml:"base_url"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the client timeout as a [time.Duration].
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NavigationConfig controls how navigators resync their last page.
type NavigationConfig struct {
	Refresh  string `toml:"refresh"`
	PageSize int    `toml:"page_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ExportConfig contains settings for export downloads.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
	Workers   int    `toml:"workers"`
}

// DevServerConfig contains settings for the in-memory development backend.
type DevServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	PageSize int    `toml:"page_size"`
	Rows     int    `toml:"rows"`
}

// Addr returns the host:port listen address.
func (d DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// CollectionConfig describes one server-backed paged collection.
type CollectionConfig struct {
	Name          string            `toml:"name"`
	PageEndpoint  string            `toml:"page_endpoint"`
	CountEndpoint string            `toml:"count_endpoint"`
	Container     string            `toml:"container"`
	Params        map[string]string `toml:"params"`
}

// Validate checks the configuration for values the rest of the application cannot work with.
func (c *Config) Validate() error {
	switch c.Navigation.Refresh {
	case RefreshEvery, RefreshLast, RefreshNever:
	default:
		return fmt.Errorf("%w: unknown refresh policy %q", ErrInvalidConfig, c.Navigation.Refresh)
	}

	if c.Navigation.PageSize <= 0 {
		return fmt.Errorf("%w: navigation.page_size must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" || col.PageEndpoint == "" {
			return fmt.Errorf("%w: collections need a name and page_endpoint", ErrInvalidConfig)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidConfig, col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}

// Collection looks up a configured collection by name.
func (c *Config) Collection(name string) (CollectionConfig, bool) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return CollectionConfig{}, false
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
