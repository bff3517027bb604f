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

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Tracker     TrackerConfig     `toml:"tracker"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for the PKCE flow.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
//
// MigrationsDir optionally points at a directory of NNN_up.sql / NNN_down.sql
// scripts; when empty the embedded migration set is used.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	MigrationsDir string `toml:"migrations_dir"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
}

// TrackerConfig contains listening tracker settings.
type TrackerConfig struct {
	IntervalSeconds  float64 `toml:"interval_seconds"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
}

// Interval returns the polling interval as a [time.Duration].
func (t TrackerConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds * float64(time.Second))
}

// Tolerance returns the anti-cheat tolerance as a [time.Duration].
func (t TrackerConfig) Tolerance() time.Duration {
	return time.Duration(t.ToleranceSeconds * float64(time.Second))
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
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
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
