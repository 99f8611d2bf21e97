package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/driveflow/driveflow.yaml",
		filepath.Join(xdg.ConfigHome, "driveflow", "driveflow.yaml"),
		"driveflow.yaml",
	}

	if envPath := os.Getenv("DRIVEFLOW_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order (each overrides the previous):
// /etc/driveflow/driveflow.yaml < $XDG_CONFIG_HOME/driveflow/driveflow.yaml < ./driveflow.yaml < $DRIVEFLOW_CONFIG
func Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range searchPaths() {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables have higher priority than YAML config values.
func applyEnvOverrides(cfg *Config) {
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.Google.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Google.ClientSecret = secret
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// isLoopback reports whether host only accepts local connections.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if !isLoopback(cfg.Server.Host) {
		return fmt.Errorf("server.host must be a loopback address, got %q: the API and /mcp have no network authentication", cfg.Server.Host)
	}

	switch cfg.Database.Driver {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("database.driver must be sqlite or badger, got %q", cfg.Database.Driver)
	}

	if cfg.Google.CalendarID == "" {
		return fmt.Errorf("google.calendar_id must not be empty")
	}

	if !strings.HasSuffix(cfg.Google.APIEndpoint, "/") {
		cfg.Google.APIEndpoint += "/"
	}

	if cfg.Sync.RequestTimeout <= 0 {
		return fmt.Errorf("sync.request_timeout must be positive")
	}

	if cfg.Sync.ConnectRetryDelay < 0 {
		cfg.Sync.ConnectRetryDelay = 0
	}
	if cfg.Sync.ConnectRetryDelay > 10*time.Second {
		return fmt.Errorf("sync.connect_retry_delay must be at most 10s, got %s", cfg.Sync.ConnectRetryDelay)
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
		}
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Server.LogFile = ExpandHome(cfg.Server.LogFile)

	return nil
}
