package config

import (
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Config is the root configuration for DriveFlow.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Google        GoogleConfig        `yaml:"google"`
	Sync          SyncConfig          `yaml:"sync"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Operator      OperatorConfig      `yaml:"operator"`
	Timezone      string              `yaml:"timezone"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "badger"
	Path   string `yaml:"path"`
}

// GoogleConfig holds the external calendar settings. ClientID is only a
// fallback: the operator-supplied id persisted by the token manager wins.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	CalendarID   string `yaml:"calendar_id"`
	APIEndpoint  string `yaml:"api_endpoint"`
}

type SyncConfig struct {
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
	TaskHistory       int           `yaml:"task_history"`
}

type NotificationsConfig struct {
	InboxSize   int           `yaml:"inbox_size"`
	MCPDebounce time.Duration `yaml:"mcp_debounce"`
}

type OperatorConfig struct {
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8430,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(xdg.DataHome, "driveflow", "driveflow.db"),
		},
		Google: GoogleConfig{
			CalendarID:  "primary",
			APIEndpoint: "https://www.googleapis.com/calendar/v3/",
		},
		Sync: SyncConfig{
			RequestTimeout:    30 * time.Second,
			ConnectRetryDelay: 500 * time.Millisecond,
			TaskHistory:       200,
		},
		Notifications: NotificationsConfig{
			InboxSize:   50,
			MCPDebounce: 3 * time.Second,
		},
		Operator: OperatorConfig{
			Name: "Sales Manager",
		},
	}
}

// PublicBaseURL returns the externally reachable base URL of the HTTP server.
func (c *Config) PublicBaseURL() string {
	if c.Server.PublicURL != "" {
		return c.Server.PublicURL
	}
	return "http://" + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// CallbackURL is where the consent screen redirects after approval.
func (c *Config) CallbackURL() string {
	if c.Google.RedirectURL != "" {
		return c.Google.RedirectURL
	}
	return c.PublicBaseURL() + "/oauth/callback"
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
