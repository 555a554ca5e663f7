package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the taskmcp server.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Git       GitConfig       `toml:"git"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
	Janitor   JanitorConfig   `toml:"janitor"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `toml:"path"` // sqlite database file
}

// GitConfig holds the coordinated repository's location and trunk branch.
type GitConfig struct {
	RepoRoot string `toml:"repo_root"`
	Trunk    string `toml:"trunk"`
}

// TransportConfig holds transport-related settings. taskmcp runs over
// stdio by default; http is available for local testing only.
type TransportConfig struct {
	Mode        string `toml:"mode"` // "stdio" (default) or "http"
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	CORSOrigins string `toml:"cors_origins"`
	AuthToken   string `toml:"auth_token"` // required bearer token in http mode; empty disables auth
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// JanitorConfig holds the optional worktree-pruning scheduler's settings.
type JanitorConfig struct {
	Enabled         bool `toml:"enabled"`          // off by default
	IntervalMinutes int  `toml:"interval_minutes"` // how often to run git worktree prune
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. TASKMCP_CONFIG environment variable
//  3. ./taskmcp.toml (current directory)
//  4. ~/.config/taskmcp/taskmcp.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:    "taskmcp",
			Version: "0.1.0",
		},
		Store: StoreConfig{
			Path: ".tasks/tasks.db",
		},
		Git: GitConfig{
			RepoRoot: ".",
			Trunk:    "main",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "21453",
			Host:        "127.0.0.1",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Janitor: JanitorConfig{
			Enabled:         false,
			IntervalMinutes: 30,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("TASKMCP_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("taskmcp.toml"); err == nil {
		return "taskmcp.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/taskmcp/taskmcp.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("TASK_DB_PATH", &c.Store.Path)
	envOverride("TASKMCP_GIT_REPO_ROOT", &c.Git.RepoRoot)
	envOverride("TASKMCP_GIT_TRUNK", &c.Git.Trunk)

	envOverride("TASKMCP_TRANSPORT", &c.Transport.Mode)
	envOverride("TASKMCP_PORT", &c.Transport.Port)
	envOverride("TASKMCP_HOST", &c.Transport.Host)
	envOverride("TASKMCP_CORS_ORIGINS", &c.Transport.CORSOrigins)
	envOverride("TASKMCP_AUTH_TOKEN", &c.Transport.AuthToken)

	envOverride("TASKMCP_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("TASKMCP_JANITOR_ENABLED"); v != "" {
		c.Janitor.Enabled = (v == "true" || v == "1")
	}
	if v := os.Getenv("TASKMCP_JANITOR_INTERVAL_MINUTES"); v != "" {
		var minutes int
		if _, err := fmt.Sscanf(v, "%d", &minutes); err == nil && minutes > 0 {
			c.Janitor.IntervalMinutes = minutes
		}
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Git.Trunk == "" {
		return fmt.Errorf("git.trunk must not be empty")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
