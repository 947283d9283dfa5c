/*
Package config loads server configuration from a TOML file.

Every field has a default, so the server runs with no config file at all;
a file overrides only what it names. Flags layered on top by cmd/server
win over both.
*/
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Engine   EngineConfig   `toml:"engine"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// AllowedOrigins is the CORS allowlist for browser clients.
	AllowedOrigins []string `toml:"allowed_origins"`

	// ShutdownGraceSeconds bounds graceful shutdown.
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

type DatabaseConfig struct {
	// Path is the SQLite database file; ":memory:" runs without one.
	Path string `toml:"path"`
}

type EngineConfig struct {
	// GraceMinutes is the late-arrival allowance per check-in slot.
	GraceMinutes int `toml:"grace_minutes"`

	// IncludeWeekendRemark prints "Weekend" in the remarks column even
	// when a weekend day has no other annotation.
	IncludeWeekendRemark bool `toml:"include_weekend_remark"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:                 "127.0.0.1",
			Port:                 8080,
			AllowedOrigins:       []string{"http://localhost:5173", "http://localhost:8080"},
			ShutdownGraceSeconds: 10,
		},
		Database: DatabaseConfig{
			Path: "dtr.db",
		},
		Engine: EngineConfig{
			GraceMinutes: 0,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; a
// present but unparsable one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port the server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
