// Package config loads the HCL configuration files of the server and the
// table client. A missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

// ServerConfig is the settlement service configuration.
type ServerConfig struct {
	Server   ServerSettings
	Database DatabaseSettings
	History  HistorySettings
}

type ServerSettings struct {
	Address            string `hcl:"address,optional"`
	LogLevel           string `hcl:"log_level,optional"`
	ShutdownTimeoutSec int    `hcl:"shutdown_timeout_sec,optional"`
}

// DatabaseSettings configures the Postgres pool. An empty URL selects the
// in-memory store.
type DatabaseSettings struct {
	URL                string `hcl:"url,optional"`
	MaxOpenConns       int    `hcl:"max_open_conns,optional"`
	MaxIdleConns       int    `hcl:"max_idle_conns,optional"`
	ConnMaxLifetimeSec int    `hcl:"conn_max_lifetime_sec,optional"`
}

type HistorySettings struct {
	DefaultLimit int `hcl:"default_limit,optional"`
	MaxLimit     int `hcl:"max_limit,optional"`
}

type serverFile struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Database *DatabaseSettings `hcl:"database,block"`
	History  *HistorySettings  `hcl:"history,block"`
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:            "localhost:8000",
			LogLevel:           "info",
			ShutdownTimeoutSec: 10,
		},
		Database: DatabaseSettings{
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetimeSec: 300,
		},
		History: HistorySettings{
			DefaultLimit: domain.DefaultHistoryLimit,
			MaxLimit:     100,
		},
	}
}

// LoadServerConfig reads filename, filling unset values from the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw serverFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultServerConfig()
	if raw.Server != nil {
		config.Server = *raw.Server
	}
	if raw.Database != nil {
		config.Database = *raw.Database
	}
	if raw.History != nil {
		config.History = *raw.History
	}
	config.applyDefaults()
	return config, nil
}

func (c *ServerConfig) applyDefaults() {
	defaults := DefaultServerConfig()
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.Server.LogLevel
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = defaults.Server.ShutdownTimeoutSec
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.ConnMaxLifetimeSec == 0 {
		c.Database.ConnMaxLifetimeSec = defaults.Database.ConnMaxLifetimeSec
	}
	if c.History.DefaultLimit == 0 {
		c.History.DefaultLimit = defaults.History.DefaultLimit
	}
	if c.History.MaxLimit == 0 {
		c.History.MaxLimit = max(defaults.History.MaxLimit, c.History.DefaultLimit)
	}
}

func (c *ServerConfig) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address must be set")
	}
	if err := validateLogLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Server.ShutdownTimeoutSec < 0 {
		return fmt.Errorf("server: shutdown timeout must not be negative")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database: connection limits must not be negative")
	}
	if c.Database.ConnMaxLifetimeSec < 0 {
		return fmt.Errorf("database: connection lifetime must not be negative")
	}
	if c.History.DefaultLimit <= 0 {
		return fmt.Errorf("history: default limit must be positive")
	}
	if c.History.MaxLimit < c.History.DefaultLimit {
		return fmt.Errorf("history: max limit %d is below default limit %d", c.History.MaxLimit, c.History.DefaultLimit)
	}
	return nil
}

func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

func (c *ServerConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetimeSec) * time.Second
}
