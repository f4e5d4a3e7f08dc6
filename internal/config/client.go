package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

// ClientConfig configures the terminal table and the simulator.
type ClientConfig struct {
	LogLevel string
	API      APISettings
	Table    TableSettings
}

// APISettings points at the settlement service. An empty URL plays hands
// without settling them.
type APISettings struct {
	URL       string `hcl:"url,optional"`
	TimeoutMS int    `hcl:"timeout_ms,optional"`
}

type TableSettings struct {
	StackSize       int `hcl:"stack_size,optional"`
	MaxActions      int `hcl:"max_actions,optional"`
	ActionTimeoutMS int `hcl:"action_timeout_ms,optional"`
}

type clientFile struct {
	LogLevel string         `hcl:"log_level,optional"`
	API      *APISettings   `hcl:"api,block"`
	Table    *TableSettings `hcl:"table,block"`
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		LogLevel: "warn",
		API: APISettings{
			URL:       "http://localhost:8000",
			TimeoutMS: 5000,
		},
		Table: TableSettings{
			StackSize:       int(domain.DefaultStackSize),
			MaxActions:      200,
			ActionTimeoutMS: 2000,
		},
	}
}

func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw clientFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultClientConfig()
	defaults := DefaultClientConfig()
	if raw.LogLevel != "" {
		config.LogLevel = raw.LogLevel
	}
	if raw.API != nil {
		// An api block without url disables settlement.
		config.API = *raw.API
		if config.API.TimeoutMS == 0 {
			config.API.TimeoutMS = defaults.API.TimeoutMS
		}
	}
	if raw.Table != nil {
		config.Table = *raw.Table
		if config.Table.StackSize == 0 {
			config.Table.StackSize = defaults.Table.StackSize
		}
		if config.Table.MaxActions == 0 {
			config.Table.MaxActions = defaults.Table.MaxActions
		}
		if config.Table.ActionTimeoutMS == 0 {
			config.Table.ActionTimeoutMS = defaults.Table.ActionTimeoutMS
		}
	}
	return config, nil
}

func (c *ClientConfig) Validate() error {
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.API.URL != "" {
		parsed, err := url.Parse(c.API.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("api: invalid url %q", c.API.URL)
		}
	}
	if c.API.TimeoutMS <= 0 {
		return fmt.Errorf("api: timeout must be positive")
	}
	if c.Table.StackSize <= int(domain.BigBlind) {
		return fmt.Errorf("table: stack size must exceed the big blind of %d, got %d", domain.BigBlind, c.Table.StackSize)
	}
	if c.Table.MaxActions <= 0 {
		return fmt.Errorf("table: max actions must be positive")
	}
	if c.Table.ActionTimeoutMS <= 0 {
		return fmt.Errorf("table: action timeout must be positive")
	}
	return nil
}

func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutMS) * time.Millisecond
}

func (c *ClientConfig) ActionTimeout() time.Duration {
	return time.Duration(c.Table.ActionTimeoutMS) * time.Millisecond
}
