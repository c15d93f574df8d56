package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/alphavantage-mcp/internal/common"
)

// Transports accepted by [server].transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the application configuration. It is loaded once at
// start-up and not modified afterwards.
type Config struct {
	Debug        bool                 `toml:"debug"`
	Server       ServerConfig         `toml:"server"`
	AlphaVantage AlphaVantageConfig   `toml:"alphavantage"`
	Logging      common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name      string `toml:"name"`
	Port      int    `toml:"port"`
	Transport string `toml:"transport"`
}

// AlphaVantageConfig contains upstream API settings.
type AlphaVantageConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Timeout        string `toml:"timeout"`
	MaxConcurrency int    `toml:"max_concurrency"`
	Entitlement    string `toml:"entitlement"`
	MaxResponseMB  int    `toml:"max_response_mb"`
}

// TimeoutDuration parses Timeout. Validate has already rejected bad values.
func (c AlphaVantageConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LoadFromFile loads configuration from path. A missing file is not an error:
// defaults and environment overrides still apply.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files. Every named file must exist.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables that are already set keep their value; missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides applies ALPHAVANTAGE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		config.AlphaVantage.APIKey = key
	}
	if baseURL := os.Getenv("ALPHAVANTAGE_BASE_URL"); baseURL != "" {
		config.AlphaVantage.BaseURL = baseURL
	}
	if port := os.Getenv("ALPHAVANTAGE_MCP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("ALPHAVANTAGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if debug := os.Getenv("ALPHAVANTAGE_DEBUG"); debug != "" {
		if d, err := strconv.ParseBool(debug); err == nil {
			config.Debug = d
		}
	}
	if config.Debug {
		config.Logging.Level = "debug"
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, stdio bool) {
	if port > 0 {
		config.Server.Port = port
	}
	if stdio {
		config.Server.Transport = TransportStdio
	}
}

// Validate reports the first setting that would prevent the gateway from
// serving requests.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return errors.New("alphavantage api_key is required (set ALPHAVANTAGE_API_KEY)")
	}
	if c.AlphaVantage.MaxConcurrency <= 0 {
		return fmt.Errorf("alphavantage max_concurrency must be positive, got %d", c.AlphaVantage.MaxConcurrency)
	}
	if c.AlphaVantage.MaxResponseMB <= 0 {
		return fmt.Errorf("alphavantage max_response_mb must be positive, got %d", c.AlphaVantage.MaxResponseMB)
	}
	if c.AlphaVantage.Timeout != "" {
		d, err := time.ParseDuration(c.AlphaVantage.Timeout)
		if err != nil {
			return fmt.Errorf("alphavantage timeout %q: %w", c.AlphaVantage.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("alphavantage timeout must be positive, got %s", d)
		}
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("server port %d out of range", c.Server.Port)
		}
	default:
		return fmt.Errorf("unknown server transport %q (want %s or %s)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}
