package config

import "github.com/bobmcallan/alphavantage-mcp/internal/common"

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "alphavantage-mcp.toml"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "alphavantage-mcp",
			Port:      8087,
			Transport: TransportHTTP,
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL:        "https://www.alphavantage.co/query",
			Timeout:        "30s",
			MaxConcurrency: 4,
			MaxResponseMB:  50,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/alphavantage-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
