// Package config handles configuration for the sync daemon, including
// defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the sync daemon.
//
// Fields:
//   - RelayURL: WebSocket URL of the local relay daemon.
//   - ProviderAddress: relay address of the blob storage service.
//   - DataDir: directory holding the metadata databases and the cache.
//   - RequestTimeout: optional bound on correlated relay requests. Zero
//     keeps the historical wait-forever behavior.
//   - AutoApproveJoins: approve inbound device-join requests without
//     asking. The daemon has no interactive approval surface, so joins are
//     rejected unless this is set.
type Config struct {
	RelayURL         string        `envconfig:"RELAY_URL"`
	ProviderAddress  string        `envconfig:"PROVIDER_ADDRESS"`
	DataDir          string        `envconfig:"DATA_DIR"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT"`
	AutoApproveJoins bool          `envconfig:"AUTO_APPROVE_JOINS"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.RelayURL = "ws://127.0.0.1:1977"
	c.ProviderAddress = ""
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 0
	c.AutoApproveJoins = false
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nymdrive"
	}
	return filepath.Join(home, ".nymdrive")
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables and finally
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
