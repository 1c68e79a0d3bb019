// Package config handles configuration for the storage provider daemon,
// including defaults, JSON overlay, environment variables and command-line
// flags.
package config

// Config holds runtime settings for the storage provider.
//
// Fields:
//   - RelayURL: WebSocket URL of the local relay daemon.
//   - StorageBackend: "minio" or "memory".
//   - S3Endpoint / S3AccessKey / S3SecretKey / S3Bucket / S3UseSSL:
//     object storage settings for the minio backend.
//
// NOTE: the credential defaults are insecure development values and must be
// overridden in any real deployment.
type Config struct {
	RelayURL       string `envconfig:"RELAY_URL"`
	StorageBackend string `envconfig:"STORAGE_BACKEND"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3UseSSL       bool   `envconfig:"S3_USE_SSL"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.RelayURL = "ws://127.0.0.1:1977"
	c.StorageBackend = "minio"
	c.S3Endpoint = "127.0.0.1:9000"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "nymdrive"
	c.S3UseSSL = false
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
