package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays cfg with NYMDRIVE_-prefixed environment variables.
// Unset variables leave the current values untouched.
func parseEnv(cfg *Config) {
	if err := envconfig.Process("nymdrive", cfg); err != nil {
		panic(err)
	}
}
