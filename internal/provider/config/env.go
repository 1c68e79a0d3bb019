package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays cfg with NYMDRIVE_PROVIDER_-prefixed environment
// variables. Unset variables leave the current values untouched.
func parseEnv(cfg *Config) {
	if err := envconfig.Process("nymdrive_provider", cfg); err != nil {
		panic(err)
	}
}
