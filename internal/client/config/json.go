package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/saleel/nymdrive/internal/flagx"
	"github.com/saleel/nymdrive/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds.
type JsonConfig struct {
	RelayURL         string         `json:"relay_url"`
	ProviderAddress  string         `json:"provider_address"`
	DataDir          string         `json:"data_dir"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	AutoApproveJoins *bool          `json:"auto_approve_joins"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. When no file is named it is a no-op; read and unmarshal
// errors panic, since a named but broken config file is not recoverable.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RelayURL != "" {
		cfg.RelayURL = jc.RelayURL
	}
	if jc.ProviderAddress != "" {
		cfg.ProviderAddress = jc.ProviderAddress
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.AutoApproveJoins != nil {
		cfg.AutoApproveJoins = *jc.AutoApproveJoins
	}
}
