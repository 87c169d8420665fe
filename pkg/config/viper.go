package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/papercomputeco/ragloop/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RAGLOOP_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RAGLOOP_API_LISTEN, RAGLOOP_RETRIEVAL_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: RAGLOOP_EMBEDDING_PROVIDER, RAGLOOP_TELEMETRY_TARGET, etc.
	v.SetEnvPrefix("RAGLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
// Every registered key gets a default so AutomaticEnv can resolve it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, defaultValue(d, key))
	}
}

// defaultValue returns the typed default for key so viper's Get* casts
// behave the same for defaults and for values read from file or env.
func defaultValue(d *Config, key string) any {
	switch key {
	case "embedding.dimensions":
		return d.Embedding.Dimensions
	case "embedding.requests_per_second":
		return d.Embedding.RequestsPerSecond
	case "completion.max_tokens":
		return d.Completion.MaxTokens
	case "retrieval.top_k":
		return d.Retrieval.TopK
	case "ingest.chunk_size":
		return d.Ingest.ChunkSize
	case "ingest.chunk_overlap":
		return d.Ingest.ChunkOverlap
	case "telemetry.insecure":
		return d.Telemetry.Insecure
	case "telemetry.workers":
		return d.Telemetry.Workers
	case "telemetry.queue_size":
		return d.Telemetry.QueueSize
	case "api.mcp":
		return d.API.MCP
	case "api.tracing":
		return d.API.Tracing
	}
	return configKeys[key].get(d)
}

// Unmarshal decodes the resolved viper state into a Config.
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
