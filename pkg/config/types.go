package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent ragloop configuration stored as config.toml
// in the .ragloop/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Completion  CompletionConfig  `toml:"completion"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Ingest      IngestConfig      `toml:"ingest"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Session     SessionConfig     `toml:"session"`
	Logging     LoggingConfig     `toml:"logging"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	Model             string  `toml:"model,omitempty"`
	Dimensions        uint    `toml:"dimensions,omitempty"`
	AzureDeployment   string  `toml:"azure_deployment,omitempty"`
	AzureAPIVersion   string  `toml:"azure_api_version,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`

	// Fallback is tried when the primary embedder fails with a retryable error.
	Fallback FallbackConfig `toml:"fallback"`
}

// FallbackConfig names a secondary embedding provider.
type FallbackConfig struct {
	Provider        string `toml:"provider,omitempty"`
	Target          string `toml:"target,omitempty"`
	Model           string `toml:"model,omitempty"`
	AzureDeployment string `toml:"azure_deployment,omitempty"`
	AzureAPIVersion string `toml:"azure_api_version,omitempty"`
}

// CompletionConfig holds chat completion provider settings.
type CompletionConfig struct {
	Provider        string `toml:"provider,omitempty"`
	Target          string `toml:"target,omitempty"`
	Model           string `toml:"model,omitempty"`
	MaxTokens       int    `toml:"max_tokens,omitempty"`
	AzureDeployment string `toml:"azure_deployment,omitempty"`
	AzureAPIVersion string `toml:"azure_api_version,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// RetrievalConfig holds the per-exchange retrieval settings.
type RetrievalConfig struct {
	TopK         int    `toml:"top_k,omitempty"`
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

// IngestConfig holds document chunking settings.
type IngestConfig struct {
	ChunkSize    int `toml:"chunk_size,omitempty"`
	ChunkOverlap int `toml:"chunk_overlap,omitempty"`
}

// TelemetryConfig holds exchange record delivery settings.
type TelemetryConfig struct {
	// Provider is one of none, collector, kafka, nats, otel.
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	Stream    string `toml:"stream,omitempty"`
	Insecure  bool   `toml:"insecure"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`

	// TraceStore is the sqlite path of the local trace store. Empty disables it.
	TraceStore string `toml:"trace_store,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen  string `toml:"listen,omitempty"`
	MCP     bool   `toml:"mcp"`
	Tracing bool   `toml:"tracing"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. ragloop search). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// SessionConfig holds server-side chat session settings.
type SessionConfig struct {
	TTL       string `toml:"ttl,omitempty"`
	EndPhrase string `toml:"end_phrase,omitempty"`
}

// TTLDuration parses TTL, returning 0 when it is empty.
func (s SessionConfig) TTLDuration() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session.ttl: %w", err)
	}
	return d, nil
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// File enables a rotating JSON log file at this path.
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"embedding.provider":          stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":            stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":             stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions":        uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.azure_deployment":  stringKey(func(c *Config) *string { return &c.Embedding.AzureDeployment }),
	"embedding.azure_api_version": stringKey(func(c *Config) *string { return &c.Embedding.AzureAPIVersion }),
	"embedding.requests_per_second": {
		get: func(c *Config) string {
			if c.Embedding.RequestsPerSecond == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Embedding.RequestsPerSecond, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.requests_per_second: %w", err)
			}
			c.Embedding.RequestsPerSecond = f
			return nil
		},
	},
	"embedding.fallback.provider":          stringKey(func(c *Config) *string { return &c.Embedding.Fallback.Provider }),
	"embedding.fallback.target":            stringKey(func(c *Config) *string { return &c.Embedding.Fallback.Target }),
	"embedding.fallback.model":             stringKey(func(c *Config) *string { return &c.Embedding.Fallback.Model }),
	"embedding.fallback.azure_deployment":  stringKey(func(c *Config) *string { return &c.Embedding.Fallback.AzureDeployment }),
	"embedding.fallback.azure_api_version": stringKey(func(c *Config) *string { return &c.Embedding.Fallback.AzureAPIVersion }),

	"completion.provider":          stringKey(func(c *Config) *string { return &c.Completion.Provider }),
	"completion.target":            stringKey(func(c *Config) *string { return &c.Completion.Target }),
	"completion.model":             stringKey(func(c *Config) *string { return &c.Completion.Model }),
	"completion.max_tokens":        intKey("completion.max_tokens", func(c *Config) *int { return &c.Completion.MaxTokens }),
	"completion.azure_deployment":  stringKey(func(c *Config) *string { return &c.Completion.AzureDeployment }),
	"completion.azure_api_version": stringKey(func(c *Config) *string { return &c.Completion.AzureAPIVersion }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"retrieval.top_k":         intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.system_prompt": stringKey(func(c *Config) *string { return &c.Retrieval.SystemPrompt }),

	"ingest.chunk_size":    intKey("ingest.chunk_size", func(c *Config) *int { return &c.Ingest.ChunkSize }),
	"ingest.chunk_overlap": intKey("ingest.chunk_overlap", func(c *Config) *int { return &c.Ingest.ChunkOverlap }),

	"telemetry.provider":    stringKey(func(c *Config) *string { return &c.Telemetry.Provider }),
	"telemetry.target":      stringKey(func(c *Config) *string { return &c.Telemetry.Target }),
	"telemetry.topic":       stringKey(func(c *Config) *string { return &c.Telemetry.Topic }),
	"telemetry.stream":      stringKey(func(c *Config) *string { return &c.Telemetry.Stream }),
	"telemetry.insecure":    boolKey("telemetry.insecure", func(c *Config) *bool { return &c.Telemetry.Insecure }),
	"telemetry.workers":     uintKey("telemetry.workers", func(c *Config) *uint { return &c.Telemetry.Workers }),
	"telemetry.queue_size":  uintKey("telemetry.queue_size", func(c *Config) *uint { return &c.Telemetry.QueueSize }),
	"telemetry.trace_store": stringKey(func(c *Config) *string { return &c.Telemetry.TraceStore }),

	"api.listen":  stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.mcp":     boolKey("api.mcp", func(c *Config) *bool { return &c.API.MCP }),
	"api.tracing": boolKey("api.tracing", func(c *Config) *bool { return &c.API.Tracing }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"session.ttl": {
		get: func(c *Config) string { return c.Session.TTL },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for session.ttl: %w", err)
			}
			c.Session.TTL = v
			return nil
		},
	},
	"session.end_phrase": stringKey(func(c *Config) *string { return &c.Session.EndPhrase }),

	"logging.file": stringKey(func(c *Config) *string { return &c.Logging.File }),
}

// orderedKeys lists configKeys in the TOML section layout order.
var orderedKeys = []string{
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.azure_deployment",
	"embedding.azure_api_version",
	"embedding.requests_per_second",
	"embedding.fallback.provider",
	"embedding.fallback.target",
	"embedding.fallback.model",
	"embedding.fallback.azure_deployment",
	"embedding.fallback.azure_api_version",
	"completion.provider",
	"completion.target",
	"completion.model",
	"completion.max_tokens",
	"completion.azure_deployment",
	"completion.azure_api_version",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"retrieval.top_k",
	"retrieval.system_prompt",
	"ingest.chunk_size",
	"ingest.chunk_overlap",
	"telemetry.provider",
	"telemetry.target",
	"telemetry.topic",
	"telemetry.stream",
	"telemetry.insecure",
	"telemetry.workers",
	"telemetry.queue_size",
	"telemetry.trace_store",
	"api.listen",
	"api.mcp",
	"api.tracing",
	"client.api_target",
	"session.ttl",
	"session.end_phrase",
	"logging.file",
}
