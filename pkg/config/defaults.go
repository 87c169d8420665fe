package config

const (
	defaultProvider  = "ollama"
	defaultUpstream  = "http://localhost:11434"
	defaultAPIListen = ":8080"

	defaultClientAPITarget = "http://localhost:8080"

	defaultVectorProvider = "memory"
	defaultCollection     = "ragloop"

	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultCompletionModel = "llama3.2"

	defaultTopK         = 3
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200

	defaultTelemetryProvider  = "none"
	defaultTelemetryWorkers   = 3
	defaultTelemetryQueueSize = 256

	defaultSessionTTL       = "30m"
	defaultSessionEndPhrase = "im finished"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultUpstream,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Completion: CompletionConfig{
			Provider: defaultProvider,
			Target:   defaultUpstream,
			Model:    defaultCompletionModel,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultCollection,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		Ingest: IngestConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Telemetry: TelemetryConfig{
			Provider:  defaultTelemetryProvider,
			Workers:   defaultTelemetryWorkers,
			QueueSize: defaultTelemetryQueueSize,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
			MCP:    true,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Session: SessionConfig{
			TTL:       defaultSessionTTL,
			EndPhrase: defaultSessionEndPhrase,
		},
	}
}
