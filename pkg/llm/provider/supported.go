package provider

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Mistral   = "mistral"
	Azure     = "azure"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Mistral, Azure, Ollama}
}
