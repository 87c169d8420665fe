package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/ragloop/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .ragloop/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names
// in a stable, logical order matching the TOML section layout.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	rest := make([]string, 0)
	for k := range configKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .ragloop/ directory.
// If the file does not exist, returns DefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
// If overrideDir is non-empty, it is used instead of the default .ragloop/ location.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, md, err := decodeConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg, md)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from DefaultConfig().
// Booleans only take their default when the file does not mention them,
// since false is a meaningful setting.
func applyDefaults(cfg *Config, md toml.MetaData) {
	d := NewDefaultConfig()

	if !md.IsDefined("api", "mcp") {
		cfg.API.MCP = d.API.MCP
	}

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	setString(&cfg.Embedding.Provider, d.Embedding.Provider)
	setString(&cfg.Embedding.Target, d.Embedding.Target)
	setString(&cfg.Embedding.Model, d.Embedding.Model)
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = d.Embedding.Dimensions
	}

	setString(&cfg.Completion.Provider, d.Completion.Provider)
	setString(&cfg.Completion.Target, d.Completion.Target)
	setString(&cfg.Completion.Model, d.Completion.Model)

	setString(&cfg.VectorStore.Provider, d.VectorStore.Provider)
	setString(&cfg.VectorStore.Collection, d.VectorStore.Collection)

	setInt(&cfg.Retrieval.TopK, d.Retrieval.TopK)
	setInt(&cfg.Ingest.ChunkSize, d.Ingest.ChunkSize)
	setInt(&cfg.Ingest.ChunkOverlap, d.Ingest.ChunkOverlap)

	setString(&cfg.Telemetry.Provider, d.Telemetry.Provider)
	if cfg.Telemetry.Workers == 0 {
		cfg.Telemetry.Workers = d.Telemetry.Workers
	}
	if cfg.Telemetry.QueueSize == 0 {
		cfg.Telemetry.QueueSize = d.Telemetry.QueueSize
	}

	setString(&cfg.API.Listen, d.API.Listen)
	setString(&cfg.Client.APITarget, d.Client.APITarget)

	setString(&cfg.Session.TTL, d.Session.TTL)
	setString(&cfg.Session.EndPhrase, d.Session.EndPhrase)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// SaveConfig persists the configuration to config.toml in the target .ragloop/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "mistral", "ollama".
// Anthropic has no embeddings API, so its preset embeds with ollama.
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.Completion = CompletionConfig{
			Provider: "openai",
			Target:   "https://api.openai.com",
			Model:    "gpt-4o-mini",
		}
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.Target = "https://api.openai.com"
		cfg.Embedding.Model = "text-embedding-3-small"
		cfg.Embedding.Dimensions = 1536

	case "anthropic":
		cfg.Completion = CompletionConfig{
			Provider: "anthropic",
			Target:   "https://api.anthropic.com",
			Model:    "claude-haiku-4-5-20251001",
		}

	case "mistral":
		cfg.Completion = CompletionConfig{
			Provider: "mistral",
			Target:   "https://api.mistral.ai",
			Model:    "mistral-small-latest",
		}
		cfg.Embedding.Provider = "mistral"
		cfg.Embedding.Target = "https://api.mistral.ai"
		cfg.Embedding.Model = "mistral-embed"
		cfg.Embedding.Dimensions = 1024

	case "ollama":
		// Defaults already target a local ollama.

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "mistral", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentConfigVersion.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg, _, err := decodeConfigTOML(data)
	return cfg, err
}

func decodeConfigTOML(data []byte) (*Config, toml.MetaData, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, md, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, md, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, md, nil
}

// Value returns the string representation of key in cfg.
func Value(cfg *Config, key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}
