package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "AURA_"

	// Delimiter is the key delimiter for nested config.
	Delimiter = "."
)

// Load builds the configuration by layering, lowest priority first:
// defaults, the config file (when path is non-empty), and AURA_-prefixed
// environment variables. The result is validated before return.
func Load(path string) (*Config, error) {
	k := koanf.New(Delimiter)

	if err := k.Load(confmap.Provider(defaultsMap(), Delimiter), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// AURA_GATEWAY_PORT -> gateway.port
	err := k.Load(env.Provider(EnvPrefix, Delimiter, func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", Delimiter)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", path)
	}
	return k.Load(file.Provider(path), parser)
}

// defaultsMap flattens Default() into dotted koanf keys so file and env
// layers override individual fields instead of whole sections.
func defaultsMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"app.name":                    d.App.Name,
		"app.environment":             d.App.Environment,
		"log.level":                   d.Log.Level,
		"log.format":                  d.Log.Format,
		"memory.short_term_capacity":  d.Memory.ShortTermCapacity,
		"memory.long_term_capacity":   d.Memory.LongTermCapacity,
		"memory.promote_threshold":    d.Memory.PromoteThreshold,
		"memory.min_similarity":       d.Memory.MinSimilarity,
		"memory.stability_hours":      d.Memory.StabilityHours,
		"memory.recall_k":             d.Memory.RecallK,
		"memory.consolidate_interval": d.Memory.ConsolidateInterval,
		"embedder.provider":           d.Embedder.Provider,
		"embedder.dimensions":         d.Embedder.Dimensions,
		"embedder.model_path":         d.Embedder.ModelPath,
		"embedder.tokenizer_path":     d.Embedder.TokenizerPath,
		"embedder.library_path":       d.Embedder.LibraryPath,
		"router.confidence_threshold": d.Router.ConfidenceThreshold,
		"responder.provider":          d.Responder.Provider,
		"responder.model":             d.Responder.Model,
		"responder.max_tokens":        d.Responder.MaxTokens,
		"storage.backend":             d.Storage.Backend,
		"storage.path":                d.Storage.Path,
		"storage.sync_writes":         d.Storage.SyncWrites,
		"gateway.host":                d.Gateway.Host,
		"gateway.port":                d.Gateway.Port,
	}
}
