// Package config loads and validates the daemon configuration, layering
// defaults, an optional YAML/JSON file, and AURA_-prefixed environment
// variables.
package config

// Config is the root daemon configuration.
type Config struct {
	// App holds application identity settings.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log holds logging settings.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Memory holds memory manager settings.
	Memory MemoryConfig `mapstructure:"memory" validate:"required"`

	// Embedder selects and configures the embedding provider.
	Embedder EmbedderConfig `mapstructure:"embedder" validate:"required"`

	// Router holds intention routing settings.
	Router RouterConfig `mapstructure:"router" validate:"required"`

	// Responder selects the conversational responder.
	Responder ResponderConfig `mapstructure:"responder" validate:"required"`

	// Storage holds persistence settings.
	Storage StorageConfig `mapstructure:"storage" validate:"required"`

	// Gateway holds the speech gateway settings.
	Gateway GatewayConfig `mapstructure:"gateway" validate:"required"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"oneof=development production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// MemoryConfig holds memory manager settings.
type MemoryConfig struct {
	ShortTermCapacity int     `mapstructure:"short_term_capacity" validate:"min=1"`
	LongTermCapacity  int     `mapstructure:"long_term_capacity" validate:"min=1"`
	PromoteThreshold  float64 `mapstructure:"promote_threshold" validate:"gte=0,lte=1"`
	MinSimilarity     float64 `mapstructure:"min_similarity" validate:"gte=-1,lte=1"`
	StabilityHours    float64 `mapstructure:"stability_hours" validate:"gt=0"`
	RecallK           int     `mapstructure:"recall_k" validate:"min=1"`

	// ConsolidateInterval is how often the maintenance pass runs, e.g.
	// "10m".
	ConsolidateInterval string `mapstructure:"consolidate_interval" validate:"required"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	// Provider is "mock" or "onnx".
	Provider   string `mapstructure:"provider" validate:"oneof=mock onnx"`
	Dimensions int    `mapstructure:"dimensions" validate:"min=1"`

	// ModelPath, TokenizerPath and LibraryPath apply to the onnx provider.
	ModelPath     string `mapstructure:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`
	LibraryPath   string `mapstructure:"library_path"`
}

// RouterConfig holds intention routing settings.
type RouterConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
}

// ResponderConfig selects the conversational responder.
type ResponderConfig struct {
	// Provider is "static" or "claude".
	Provider string `mapstructure:"provider" validate:"oneof=static claude"`

	// Model applies to the claude provider.
	Model string `mapstructure:"model"`

	// MaxTokens caps claude responses.
	MaxTokens int64 `mapstructure:"max_tokens" validate:"min=0"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `mapstructure:"backend" validate:"oneof=memory badger"`

	// Path is the badger data directory.
	Path string `mapstructure:"path"`

	// SyncWrites forces fsync on every badger write.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// GatewayConfig holds the speech gateway settings.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`

	// AllowedOrigins lists acceptable websocket origins; empty allows all
	// (local device deployments).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
