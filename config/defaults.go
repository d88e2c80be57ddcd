package config

// Default returns the default configuration: mock embeddings, in-memory
// storage, static responses. The daemon runs fully offline with these.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "aura",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Memory: MemoryConfig{
			ShortTermCapacity:   64,
			LongTermCapacity:    4096,
			PromoteThreshold:    0.65,
			MinSimilarity:       0.25,
			StabilityHours:      24,
			RecallK:             6,
			ConsolidateInterval: "10m",
		},
		Embedder: EmbedderConfig{
			Provider:   "mock",
			Dimensions: 384,
		},
		Router: RouterConfig{
			ConfidenceThreshold: 0.60,
		},
		Responder: ResponderConfig{
			Provider:  "static",
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 300,
		},
		Storage: StorageConfig{
			Backend: "memory",
			Path:    "data/aura",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8472,
		},
	}
}
