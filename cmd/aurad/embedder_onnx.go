//go:build onnx

package main

import (
	"fmt"

	"github.com/hearthware/aura/config"
	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/embedder/mock"
	"github.com/hearthware/aura/memory/embedder/onnx"
)

// newEmbedder builds the configured embedding provider.
func newEmbedder(cfg config.EmbedderConfig) (memory.Embedder, func(), error) {
	switch cfg.Provider {
	case "mock":
		return mock.NewWithDimensions(cfg.Dimensions), func() {}, nil
	case "onnx":
		embedder, err := onnx.New(onnx.Config{
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			LibraryPath:   cfg.LibraryPath,
			Dimensions:    cfg.Dimensions,
		})
		if err != nil {
			return nil, nil, err
		}
		return embedder, func() { _ = embedder.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}
