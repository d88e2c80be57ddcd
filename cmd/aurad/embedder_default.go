//go:build !onnx

package main

import (
	"fmt"

	"github.com/hearthware/aura/config"
	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/embedder/mock"
)

// newEmbedder builds the configured embedding provider. The onnx provider
// needs the onnx build tag.
func newEmbedder(cfg config.EmbedderConfig) (memory.Embedder, func(), error) {
	switch cfg.Provider {
	case "mock":
		return mock.NewWithDimensions(cfg.Dimensions), func() {}, nil
	case "onnx":
		return nil, nil, fmt.Errorf("onnx embedder requires building with -tags onnx")
	default:
		return nil, nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}
