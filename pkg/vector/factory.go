package vector

import (
	"fmt"

	"github.com/ragline/ragline/pkg/config"
)

// New creates the configured store backend.
func New(cfg config.VectorConfig) (Store, error) {
	switch cfg.Provider {
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Collection: cfg.Collection,
			Path:       cfg.Path,
		})
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Collection: cfg.Collection,
			Host:       cfg.Host,
			Port:       cfg.Port,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
		})
	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}
