package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmednasr/issue-search/internal/cache"
)

// ErrDimensionMismatch is returned when an embedder produces vectors of
// different lengths for one corpus.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder defines the interface for text embedding services.
// The same text with the same model and device must yield the same vector.
type Embedder interface {
	// Embed converts a query string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch converts corpus texts into one vector each, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model identifies the encoder; used as a cache key.
	Model() string
	Close() error
}

// EmbedderOptions selects and configures an Embedder implementation.
type EmbedderOptions struct {
	Provider string // "transformer" | "vertex" | "hash"
	Model    string

	// transformer
	PythonBin    string
	Device       string
	Pooling      string
	MaxSeqLength int

	// vertex
	ProjectID       string
	Location        string
	CredentialsFile string

	// hash
	HashDimensions int

	// CachePath enables the SQLite embedding cache when non-empty.
	CachePath string
}

// NewEmbedder builds the configured embedder, wrapped with the embedding
// cache when CachePath is set.
func NewEmbedder(ctx context.Context, opts EmbedderOptions) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case "transformer", "local":
		e, err = NewLocalEmbedder(LocalEmbedderOptions{
			PythonBin:    opts.PythonBin,
			Model:        opts.Model,
			Device:       opts.Device,
			Pooling:      opts.Pooling,
			MaxSeqLength: opts.MaxSeqLength,
		})
	case "vertex":
		e, err = NewVertexEmbedder(ctx, opts.ProjectID, opts.Location, opts.Model, opts.CredentialsFile)
	case "hash":
		e, err = NewHashEmbedder(opts.HashDimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.CachePath == "" {
		return e, nil
	}
	c, err := cache.Open(opts.CachePath)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	return NewCachedEmbedder(e, c), nil
}
