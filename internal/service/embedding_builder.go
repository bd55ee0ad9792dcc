package service

import (
	"context"
	"fmt"
	"log"

	"github.com/ahmednasr/issue-search/internal/models"
)

// EmbeddingBuilder attaches a sentence vector to every text record.
type EmbeddingBuilder struct {
	embedder  Embedder
	batchSize int
}

// NewEmbeddingBuilder wires the embedder. batchSize <= 0 embeds one record
// per call.
func NewEmbeddingBuilder(embedder Embedder, batchSize int) *EmbeddingBuilder {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &EmbeddingBuilder{embedder: embedder, batchSize: batchSize}
}

// Build embeds records in batches and checks that every vector has the same
// dimension. Output order matches input order.
func (b *EmbeddingBuilder) Build(ctx context.Context, records []models.TextRecord) ([]models.EmbeddedRecord, error) {
	out := make([]models.EmbeddedRecord, 0, len(records))
	dim := 0
	for start := 0; start < len(records); start += b.batchSize {
		end := min(start+b.batchSize, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Text)
		}

		vecs, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed records %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}

		for i, vec := range vecs {
			if dim == 0 {
				dim = len(vec)
				log.Printf("[Embeddings] model %s produces %d-dimensional vectors", b.embedder.Model(), dim)
			}
			if len(vec) != dim || dim == 0 {
				return nil, fmt.Errorf("%w: record %d has %d, want %d", ErrDimensionMismatch, start+i, len(vec), dim)
			}
			out = append(out, models.EmbeddedRecord{TextRecord: records[start+i], Embedding: vec})
		}
		log.Printf("[Embeddings] embedded %d/%d records", len(out), len(records))
	}
	return out, nil
}
