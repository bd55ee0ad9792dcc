package service

import (
	"context"
	"fmt"
	"log"

	"github.com/ahmednasr/issue-search/internal/index"
	"github.com/ahmednasr/issue-search/internal/models"
)

// ---- Service interface + implementation ------------------------------------

// SearchService converts natural‑language queries into embeddings and performs
// k‑NN searches over an in-memory index of the corpus. It is immutable after
// construction; build a new one to change the corpus.
type SearchService interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	SearchVector(vec []float32, k int) ([]models.SearchResult, error)
	FindByNumber(number int) []models.TextRecord
	Size() int
}

type searchService struct {
	records  []models.EmbeddedRecord
	idx      *index.Flat
	embedder Embedder
}

// NewSearchService builds the vector index over records and wires the query
// embedder.
func NewSearchService(records []models.EmbeddedRecord, metric index.Metric, embedder Embedder) (SearchService, error) {
	vecs := make([][]float32, len(records))
	for i, r := range records {
		vecs[i] = r.Embedding
	}
	idx, err := index.Build(metric, vecs)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	log.Printf("[Search] indexed %d records (%d dims, %s)", idx.Len(), idx.Dim(), idx.Metric())
	return &searchService{records: records, idx: idx, embedder: embedder}, nil
}

// Search embeds the query string and returns the k nearest records.
func (s *searchService) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	log.Printf("[Search] query %q (k=%d)", query, k)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return s.SearchVector(vec, k)
}

// SearchVector returns the k records nearest to vec, best first.
func (s *searchService) SearchVector(vec []float32, k int) ([]models.SearchResult, error) {
	hits, err := s.idx.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	results := make([]models.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = models.SearchResult{
			Rank:   i + 1,
			Score:  h.Score,
			Record: s.records[h.Position].TextRecord,
		}
	}
	return results, nil
}

// FindByNumber returns every indexed record built from the given issue.
func (s *searchService) FindByNumber(number int) []models.TextRecord {
	var out []models.TextRecord
	for _, r := range s.records {
		if r.Number == number {
			out = append(out, r.TextRecord)
		}
	}
	return out
}

// Size is the number of indexed records.
func (s *searchService) Size() int {
	return s.idx.Len()
}
