// Package pipeline runs the stages in order:
// fetch -> load -> clean -> embed -> (persist) -> index -> query.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ahmednasr/issue-search/internal/dataset"
	"github.com/ahmednasr/issue-search/internal/models"
	"github.com/ahmednasr/issue-search/internal/service"
)

// ErrEmptyCorpus is returned when cleaning leaves no records to embed.
var ErrEmptyCorpus = errors.New("no records left after cleaning")

// Store persists embedded records. *repository.IssueMongo satisfies it.
type Store interface {
	SaveEmbedded(ctx context.Context, repoID, model string, records []models.EmbeddedRecord) error
}

// Corpus is the output of the offline stages.
type Corpus struct {
	Path    string
	Issues  int
	Stats   service.CleanStats
	Records []models.EmbeddedRecord
}

// Report summarises one full run.
type Report struct {
	Corpus  *Corpus
	Query   string
	Results []models.SearchResult
	Search  service.SearchService
}

// Runner wires the stage dependencies. store may be nil.
type Runner struct {
	source   service.IssueSource
	embedder service.Embedder
	store    Store
}

// New returns a Runner.
func New(source service.IssueSource, embedder service.Embedder, store Store) *Runner {
	return &Runner{source: source, embedder: embedder, store: store}
}

// Prepare fetches (unless skipped), loads, cleans and embeds the corpus and
// persists it when a store is configured.
func (r *Runner) Prepare(ctx context.Context, opts Options) (*Corpus, error) {
	path := dataset.OutputPath(opts.Fetch.OutputDir, opts.Fetch.Repo)
	if opts.SkipFetch && fileExists(path) {
		log.Printf("[Pipeline] reusing %s", path)
	} else {
		var err error
		path, err = service.NewFetchService(r.source).FetchToFile(ctx, opts.Fetch)
		if err != nil {
			return nil, err
		}
	}

	issues, err := dataset.LoadIssues(path)
	if err != nil {
		log.Printf("[Pipeline] failed to load %s: %v", path, err)
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	log.Printf("[Pipeline] loaded %d issues from %s", len(issues), path)

	records, stats := service.CleanIssues(issues, opts.Clean)
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}

	embedded, err := service.NewEmbeddingBuilder(r.embedder, opts.BatchSize).Build(ctx, records)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.SaveEmbedded(ctx, opts.RepoID, r.embedder.Model(), embedded); err != nil {
			return nil, fmt.Errorf("persist embeddings: %w", err)
		}
		log.Printf("[Pipeline] saved %d embedded records for %s", len(embedded), opts.RepoID)
	}

	return &Corpus{Path: path, Issues: len(issues), Stats: stats, Records: embedded}, nil
}

// Run executes every stage and answers opts.Query with the top opts.K records.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	corpus, err := r.Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}

	search, err := service.NewSearchService(corpus.Records, opts.Metric, r.embedder)
	if err != nil {
		return nil, err
	}

	results, err := search.Search(ctx, opts.Query, opts.K)
	if err != nil {
		return nil, err
	}
	return &Report{Corpus: corpus, Query: opts.Query, Results: results, Search: search}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
