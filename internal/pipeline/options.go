package pipeline

import (
	"github.com/ahmednasr/issue-search/internal/config"
	"github.com/ahmednasr/issue-search/internal/index"
	"github.com/ahmednasr/issue-search/internal/service"
)

// Options carries every stage's settings for one run.
type Options struct {
	RepoID    string
	Fetch     service.FetchOptions
	SkipFetch bool // reuse an existing corpus file instead of fetching
	Clean     service.CleanOptions
	Embedder  service.EmbedderOptions
	BatchSize int
	Metric    index.Metric
	Query     string
	K         int
}

// OptionsFromConfig derives the stage options from a validated Config.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	metric, err := index.ParseMetric(cfg.IndexMetric)
	if err != nil {
		return Options{}, err
	}
	return Options{
		RepoID: cfg.RepoID(),
		Fetch: service.FetchOptions{
			Owner:           cfg.Owner,
			Repo:            cfg.Repo,
			NumIssues:       cfg.NumIssues,
			PerPage:         service.DefaultPerPage,
			PageDelay:       cfg.PageDelay,
			OutputDir:       cfg.IssuesDir,
			IncludeComments: cfg.IncludeComments,
		},
		SkipFetch: cfg.SkipFetch,
		Clean: service.CleanOptions{
			MinBodyLength:   cfg.MinBodyLength,
			IncludeComments: cfg.IncludeComments,
			MinCommentWords: cfg.MinCommentWords,
		},
		Embedder: service.EmbedderOptions{
			Provider:        cfg.EmbeddingProvider,
			Model:           cfg.EmbeddingModel,
			PythonBin:       cfg.PythonBin,
			Device:          cfg.Device,
			Pooling:         cfg.Pooling,
			MaxSeqLength:    cfg.MaxSeqLength,
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			CredentialsFile: cfg.CredentialsFile,
			HashDimensions:  cfg.HashDimensions,
			CachePath:       cfg.EmbeddingCache,
		},
		BatchSize: cfg.EmbedBatchSize,
		Metric:    metric,
		Query:     cfg.SearchQuery,
		K:         cfg.SearchK,
	}, nil
}
