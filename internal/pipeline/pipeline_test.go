package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/issue-search/internal/config"
	"github.com/ahmednasr/issue-search/internal/dataset"
	"github.com/ahmednasr/issue-search/internal/github"
	"github.com/ahmednasr/issue-search/internal/index"
	"github.com/ahmednasr/issue-search/internal/models"
	"github.com/ahmednasr/issue-search/internal/service"
)

type recordingStore struct {
	repoID  string
	model   string
	records []models.EmbeddedRecord
}

func (s *recordingStore) SaveEmbedded(_ context.Context, repoID, model string, records []models.EmbeddedRecord) error {
	s.repoID, s.model, s.records = repoID, model, records
	return nil
}

// fakeGitHub serves one page of issues and an empty second page.
func fakeGitHub(t *testing.T) *github.Client {
	t.Helper()
	page1 := []map[string]interface{}{
		{"number": 11, "title": "Load a dataset offline", "body": "How can I load a dataset offline without network access?", "state": "open"},
		{"number": 12, "title": "Streaming hangs", "body": "Streaming parquet shards hangs forever on the second epoch.", "state": "open"},
		{"number": 13, "title": "Bump version", "body": "Release housekeeping for the next version.", "state": "closed",
			"pull_request": map[string]string{"url": "https://api.github.com/repos/o/r/pulls/13"}},
		{"number": 14, "title": "Typo", "body": "typo", "state": "closed"},
		{"number": 15, "title": "Audio decoding", "body": "Audio features fail to decode mp3 files with soundfile.", "state": "open"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var out interface{} = []interface{}{}
		if r.URL.Query().Get("page") == "1" {
			out = page1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	client, err := github.NewClient(context.Background(), "", srv.URL)
	require.NoError(t, err)
	return client
}

func testOptions(dir string) Options {
	return Options{
		RepoID: "o/r",
		Fetch: service.FetchOptions{
			Owner: "o", Repo: "r", NumIssues: 200, PerPage: 100, OutputDir: dir,
		},
		Clean:     service.CleanOptions{MinBodyLength: 15, MinCommentWords: 15},
		BatchSize: 2,
		Metric:    index.InnerProduct,
		Query:     "How can I load a dataset offline?",
		K:         3,
	}
}

func hashEmbedder(t *testing.T) service.Embedder {
	t.Helper()
	h, err := service.NewHashEmbedder(256)
	require.NoError(t, err)
	return h
}

func TestRun_EndToEnd(t *testing.T) {
	store := &recordingStore{}
	runner := New(fakeGitHub(t), hashEmbedder(t), store)

	report, err := runner.Run(context.Background(), testOptions(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Corpus.Issues)
	assert.Equal(t, service.CleanStats{Input: 5, AfterPullRequests: 4, AfterBodyLength: 3, Output: 3}, report.Corpus.Stats)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 11, report.Results[0].Record.Number)
	assert.Equal(t, 3, report.Search.Size())

	assert.Equal(t, "o/r", store.repoID)
	assert.Equal(t, "hash-256", store.model)
	assert.Len(t, store.records, 3)
}

func TestRun_ZeroIssues(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Fetch.NumIssues = 0

	_, err := New(fakeGitHub(t), hashEmbedder(t), nil).Run(context.Background(), opts)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
}

func TestRun_EmptyCorpusAfterCleaning(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Clean.MinBodyLength = 1000

	_, err := New(fakeGitHub(t), hashEmbedder(t), nil).Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

// panicSource fails the test if the pipeline tries to fetch.
type panicSource struct{ t *testing.T }

func (p panicSource) ListIssuesPage(context.Context, string, string, int, int) ([]models.Issue, error) {
	p.t.Fatal("unexpected fetch")
	return nil, nil
}

func (p panicSource) ListIssueComments(context.Context, string, string, int) ([]string, error) {
	p.t.Fatal("unexpected comment fetch")
	return nil, nil
}

func TestPrepare_SkipFetchReusesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, dataset.WriteIssues(dataset.OutputPath(dir, "r"), []models.Issue{
		{Number: 1, Title: "Cached", Body: "a body long enough to keep", Labels: []string{}, Comments: []string{}},
	}))
	opts := testOptions(dir)
	opts.SkipFetch = true

	corpus, err := New(panicSource{t}, hashEmbedder(t), nil).Prepare(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, corpus.Records, 1)
	assert.Equal(t, "Cached\n\na body long enough to keep", corpus.Records[0].Text)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Config{
		Owner: "huggingface", Repo: "datasets", NumIssues: 10, IssuesDir: "data",
		EmbeddingProvider: "hash", HashDimensions: 32, IndexMetric: "cosine",
		SearchK: 4, SearchQuery: "q", EmbedBatchSize: 8, MinBodyLength: 15,
	}
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "huggingface/datasets", opts.RepoID)
	assert.Equal(t, index.Cosine, opts.Metric)
	assert.Equal(t, service.DefaultPerPage, opts.Fetch.PerPage)
	assert.Equal(t, "data", opts.Fetch.OutputDir)
	assert.Equal(t, 4, opts.K)

	cfg.IndexMetric = "hamming"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
