package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/issue-search/internal/dataset"
	"github.com/ahmednasr/issue-search/internal/github"
	"github.com/ahmednasr/issue-search/internal/models"
)

func TestFetch_PagesAndTruncates(t *testing.T) {
	src := &fakeSource{pages: map[int][]models.Issue{
		1: makeIssues(1, 100),
		2: makeIssues(101, 100),
		3: makeIssues(201, 100),
	}}
	issues := NewFetchService(src).Fetch(context.Background(), FetchOptions{Owner: "o", Repo: "r", NumIssues: 250})

	assert.Len(t, issues, 250)
	assert.Equal(t, []int{1, 2, 3}, src.calls)
	assert.Equal(t, 250, issues[249].Number)
}

func TestFetch_StopsOnErrorKeepingPartial(t *testing.T) {
	src := &fakeSource{
		pages:    map[int][]models.Issue{1: makeIssues(1, 100), 3: makeIssues(201, 100)},
		errPages: map[int]bool{2: true},
	}
	issues := NewFetchService(src).Fetch(context.Background(), FetchOptions{Owner: "o", Repo: "r", NumIssues: 300})

	assert.Len(t, issues, 100)
	assert.Equal(t, []int{1, 2}, src.calls, "no page after the failed one is requested")
}

func TestFetch_StopsOnEmptyPage(t *testing.T) {
	src := &fakeSource{pages: map[int][]models.Issue{1: makeIssues(1, 40)}}
	issues := NewFetchService(src).Fetch(context.Background(), FetchOptions{Owner: "o", Repo: "r", NumIssues: 1000, PerPage: 40})

	assert.Len(t, issues, 40)
	assert.Equal(t, []int{1, 2}, src.calls)
}

func TestFetch_Comments(t *testing.T) {
	page := makeIssues(1, 3)
	page[0].CommentCount = 2
	page[1].CommentCount = 1
	page[1].IsPullRequest = true
	page[2].CommentCount = 4
	src := &fakeSource{
		pages:    map[int][]models.Issue{1: page},
		comments: map[int][]string{1: {"first", "second"}},
	}
	issues := NewFetchService(src).Fetch(context.Background(), FetchOptions{Owner: "o", Repo: "r", NumIssues: 3, IncludeComments: true})

	require.Len(t, issues, 3)
	assert.Equal(t, []string{"first", "second"}, issues[0].Comments)
	assert.Empty(t, issues[1].Comments, "pull requests are skipped")
	assert.NotNil(t, issues[2].Comments, "failed listing keeps an empty list")
}

func TestFetchToFile_ZeroIssuesWritesEmptyFile(t *testing.T) {
	src := &fakeSource{}
	dir := t.TempDir()
	path, err := NewFetchService(src).FetchToFile(context.Background(), FetchOptions{Owner: "o", Repo: "datasets", OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "datasets-issues-cleaned.jsonl"), path)
	assert.Empty(t, src.calls)
	_, err = dataset.LoadIssues(path)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
}

// TestFetchToFile_GitHubAPI runs the fetcher against a fake GitHub API and
// checks the written corpus round-trips through the dataset loader.
func TestFetchToFile_GitHubAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/huggingface/datasets/issues", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		var out []map[string]interface{}
		if page == 1 {
			out = []map[string]interface{}{
				{"number": 2, "title": "Offline mode", "body": "How can I load a dataset offline?", "state": "open",
					"html_url": "https://github.com/huggingface/datasets/issues/2", "user": map[string]string{"login": "alice"},
					"labels": []map[string]string{{"name": "question"}}},
				{"number": 1, "title": "Add feature", "body": nil, "state": "closed",
					"pull_request": map[string]string{"url": "https://api.github.com/repos/huggingface/datasets/pulls/1"}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := github.NewClient(context.Background(), "", srv.URL)
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := NewFetchService(client).FetchToFile(context.Background(), FetchOptions{
		Owner: "huggingface", Repo: "datasets", NumIssues: 150, PerPage: 100, OutputDir: dir,
	})
	require.NoError(t, err)

	loaded, err := dataset.LoadIssues(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Author)
	assert.Equal(t, []string{"question"}, loaded[0].Labels)
	assert.Equal(t, "", loaded[1].Body, "null body becomes empty string")
	assert.True(t, loaded[1].IsPullRequest)

	records, _ := CleanIssues(loaded, CleanOptions{MinBodyLength: 15})
	require.Len(t, records, 1)
	assert.Equal(t, fmt.Sprintf("%s\n\n%s", "Offline mode", "How can I load a dataset offline?"), records[0].Text)
}

func TestFetch_CommentRequestsArePaced(t *testing.T) {
	const delay = 40 * time.Millisecond
	page := makeIssues(1, 3)
	for i := range page {
		page[i].CommentCount = 1
	}
	src := &fakeSource{
		pages:    map[int][]models.Issue{1: page},
		comments: map[int][]string{1: {"a"}, 2: {"b"}, 3: {"c"}},
	}
	issues := NewFetchService(src).Fetch(context.Background(), FetchOptions{
		Owner: "o", Repo: "r", NumIssues: 3, PageDelay: delay, IncludeComments: true,
	})
	require.Len(t, issues, 3)

	// One page request plus three comment listings, all through one limiter.
	require.Len(t, src.requests, 4)
	for i := 1; i < len(src.requests); i++ {
		gap := src.requests[i].Sub(src.requests[i-1])
		assert.GreaterOrEqual(t, gap, delay-10*time.Millisecond, "request %d started %s after the previous one", i, gap)
	}
}
