package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahmednasr/issue-search/internal/dataset"
	"github.com/ahmednasr/issue-search/internal/models"
)

// DefaultPerPage is the GitHub maximum page size.
const DefaultPerPage = 100

// ---- Source contract --------------------------------------------------------

// IssueSource lists repository issues page by page. *github.Client satisfies it.
type IssueSource interface {
	ListIssuesPage(ctx context.Context, owner, repo string, page, perPage int) ([]models.Issue, error)
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]string, error)
}

// FetchOptions describes one fetch run.
type FetchOptions struct {
	Owner           string
	Repo            string
	NumIssues       int
	PerPage         int           // defaults to DefaultPerPage
	PageDelay       time.Duration // pause between pages for API rate limits
	OutputDir       string
	IncludeComments bool
}

// ---- Service implementation -------------------------------------------------

// FetchService paginates the issue listing and writes the normalized corpus.
type FetchService struct {
	source IssueSource
}

// NewFetchService wires the issue source.
func NewFetchService(source IssueSource) *FetchService {
	return &FetchService{source: source}
}

// Fetch collects up to opts.NumIssues issues. A failed page stops the loop
// and the issues gathered so far are returned; failures are logged, never
// returned, so a partial corpus is still usable.
func (s *FetchService) Fetch(ctx context.Context, opts FetchOptions) []models.Issue {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if opts.NumIssues <= 0 {
		return []models.Issue{}
	}
	numPages := (opts.NumIssues + perPage - 1) / perPage

	// One limiter paces every request, pages and comment listings alike.
	// It bounds the interval between request starts; a page slower than
	// PageDelay is followed by the next without an extra pause.
	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	log.Printf("[Fetcher] fetching %d issues of %s/%s over %d pages", opts.NumIssues, opts.Owner, opts.Repo, numPages)

	all := make([]models.Issue, 0, opts.NumIssues)
	for page := 1; page <= numPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			log.Printf("[Fetcher] stopped before page %d: %v", page, err)
			break
		}

		issues, err := s.source.ListIssuesPage(ctx, opts.Owner, opts.Repo, page, perPage)
		if err != nil {
			log.Printf("[Fetcher] request for page %d failed: %v", page, err)
			break
		}
		if len(issues) == 0 {
			log.Printf("[Fetcher] no issues found on page %d", page)
			break
		}

		if opts.IncludeComments {
			s.attachComments(ctx, opts, limiter, issues)
		}
		all = append(all, issues...)

		if len(all) >= opts.NumIssues {
			break
		}
	}

	if len(all) > opts.NumIssues {
		all = all[:opts.NumIssues]
	}
	return all
}

// attachComments fills Comments for issues that have any. A failed comment
// listing leaves that issue without comments.
func (s *FetchService) attachComments(ctx context.Context, opts FetchOptions, limiter *rate.Limiter, issues []models.Issue) {
	for i := range issues {
		issue := &issues[i]
		if issue.IsPullRequest || issue.CommentCount == 0 {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			log.Printf("[Fetcher] stopped before comments of #%d: %v", issue.Number, err)
			return
		}
		comments, err := s.source.ListIssueComments(ctx, opts.Owner, opts.Repo, issue.Number)
		if err != nil {
			log.Printf("[Fetcher] comments for #%d failed: %v", issue.Number, err)
			continue
		}
		if comments == nil {
			comments = []string{}
		}
		issue.Comments = comments
	}
}

// FetchToFile runs Fetch and writes the result as JSON lines under
// opts.OutputDir, returning the file path.
func (s *FetchService) FetchToFile(ctx context.Context, opts FetchOptions) (string, error) {
	issues := s.Fetch(ctx, opts)

	path := dataset.OutputPath(opts.OutputDir, opts.Repo)
	if err := dataset.WriteIssues(path, issues); err != nil {
		return "", fmt.Errorf("failed to write issues: %w", err)
	}
	log.Printf("[Fetcher] %d issues saved to %s", len(issues), path)
	return path, nil
}
