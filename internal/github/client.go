package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v29/github"
	"golang.org/x/oauth2"

	"github.com/ahmednasr/issue-search/internal/models"
)

// Client is a thin wrapper around go-github exposing only the listing
// endpoints the issue fetcher needs.
type Client struct {
	gh *gh.Client
}

// NewClient returns a ready-to-use GitHub API client.
// token may be an empty string, but you will be subject to very low rate‑limits.
// baseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gh.NewClient(httpClient)
	client.UserAgent = "issue-search"
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("github: invalid base url %q: %w", baseURL, err)
		}
		client.BaseURL = u
	}
	return &Client{gh: client}, nil
}

// ListIssuesPage fetches one page of issues and pull requests, open and
// closed, as GET /repos/{owner}/{repo}/issues?page=N&per_page=M&state=all,
// and normalizes every record. An empty slice means there is no more data.
func (c *Client) ListIssuesPage(ctx context.Context, owner, repo string, page, perPage int) ([]models.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State: "all",
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}
	issues, _, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("github: list issues page %d: %w", page, err)
	}
	out := make([]models.Issue, 0, len(issues))
	for _, raw := range issues {
		out = append(out, NormalizeIssue(raw))
	}
	return out, nil
}

// ListIssueComments returns the bodies of every comment on an issue,
// following pagination until GitHub reports no next page.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]string, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	bodies := []string{}
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return bodies, fmt.Errorf("github: list comments for #%d: %w", number, err)
		}
		for _, cm := range comments {
			bodies = append(bodies, cm.GetBody())
		}
		if resp == nil || resp.NextPage == 0 {
			return bodies, nil
		}
		opts.Page = resp.NextPage
	}
}
