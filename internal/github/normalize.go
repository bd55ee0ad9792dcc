package github

import (
	"time"

	gh "github.com/google/go-github/v29/github"

	"github.com/ahmednasr/issue-search/internal/models"
)

// NormalizeIssue maps a raw API issue onto the fixed Issue schema. Missing or
// null fields become zero values (empty string, 0, empty list, false) so
// every record in the corpus has the same shape.
func NormalizeIssue(raw *gh.Issue) models.Issue {
	if raw == nil {
		return models.Issue{Labels: []string{}, Comments: []string{}}
	}

	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		labels = append(labels, l.GetName())
	}

	return models.Issue{
		URL:           raw.GetHTMLURL(),
		ID:            raw.GetID(),
		Number:        raw.GetNumber(),
		Title:         raw.GetTitle(),
		State:         raw.GetState(),
		Body:          raw.GetBody(),
		Author:        raw.GetUser().GetLogin(),
		Labels:        labels,
		CommentCount:  raw.GetComments(),
		Comments:      []string{},
		CreatedAt:     formatTime(raw.GetCreatedAt()),
		UpdatedAt:     formatTime(raw.GetUpdatedAt()),
		IsPullRequest: raw.IsPullRequest(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
