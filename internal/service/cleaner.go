package service

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/ahmednasr/issue-search/internal/models"
)

// textSeparator joins title, body and comment into the embedded text.
const textSeparator = "\n\n"

// CleanOptions controls which issues survive cleaning.
type CleanOptions struct {
	// Bodies with MinBodyLength characters or fewer are dropped.
	MinBodyLength int
	// IncludeComments emits one record per comment instead of per issue.
	IncludeComments bool
	// Comments with MinCommentWords words or fewer are dropped.
	MinCommentWords int
}

// CleanStats reports the record count after each stage.
type CleanStats struct {
	Input             int
	AfterPullRequests int
	AfterBodyLength   int
	AfterComments     int // comment mode only
	Output            int
}

// CleanIssues turns loaded issues into text records ready for embedding:
// pull requests are dropped, then short bodies, then the text field is
// derived (optionally exploding comments first).
func CleanIssues(issues []models.Issue, opts CleanOptions) ([]models.TextRecord, CleanStats) {
	stats := CleanStats{Input: len(issues)}
	log.Printf("[Cleaner] initial dataset: %d issues", len(issues))

	issues = FilterPullRequests(issues)
	stats.AfterPullRequests = len(issues)
	log.Printf("[Cleaner] after pull request filter: %d issues", len(issues))

	issues = FilterShortBodies(issues, opts.MinBodyLength)
	stats.AfterBodyLength = len(issues)
	log.Printf("[Cleaner] after empty/short body filter: %d issues", len(issues))

	var records []models.TextRecord
	if opts.IncludeComments {
		records = ExplodeComments(issues, opts.MinCommentWords)
		stats.AfterComments = len(records)
		log.Printf("[Cleaner] after comment explode/filter: %d records", len(records))
	} else {
		records = make([]models.TextRecord, 0, len(issues))
		for _, issue := range issues {
			records = append(records, models.TextRecord{
				Issue:        issue,
				CommentIndex: -1,
				Text:         IssueText(issue.Title, issue.Body),
			})
		}
	}
	stats.Output = len(records)
	log.Printf("[Cleaner] combined text created for %d records", len(records))
	return records, stats
}

// FilterPullRequests keeps issues whose IsPullRequest is false.
func FilterPullRequests(issues []models.Issue) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if !issue.IsPullRequest {
			out = append(out, issue)
		}
	}
	return out
}

// FilterShortBodies keeps issues whose body is longer than minLength
// characters.
func FilterShortBodies(issues []models.Issue, minLength int) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if utf8.RuneCountInString(issue.Body) > minLength {
			out = append(out, issue)
		}
	}
	return out
}

// ExplodeComments emits one record per comment longer than minWords words.
// Issues without comments produce nothing.
func ExplodeComments(issues []models.Issue, minWords int) []models.TextRecord {
	var out []models.TextRecord
	for _, issue := range issues {
		for i, comment := range issue.Comments {
			if len(strings.Fields(comment)) <= minWords {
				continue
			}
			out = append(out, models.TextRecord{
				Issue:        issue,
				Comment:      comment,
				CommentIndex: i,
				Text:         IssueText(issue.Title, issue.Body, comment),
			})
		}
	}
	return out
}

// IssueText concatenates title, body and any extra parts with a blank line.
func IssueText(title, body string, extra ...string) string {
	parts := append([]string{title, body}, extra...)
	return strings.Join(parts, textSeparator)
}
