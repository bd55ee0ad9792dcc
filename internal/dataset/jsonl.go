// Package dataset reads and writes the newline-delimited JSON issue corpus.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahmednasr/issue-search/internal/models"
)

var (
	// ErrEmptyDataset is returned when a corpus file holds no records.
	ErrEmptyDataset = errors.New("dataset: no records")
	// ErrMalformedRecord is returned when a line does not decode into an Issue.
	ErrMalformedRecord = errors.New("dataset: malformed record")
)

// maxLineBytes bounds a single JSON line; issue bodies can be large.
const maxLineBytes = 16 << 20

// OutputPath is the corpus file name used for a repository.
func OutputPath(dir, repo string) string {
	return filepath.Join(dir, repo+"-issues-cleaned.jsonl")
}

// WriteIssues writes one JSON object per line, creating the parent directory
// if needed. HTML escaping is disabled so bodies keep their original text.
func WriteIssues(path string, issues []models.Issue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dataset: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range issues {
		if err := enc.Encode(&issues[i]); err != nil {
			return fmt.Errorf("dataset: encode issue #%d: %w", issues[i].Number, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("dataset: flush %s: %w", path, err)
	}
	return f.Close()
}

// LoadIssues reads a corpus written by WriteIssues. Blank lines are skipped.
// A line that is not a valid Issue object fails the whole load with its line
// number; an empty corpus fails with ErrEmptyDataset.
func LoadIssues(path string) ([]models.Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	var issues []models.Issue
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var issue models.Issue
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&issue); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedRecord, path, line, err)
		}
		if issue.Labels == nil {
			issue.Labels = []string{}
		}
		if issue.Comments == nil {
			issue.Comments = []string{}
		}
		issues = append(issues, issue)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}
	return issues, nil
}
