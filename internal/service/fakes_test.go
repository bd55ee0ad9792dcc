package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahmednasr/issue-search/internal/models"
)

// mapEmbedder returns fixed vectors per text and counts batch calls.
type mapEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	batches [][]string
}

func (m *mapEmbedder) Model() string { return "map" }

func (m *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := m.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (m *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mapEmbedder) Close() error { return nil }

// fakeSource serves canned pages; a page listed in errPages fails.
type fakeSource struct {
	pages    map[int][]models.Issue
	errPages map[int]bool
	comments map[int][]string
	calls    []int
	requests []time.Time // start of every request, pages and comments
}

func (f *fakeSource) ListIssuesPage(_ context.Context, _, _ string, page, _ int) ([]models.Issue, error) {
	f.calls = append(f.calls, page)
	f.requests = append(f.requests, time.Now())
	if f.errPages[page] {
		return nil, fmt.Errorf("boom on page %d", page)
	}
	return f.pages[page], nil
}

func (f *fakeSource) ListIssueComments(_ context.Context, _, _ string, number int) ([]string, error) {
	f.requests = append(f.requests, time.Now())
	c, ok := f.comments[number]
	if !ok {
		return nil, fmt.Errorf("no comments for #%d", number)
	}
	return c, nil
}

func makeIssues(from, n int) []models.Issue {
	out := make([]models.Issue, n)
	for i := range out {
		out[i] = models.Issue{
			Number:   from + i,
			Title:    fmt.Sprintf("issue %d", from+i),
			Body:     "a body that is long enough",
			Labels:   []string{},
			Comments: []string{},
		}
	}
	return out
}

type fakeLLM struct {
	prompt string
	answer string
	err    error
}

func (f *fakeLLM) GenerateResponse(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}
