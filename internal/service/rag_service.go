package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ahmednasr/issue-search/internal/models"
)

// ErrLLMUnavailable is returned by AskService when no language model is configured.
var ErrLLMUnavailable = errors.New("no language model configured")

// maxSourceChars bounds how much of each retrieved record goes into the prompt.
const maxSourceChars = 1500

// LLM defines the interface for language model interactions
type LLM interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// AskService answers a question from the issues most similar to it
// (retrieve top-k -> prompt -> LLM).
type AskService struct {
	search SearchService
	llm    LLM
}

// NewAskService wires retrieval and generation. llm may be nil, in which
// case Ask returns ErrLLMUnavailable.
func NewAskService(search SearchService, llm LLM) *AskService {
	return &AskService{search: search, llm: llm}
}

// Ask retrieves k issues for question and asks the LLM to answer from them.
func (s *AskService) Ask(ctx context.Context, question string, k int) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if s.llm == nil {
		return nil, ErrLLMUnavailable
	}

	sources, err := s.search.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &models.Answer{
			Question: question,
			Answer:   "I couldn't find any related issues to answer your question.",
			Sources:  []models.SearchResult{},
		}, nil
	}

	answer, err := s.llm.GenerateResponse(ctx, buildPrompt(question, sources))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	return &models.Answer{Question: question, Answer: answer, Sources: sources}, nil
}

func buildPrompt(question string, sources []models.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only these GitHub issues. Cite issue numbers.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nIssues:\n")
	sb.WriteString(formatSources(sources))
	return sb.String()
}

func formatSources(sources []models.SearchResult) string {
	var sb strings.Builder
	for _, src := range sources {
		text := truncate(src.Record.Text, maxSourceChars)
		sb.WriteString(fmt.Sprintf("%d. #%d (%s) %s\n", src.Rank, src.Record.Number, src.Record.State, src.Record.URL))
		sb.WriteString("```\n")
		sb.WriteString(text)
		sb.WriteString("\n```\n\n")
	}
	return sb.String()
}

// truncate cuts s to at most n bytes on a rune boundary, marking the cut
// with "...". The prompt must stay valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
