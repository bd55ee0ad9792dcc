package models

// SearchRequest is the payload for GET /search (query parameters).
type SearchRequest struct {
	Query string `json:"q" query:"q"`
	TopK  int    `json:"k" query:"k"` // optional; default handled in handler
}

// AskRequest is the payload for POST /ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"k"`
}

// SearchResult is one retrieved record. Score follows the index convention:
// smaller is more similar.
type SearchResult struct {
	Rank   int        `json:"rank"`
	Score  float32    `json:"score"`
	Record TextRecord `json:"record"`
}

// Answer is a generated reply grounded on retrieved issues.
type Answer struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []SearchResult `json:"sources"`
}
