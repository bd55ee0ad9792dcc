package models

// Issue is the normalized, structurally uniform form of one GitHub issue or
// pull request. Every field is always present when serialized so the JSON-lines
// corpus loads with a fixed schema.
type Issue struct {
	URL           string   `json:"url"             bson:"url"`
	ID            int64    `json:"id"              bson:"id"`
	Number        int      `json:"number"          bson:"number"`
	Title         string   `json:"title"           bson:"title"`
	State         string   `json:"state"           bson:"state"`
	Body          string   `json:"body"            bson:"body"`
	Author        string   `json:"author"          bson:"author"`
	Labels        []string `json:"labels"          bson:"labels"`
	CommentCount  int      `json:"comment_count"   bson:"comment_count"`
	Comments      []string `json:"comments"        bson:"comments"`
	CreatedAt     string   `json:"created_at"      bson:"created_at"`
	UpdatedAt     string   `json:"updated_at"      bson:"updated_at"`
	IsPullRequest bool     `json:"is_pull_request" bson:"is_pull_request"`
}

// TextRecord is an Issue that passed cleaning, with the derived text that gets
// embedded. In comment mode each record carries the single comment its text
// was built from.
type TextRecord struct {
	Issue        `bson:",inline"`
	Comment      string `json:"comment,omitempty"       bson:"comment,omitempty"`
	CommentIndex int    `json:"comment_index"           bson:"comment_index"`
	Text         string `json:"text"                    bson:"text"`
}

// EmbeddedRecord is a TextRecord plus its sentence vector.
type EmbeddedRecord struct {
	TextRecord `bson:",inline"`
	Embedding  []float32 `json:"-" bson:"embedding"` // excluded from API responses
}
