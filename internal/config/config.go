// Package config centralises all environment / .env configuration.
// It is imported by the binaries under cmd/ and by internal/pipeline, which
// derives the per-stage option structs; stages never read the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime option the pipeline and the server need.
// Keep it flat and simple—prefer primitive types over embedding structs.
type Config struct {
	// Source repository
	Owner       string
	Repo        string
	NumIssues   int
	GitHubToken string
	GitHubAPI   string // empty means api.github.com
	PageDelay   time.Duration

	// Corpus
	IssuesDir       string
	SkipFetch       bool
	IncludeComments bool
	MinBodyLength   int
	MinCommentWords int

	// Embeddings
	EmbeddingProvider string // "transformer" (alias "local") | "vertex" | "hash"
	EmbeddingModel    string
	Device            string
	Pooling           string // "cls" | "mean"
	MaxSeqLength      int
	EmbedBatchSize    int
	PythonBin         string
	EmbeddingCache    string // sqlite path; empty disables the cache
	HashDimensions    int

	// Retrieval
	IndexMetric string
	SearchK     int
	SearchQuery string

	// Data stores
	MongoURI string
	DBName   string

	// Google Cloud
	ProjectID       string
	Location        string
	CredentialsFile string
	LLMModel        string

	// Network
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load parses the environment (and an optional .env file) into Config.
func Load() Config {
	// godotenv.Load() is a no‑op if .env doesn't exist—safe in production.
	_ = godotenv.Load()

	return Config{
		Owner:       getEnv("GITHUB_OWNER", "huggingface"),
		Repo:        getEnv("GITHUB_REPO", "datasets"),
		NumIssues:   getInt("NUM_ISSUES", 1000),
		GitHubToken: getEnv("GITHUB_TOKEN", ""),
		GitHubAPI:   getEnv("GITHUB_API_URL", ""),
		PageDelay:   getMillis("PAGE_DELAY_MS", 500),

		IssuesDir:       getEnv("ISSUES_DIR", "."),
		SkipFetch:       getBool("SKIP_FETCH", false),
		IncludeComments: getBool("INCLUDE_COMMENTS", false),
		MinBodyLength:   getInt("MIN_BODY_LENGTH", 15),
		MinCommentWords: getInt("MIN_COMMENT_WORDS", 15),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "transformer"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "sentence-transformers/multi-qa-mpnet-base-dot-v1"),
		Device:            getEnv("DEVICE", "mps"),
		Pooling:           getEnv("POOLING", "cls"),
		MaxSeqLength:      getInt("MAX_SEQ_LENGTH", 0),
		EmbedBatchSize:    getInt("EMBED_BATCH_SIZE", 16),
		PythonBin:         getEnv("PYTHON_BIN", "python3"),
		EmbeddingCache:    getEnv("EMBEDDING_CACHE_PATH", ""),
		HashDimensions:    getInt("HASH_DIMENSIONS", 256),

		IndexMetric: getEnv("INDEX_METRIC", "inner_product"),
		SearchK:     getInt("SEARCH_K", 5),
		SearchQuery: getEnv("SEARCH_QUERY", "How can I load a dataset offline?"),

		MongoURI: getEnv("MONGODB_URI", ""),
		DBName:   getEnv("MONGODB_DB", "issue_search"),

		ProjectID:       getEnv("GCP_PROJECT_ID", ""),
		Location:        getEnv("GCP_LOCATION", "us-central1"),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		LLMModel:        getEnv("LLM_MODEL", "gemini-2.0-flash-lite-001"),

		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout: getDuration("WRITE_TIMEOUT_SEC", 30),
	}
}

// Validate reports the first impossible combination of values.
func (c Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("config: GITHUB_OWNER and GITHUB_REPO are required")
	}
	if c.NumIssues < 0 {
		return fmt.Errorf("config: NUM_ISSUES must be >= 0, got %d", c.NumIssues)
	}
	if c.SearchK <= 0 {
		return fmt.Errorf("config: SEARCH_K must be > 0, got %d", c.SearchK)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("config: EMBED_BATCH_SIZE must be > 0, got %d", c.EmbedBatchSize)
	}
	switch c.EmbeddingProvider {
	case "transformer", "local", "hash":
	case "vertex":
		if c.ProjectID == "" {
			return fmt.Errorf("config: GCP_PROJECT_ID is required for the vertex provider")
		}
	default:
		return fmt.Errorf("config: unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	switch c.Pooling {
	case "cls", "mean":
	default:
		return fmt.Errorf("config: unknown POOLING %q", c.Pooling)
	}
	return nil
}

// RepoID is the "owner/repo" identifier used as a storage key.
func (c Config) RepoID() string {
	return c.Owner + "/" + c.Repo
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt reads an integer from env, falling back to defaultVal.
func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid %s=%q; using default %d", key, v, defaultVal)
	}
	return defaultVal
}

// getBool accepts 1/0, true/false, yes/no.
func getBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return defaultVal
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		log.Printf("invalid %s=%q; using default %t", key, os.Getenv(key), defaultVal)
		return defaultVal
	}
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	return time.Duration(getInt(key, defaultSec)) * time.Second
}

func getMillis(key string, defaultMs int) time.Duration {
	return time.Duration(getInt(key, defaultMs)) * time.Millisecond
}
