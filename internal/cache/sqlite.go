// Package cache stores computed embeddings in SQLite so re-running the
// pipeline over an unchanged corpus does not call the encoder again.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
    model     TEXT NOT NULL,
    text_hash TEXT NOT NULL,
    embedding BLOB NOT NULL,
    PRIMARY KEY(model, text_hash)
);
`

// SQLite is an embedding cache keyed by (model, sha256(text)).
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at dsn. Pass ":memory:" for a
// throwaway cache.
func Open(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", dsn, err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the cached vectors for texts. The result has one entry per text;
// misses are nil.
func (c *SQLite) Get(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	stmt, err := c.db.PrepareContext(ctx, `SELECT embedding FROM embeddings WHERE model = ? AND text_hash = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i, text := range texts {
		var blob []byte
		err := stmt.QueryRowContext(ctx, model, hashText(text)).Scan(&blob)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cache: lookup: %w", err)
		}
		vec, err := decode(blob)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Put stores vectors[i] for texts[i] in one transaction.
func (c *SQLite) Put(ctx context.Context, model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("cache: %d texts but %d vectors", len(texts), len(vectors))
	}
	if len(texts) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO embeddings(model, text_hash, embedding) VALUES (?, ?, ?)
ON CONFLICT(model, text_hash) DO UPDATE SET embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, text := range texts {
		if _, err := stmt.ExecContext(ctx, model, hashText(text), encode(vectors[i])); err != nil {
			return fmt.Errorf("cache: store: %w", err)
		}
	}
	return tx.Commit()
}

// Len reports the number of cached vectors.
func (c *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (c *SQLite) Close() error {
	return c.db.Close()
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// encode writes little-endian IEEE 754 float32 values without a length prefix.
func encode(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("cache: invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
