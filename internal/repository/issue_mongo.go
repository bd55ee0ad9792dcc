package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahmednasr/issue-search/internal/models"
)

// ErrNoEmbeddings is returned by LoadEmbedded when nothing is stored for the
// repository and model.
var ErrNoEmbeddings = errors.New("no stored embeddings")

// writeBatch caps the number of replace operations per bulk write.
const writeBatch = 500

// IssueMongo persists embedded issue records so a server can start without
// re-fetching and re-encoding the corpus.
//
// Expected schema:
//
//	issue_embeddings
//	  { _id: "owner/repo@model#number/comment_index", repo, model, seq,
//	    <issue fields>, comment, comment_index, text, embedding: []float32 }
type IssueMongo struct {
	col *mongo.Collection
}

// issueDoc is the stored form of one EmbeddedRecord. seq keeps corpus order.
type issueDoc struct {
	ID                    string `bson:"_id"`
	RepoID                string `bson:"repo"`
	Model                 string `bson:"model"`
	Seq                   int    `bson:"seq"`
	models.EmbeddedRecord `bson:",inline"`
}

// NewIssueRepository wires the issue_embeddings collection.
func NewIssueRepository(db *mongo.Database) *IssueMongo {
	return &IssueMongo{col: db.Collection("issue_embeddings")}
}

// DocID is the key of a record. Corpora of different models never share a
// document.
func DocID(repoID, model string, r models.TextRecord) string {
	return fmt.Sprintf("%s@%s#%d/%d", repoID, model, r.Number, r.CommentIndex)
}

// -------------------------- public API --------------------------------------

// SaveEmbedded replaces the stored corpus of repoID and model with records.
// Earlier records of the same pair are deleted first, so a later load never
// mixes two runs.
func (r *IssueMongo) SaveEmbedded(ctx context.Context, repoID, model string, records []models.EmbeddedRecord) error {
	res, err := r.col.DeleteMany(ctx, bson.M{"repo": repoID, "model": model})
	if err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	if res.DeletedCount > 0 {
		log.Printf("[Issue Repository] removed %d stale records for %s (%s)", res.DeletedCount, repoID, model)
	}

	for start := 0; start < len(records); start += writeBatch {
		end := min(start+writeBatch, len(records))
		writes := make([]mongo.WriteModel, 0, end-start)
		for i := start; i < end; i++ {
			doc := issueDoc{
				ID:             DocID(repoID, model, records[i].TextRecord),
				RepoID:         repoID,
				Model:          model,
				Seq:            i,
				EmbeddedRecord: records[i],
			}
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("failed to save embeddings %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// LoadEmbedded returns the stored records for repoID and model in corpus order.
func (r *IssueMongo) LoadEmbedded(ctx context.Context, repoID, model string) ([]models.EmbeddedRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"repo": repoID, "model": model}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []issueDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w for %s (%s)", ErrNoEmbeddings, repoID, model)
	}

	out := make([]models.EmbeddedRecord, len(docs))
	for i, d := range docs {
		rec := d.EmbeddedRecord
		if rec.Labels == nil {
			rec.Labels = []string{}
		}
		if rec.Comments == nil {
			rec.Comments = []string{}
		}
		out[i] = rec
	}
	return out, nil
}
