package service

import (
	"context"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexEmbedder uses a Vertex AI publisher embedding model
// (text-embedding-005, gemini-embedding-001, ...) to generate embeddings.
type VertexEmbedder struct {
	client       *aiplatform.PredictionClient
	model        string
	endpoint     string
	maxInstances int
}

// NewVertexEmbedder creates a new embedder for the given project, location
// and publisher model. credentialsFile may be empty to use application
// default credentials.
func NewVertexEmbedder(ctx context.Context, projectID, location, model, credentialsFile string) (*VertexEmbedder, error) {
	if location == "" {
		location = "us-central1"
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	// gemini-embedding-001 accepts a single instance per request.
	maxInstances := 250
	if strings.HasPrefix(model, "gemini-embedding") {
		maxInstances = 1
	}

	return &VertexEmbedder{
		client:       client,
		model:        model,
		endpoint:     fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, location, model),
		maxInstances: maxInstances,
	}, nil
}

// Model returns the publisher model name.
func (v *VertexEmbedder) Model() string {
	return v.model
}

// Embed generates an embedding for a search query using
// task_type = "RETRIEVAL_QUERY" so it aligns with document embeddings.
func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := v.predict(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds corpus texts with task_type = "RETRIEVAL_DOCUMENT",
// splitting them into as few requests as the model allows.
func (v *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += v.maxInstances {
		end := min(start+v.maxInstances, len(texts))
		vecs, err := v.predict(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (v *VertexEmbedder) predict(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	instances := make([]*structpb.Value, 0, len(texts))
	for _, text := range texts {
		instance, err := structpb.NewStruct(map[string]interface{}{
			"content":   text,
			"task_type": taskType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		instances = append(instances, structpb.NewStructValue(instance))
	}

	resp, err := v.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: instances,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	vecs, err := parsePredictions(resp.GetPredictions())
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("got %d predictions for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// parsePredictions extracts embeddings.values from each prediction.
func parsePredictions(preds []*structpb.Value) ([][]float32, error) {
	if len(preds) == 0 {
		return nil, fmt.Errorf("no predictions returned")
	}
	out := make([][]float32, len(preds))
	for i, p := range preds {
		embeddings := p.GetStructValue().GetFields()["embeddings"].GetStructValue()
		values := embeddings.GetFields()["values"].GetListValue().GetValues()
		if len(values) == 0 {
			return nil, fmt.Errorf("prediction %d has no embedding values", i)
		}
		vec := make([]float32, len(values))
		for j, val := range values {
			vec[j] = float32(val.GetNumberValue())
		}
		out[i] = vec
	}
	return out, nil
}

// Close releases the Vertex AI client resources
func (v *VertexEmbedder) Close() error {
	return v.client.Close()
}
