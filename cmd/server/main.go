package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ahmednasr/issue-search/internal/config"
	"github.com/ahmednasr/issue-search/internal/database"
	"github.com/ahmednasr/issue-search/internal/github"
	"github.com/ahmednasr/issue-search/internal/handler"
	"github.com/ahmednasr/issue-search/internal/middleware"
	"github.com/ahmednasr/issue-search/internal/models"
	"github.com/ahmednasr/issue-search/internal/pipeline"
	"github.com/ahmednasr/issue-search/internal/repository"
	"github.com/ahmednasr/issue-search/internal/service"
)

// main is the single entry‑point for the REST API.
func main() {
	ctx := context.Background()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Configuration loaded:")
	log.Printf("  - Repository: %s", cfg.RepoID())
	log.Printf("  - Embeddings: %s (%s)", cfg.EmbeddingProvider, cfg.EmbeddingModel)
	log.Printf("  - Metric: %s", opts.Metric)

	// Connect to MongoDB (optional; stores embedded records between restarts)
	var (
		mongoClient *mongo.Client
		issueRepo   *repository.IssueMongo
	)
	if cfg.MongoURI != "" {
		mongoClient, err = database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		issueRepo = repository.NewIssueRepository(mongoClient.Database(cfg.DBName))
		log.Printf("Connected to MongoDB, using database: %s", cfg.DBName)
	}

	// Initialize embedder
	embedder, err := service.NewEmbedder(ctx, opts.Embedder)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	defer embedder.Close()

	records, err := loadCorpus(ctx, cfg, opts, embedder, issueRepo)
	if err != nil {
		log.Fatalf("Failed to build corpus: %v", err)
	}

	// Initialize services
	searchSvc, err := service.NewSearchService(records, opts.Metric, embedder)
	if err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}

	var askSvc *service.AskService
	if cfg.ProjectID != "" {
		llm, err := service.NewVertexLLM(ctx, cfg.ProjectID, cfg.Location, cfg.LLMModel, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize Vertex AI LLM: %v", err)
		}
		defer llm.Close()
		askSvc = service.NewAskService(searchSvc, llm)
	} else {
		log.Printf("GCP_PROJECT_ID not set; /api/v1/ask is disabled")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(middleware.Logging())
	handler.RegisterRoutes(app, searchSvc, askSvc, mongoClient, cfg.SearchK)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("Shutting down")
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// loadCorpus prefers records stored in MongoDB for this repository and
// model; otherwise it runs the offline pipeline stages (and stores the result).
func loadCorpus(ctx context.Context, cfg config.Config, opts pipeline.Options, embedder service.Embedder, repo *repository.IssueMongo) ([]models.EmbeddedRecord, error) {
	var store pipeline.Store
	if repo != nil {
		records, err := repo.LoadEmbedded(ctx, opts.RepoID, embedder.Model())
		if err == nil {
			log.Printf("Loaded %d embedded records from MongoDB", len(records))
			return records, nil
		}
		if !errors.Is(err, repository.ErrNoEmbeddings) {
			return nil, err
		}
		log.Printf("No stored embeddings for %s, building corpus", opts.RepoID)
		store = repo
	}

	gh, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPI)
	if err != nil {
		return nil, err
	}
	corpus, err := pipeline.New(gh, embedder, store).Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	return corpus.Records, nil
}
