// Command pipeline fetches a repository's issues, cleans and embeds them,
// builds the vector index and prints the nearest issues to SEARCH_QUERY.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/ahmednasr/issue-search/internal/config"
	"github.com/ahmednasr/issue-search/internal/database"
	"github.com/ahmednasr/issue-search/internal/github"
	"github.com/ahmednasr/issue-search/internal/pipeline"
	"github.com/ahmednasr/issue-search/internal/repository"
	"github.com/ahmednasr/issue-search/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		stop()
		log.Fatalf("Pipeline failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	gh, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPI)
	if err != nil {
		return err
	}

	embedder, err := service.NewEmbedder(ctx, opts.Embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	defer embedder.Close()

	var store pipeline.Store
	if cfg.MongoURI != "" {
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		store = repository.NewIssueRepository(client.Database(cfg.DBName))
	}

	report, err := pipeline.New(gh, embedder, store).Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("QUERY: %s\n\n", report.Query)
	for _, r := range report.Results {
		fmt.Printf("#%d  score=%.4f  %s\n", r.Rank, r.Score, r.Record.URL)
		fmt.Printf("TITLE: %s\n", r.Record.Title)
		if r.Record.Comment != "" {
			fmt.Printf("COMMENT: %s\n", r.Record.Comment)
		}
		fmt.Println(strings.Repeat("=", 50))
	}
	return nil
}
