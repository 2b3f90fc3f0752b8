package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoqa/repoqa/internal/config"
	"github.com/repoqa/repoqa/internal/generate"
	"github.com/repoqa/repoqa/internal/index"
	"github.com/repoqa/repoqa/internal/query"
	"github.com/repoqa/repoqa/internal/respcache"
)

var (
	envFile string

	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repoqa",
	Short: "Question answering over an indexed code repository",
	Long: `repoqa indexes a source repository and answers natural-language
questions about it, citing the file excerpts each answer is based on.

Quick start:
  repoqa index https://github.com/example/repo   # index a repository
  repoqa serve                                   # start the HTTP API
  repoqa mcp                                     # run as an MCP stdio server`,
	SilenceUsage: true,
}

// Execute runs the CLI, exiting non-zero on error
func Execute() {
	// Everything logs to stderr; in mcp mode stdout is the protocol channel.
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before reading the environment")
}

// app bundles the wired service graph behind every subcommand
type app struct {
	settings *config.Settings
	indexer  *index.Service
	engine   *query.Engine
	hub      index.Notifier
}

// buildApp wires the catalog, indexing service, generator, and engine from
// the environment. notifier may be nil.
func buildApp(ctx context.Context, notifier index.Notifier) (*app, error) {
	settings := config.Load(envFile)

	if err := os.MkdirAll(settings.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	catalog, err := index.NewCatalog(filepath.Join(settings.StorageDir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	cache := respcache.New(settings.CacheCapacity)
	svc, err := index.NewService(index.ServiceConfig{
		Catalog:     catalog,
		StorageDir:  settings.StorageDir,
		MaxFileSize: settings.MaxFileSize,
		GithubToken: settings.GithubToken,
		Notifier:    notifier,
		CacheReset:  cache.Reset,
	})
	if err != nil {
		_ = catalog.Close()
		return nil, err
	}

	generator, err := generate.NewFromEnv(ctx)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	log.Printf("generator: %s (%s build, sqlite driver %s)", generator.Model(), index.BuildMode, index.DriverName)

	engine, err := query.NewEngine(query.Config{
		Cache:            cache,
		Generator:        generator,
		Source:           svc,
		HistoryWindow:    settings.HistoryWindow,
		MaxContextLength: settings.MaxContextLength,
	})
	if err != nil {
		_ = generator.Close()
		_ = catalog.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		indexer:  svc,
		engine:   engine,
		hub:      notifier,
	}, nil
}

// Close releases the app's generator and catalog
func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		log.Printf("engine close: %v", err)
	}
	if err := a.indexer.Close(); err != nil {
		log.Printf("catalog close: %v", err)
	}
}
