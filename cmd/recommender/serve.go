package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littlelifetrip/ai-recommender/internal/audit"
	"github.com/littlelifetrip/ai-recommender/internal/config"
	"github.com/littlelifetrip/ai-recommender/internal/db"
	"github.com/littlelifetrip/ai-recommender/internal/generation"
	"github.com/littlelifetrip/ai-recommender/internal/integration"
	"github.com/littlelifetrip/ai-recommender/internal/llm"
	"github.com/littlelifetrip/ai-recommender/internal/logger"
	"github.com/littlelifetrip/ai-recommender/internal/recommendation"
	"github.com/littlelifetrip/ai-recommender/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the recommend, explain and improve endpoints.

Configuration is read from the environment (and .env). The server refuses to start when
the selected provider's API key, the database URL or the JWT secret is missing.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		settings.Port = servePort
	}

	log, err := logger.New(settings.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()

	database, err := db.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	llmCfg, err := llm.ConfigFromSettings(settings)
	if err != nil {
		return err
	}
	backend, err := llm.NewBackend(ctx, llmCfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	fetcher, closer, err := integration.NewFetcher(ctx, settings, log)
	if err != nil {
		return fmt.Errorf("failed to create context fetcher: %w", err)
	}
	defer closer.Close()

	generator := generation.New(backend, log, generation.Options{
		MaxRetries: settings.MaxRetries,
		Timeout:    settings.LLMTimeout,
	})
	recorder := audit.NewRecorder(database, log)
	service := recommendation.NewService(generator, recorder, fetcher, database, recommendation.Defaults{
		Language: settings.DefaultLanguage,
		Currency: settings.DefaultCurrency,
	}, log)

	jwtService, err := server.NewJWTService(settings.JWT)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:        settings.Port,
		Debug:       settings.Debug,
		Recommender: service,
		JWT:         jwtService,
		Logger:      log,
		Drain:       recorder.Wait,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("recommender configured",
		"provider", backend.Provider(),
		"model", backend.Model(),
		"context_cache", settings.CacheBackend,
		"max_retries", settings.MaxRetries,
		"debug", settings.Debug,
	)

	return srv.Start()
}
