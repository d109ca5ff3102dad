// Main entry point for the Go NeoWs service
package main

import (
	"context"
	"fmt"
	"os"

	"go-neows/internal/clients"
	"go-neows/internal/config"
	"go-neows/internal/logging"
	"go-neows/internal/metrics"
	"go-neows/internal/repo"
	"go-neows/internal/services"
	"go-neows/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "neows",
		Short:         "NASA Near-Earth-Object proxy with caching, filtering and generated analyses",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newFeedCmd(),
		newLookupCmd(),
		newAnalyzeCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// app is the wired core shared by the server and the one-shot commands
type app struct {
	cfg       *config.AppConfig
	log       zerolog.Logger
	metrics   *metrics.Metrics
	cache     *repo.ResponseCache
	gateway   *services.NasaGateway
	narrator  *services.AiNarrator
	validator *validation.QueryValidator
}

// newApp loads configuration and builds the core. Metrics go to reg;
// a nil reg keeps them unregistered.
func newApp(ctx context.Context, reg prometheus.Registerer) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Msg("Configuration loaded successfully")

	m := metrics.New(metrics.WithRegisterer(reg))

	cache := repo.NewResponseCache(
		repo.WithMetrics(m),
		repo.WithLogger(logging.Component("cache")),
	)

	if cfg.NasaAPIKey == "" {
		log.Warn().Msg("NASA_API_KEY is not set; NeoWs requests will fail until it is configured")
	}
	nasa := clients.NewNasaClient(clients.NasaConfig{
		BaseURL: cfg.Nasa.BaseURL,
		APIKey:  cfg.NasaAPIKey,
		Timeout: cfg.NasaTimeout(),
		Breaker: clients.BreakerSettings{
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			Cooldown:     cfg.BreakerCooldown(),
		},
	}, m, logging.Component("nasa"))

	var gen services.TextGenerator = clients.NoopGenerator{}
	if cfg.OpenAIKey != "" {
		gen = clients.NewOpenAIGenerator(clients.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AITimeout(),
		}, logging.Component("openai"))
	} else {
		log.Warn().Msg("OPENAI_KEY is not set; analysis requests will fail until it is configured")
	}

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		cache:   cache,
		gateway: services.NewNasaGateway(cache, nasa, logging.Component("gateway")),
		narrator: services.NewAiNarrator(gen, services.NarratorConfig{
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
		}, m, logging.Component("narrator")),
		validator: validation.New(),
	}, nil
}
