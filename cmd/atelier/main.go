// Package main provides the CLI entry point for the atelier canvas agent server.
//
// Atelier serves a streaming chat API backed by an LLM provider
// (OpenAI-compatible or Anthropic) with image generation tools, plus
// canvas persistence for the drawing front end.
//
// # Basic Usage
//
// Start the server:
//
//	atelier serve --config atelier.yaml
//
// # Environment Variables
//
//   - ATELIER_CONFIG: Path to configuration file (default: atelier.yaml)
//   - OPENAI_API_KEY: OpenAI API key
//   - ANTHROPIC_API_KEY: Anthropic API key
//   - ARK_API_KEY: Image generation API key
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/internal/agent/providers"
	"github.com/haasonsaas/atelier/internal/config"
	"github.com/haasonsaas/atelier/internal/history"
	"github.com/haasonsaas/atelier/internal/server"
	"github.com/haasonsaas/atelier/internal/tools/imagegen"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "atelier",
		Short: "Streaming canvas agent server",
		Long:  "Atelier serves a streaming chat API with image generation tools and canvas persistence.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the atelier server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("atelier %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	return rootCmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("ATELIER_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("atelier.yaml"); err == nil {
			path = "atelier.yaml"
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	imagesDir := filepath.Join(cfg.Storage.Dir, "images")
	registry := agent.NewToolRegistry()
	if cfg.Images.Enabled {
		apiKey := cfg.Images.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ARK_API_KEY")
		}
		opts := imagegen.Options{
			Client:        imagegen.NewClient(apiKey, cfg.Images.BaseURL, logger),
			GenerateModel: cfg.Images.GenerateModel,
			EditModel:     cfg.Images.EditModel,
			StorageDir:    imagesDir,
			PublicBase:    "/storage/images",
			Logger:        logger,
		}
		registry.Register(imagegen.NewGenerateTool(opts))
		registry.Register(imagegen.NewEditTool(opts))
	}

	runner := agent.NewRunner(provider, registry, agent.RunnerConfig{
		Model:      cfg.Provider.Model,
		System:     cfg.Agent.SystemPrompt,
		MaxTokens:  cfg.Provider.MaxTokens,
		StepBudget: cfg.Agent.StepBudget,
	}, logger)

	store, err := history.NewFileStore(filepath.Join(cfg.Storage.Dir, "canvases.json"), logger)
	if err != nil {
		return fmt.Errorf("open canvas store: %w", err)
	}

	srv := server.New(server.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		StorageDir: cfg.Storage.Dir,
		Runner:     runner,
		Store:      store,
		Metrics:    agent.NewMetrics(),
		Logger:     logger,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("atelier started",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"provider", cfg.Provider.Name,
		"model", cfg.Provider.Model,
		"tools", len(registry.Definitions()),
	)
	return srv.Start(ctx)
}

func newProvider(cfg *config.Config, logger *slog.Logger) (agent.Provider, error) {
	switch strings.ToLower(cfg.Provider.Name) {
	case "openai":
		apiKey := cfg.Provider.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return providers.NewOpenAIProvider(apiKey, cfg.Provider.BaseURL, logger), nil
	case "anthropic":
		apiKey := cfg.Provider.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return providers.NewAnthropicProvider(apiKey, cfg.Provider.BaseURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
