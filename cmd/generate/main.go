package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/blogfront/internal/bootstrap"
	"github.com/bilgisen/blogfront/internal/config"
	"github.com/bilgisen/blogfront/internal/logger"
)

func main() {
	output := flag.String("out", "", "output directory (defaults to OUTPUT_PATH)")
	flag.Parse()

	cfg := config.Load()
	if *output != "" {
		cfg.OutputPath = *output
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stderr",
		Pretty: !cfg.IsProduction(),
	}); err != nil {
		panic(err)
	}

	if err := run(cfg); err != nil {
		logger.Get().Error().Err(err).Msg("Build failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.BuildTimeout)
	defer cancel()

	components, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	manifest, err := components.Generator.Build(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("build_id", manifest.BuildID).
		Str("output", cfg.OutputPath).
		Int("pages", len(manifest.Pages)).
		Strs("skipped", manifest.Skipped).
		Msg("Build complete")

	if len(manifest.Failed) > 0 {
		return fmt.Errorf("%d post(s) failed to render: %v", len(manifest.Failed), manifest.Failed)
	}
	return nil
}
