package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	webrequester "github.com/JoseVL92/web-requester"
	"github.com/JoseVL92/web-requester/internal/config"
)

func main() {
	// Parse flags
	targetsPath := flag.String("targets", "-", "path to the targets JSON file, - for stdin")
	optionsJSON := flag.String("options", "", "common options as inline JSON")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	pretty := flag.Bool("pretty", false, "indent the result JSON")
	flag.Parse()

	// Load config from the environment
	cfg, err := config.Load()
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Setup logger. Logs go to stderr, results to stdout.
	logger := setupLogger(cfg.LogLevel)

	raw, err := readTargets(*targetsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("targets", *targetsPath).Msg("failed to read targets")
	}

	targets, err := webrequester.ParseTargets(raw)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse targets")
	}

	var common *webrequester.Options
	if *optionsJSON != "" {
		common, err = webrequester.ParseOptions([]byte(*optionsJSON))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to parse options")
		}
	}

	logger.Info().
		Int("targets", len(targets)).
		Int("maxConns", cfg.MaxConns).
		Int("workers", cfg.Workers).
		Msg("starting web-requester")

	client, err := webrequester.New(
		webrequester.WithSettings(cfg),
		webrequester.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	// Abort the batch on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal, aborting batch")
		cancel()
	}()

	start := time.Now()
	results, err := client.Dispatch(ctx, targets, common)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch refused")
	}

	logger.Info().
		Int("targets", len(targets)).
		Dur("elapsed", time.Since(start)).
		Msg("batch finished")

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		logger.Fatal().Err(err).Msg("failed to write results")
	}
}

// readTargets reads the targets document from a file or stdin.
func readTargets(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
