// Package main is the entry point for the TNA price-history analyser.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/tna/internal/config"
	"github.com/tathienbao/tna/internal/engine"
	"github.com/tathienbao/tna/internal/metrics"
	"github.com/tathienbao/tna/internal/persistence"
	"github.com/tathienbao/tna/internal/report"
	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/store"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Parse command
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "run":
		err = cmdRun(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "validate":
		err = cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`TNA - Daily price history and simple moving averages

Usage:
  tna <command> [options]

Commands:
  run        Load price history, compute moving averages and print a report
  import     Load price history and cache it in SQLite
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Examples:
  tna run --config config.yaml
  tna run --location data/TNA.csv --rows 20
  tna import --config config.yaml --db data/tna.db
  tna validate --config config.yaml

Use "tna <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("tna version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

// loadConfig reads path, or returns defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// setupLogger installs the configured slog handler as the default logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// buildResolver returns a resolver for the configured source along with the
// location to open through it. The closer releases an open archive.
func buildResolver(cfg *config.Config) (source.Resolver, string, io.Closer, error) {
	location := cfg.Source.Location

	format, err := source.Resolve(cfg.SourceFormat(), location)
	if err != nil {
		return nil, "", nil, err
	}

	if format == source.FormatSQLite {
		if !filepath.IsAbs(location) {
			location = filepath.Join(cfg.Source.Root, location)
		}
		return persistence.NewSQLiteResolver(), location, nil, nil
	}

	if cfg.Source.Archive != "" {
		r, err := source.NewArchiveResolver(cfg.Source.Archive, format)
		if err != nil {
			return nil, "", nil, err
		}
		return r, location, r, nil
	}

	dir := cfg.Source.Root
	if filepath.IsAbs(location) {
		dir, location = filepath.Split(location)
	}
	return source.NewDirResolver(dir, format), location, nil, nil
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Source: %s (format %s)\n", cfg.Source.Location, cfg.SourceFormat())
	if cfg.Source.Archive != "" {
		fmt.Printf("  Archive: %s\n", cfg.Source.Archive)
	}
	fmt.Printf("  Periods: %v\n", cfg.Analysis.Periods)
	fmt.Printf("  Cache: %s\n", cfg.Persistence.Path)
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: :%d%s\n", cfg.Metrics.Port, cfg.Metrics.Path)
	}
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (defaults when empty)")
	location := fs.String("location", "", "Override source.location")
	rows := fs.Int("rows", -1, "Override report.rows")
	verbose := fs.Bool("verbose", false, "Log every loaded day")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *location != "" {
		cfg.Source.Location = *location
	}
	if *rows >= 0 {
		cfg.Report.Rows = *rows
	}
	if *verbose {
		cfg.Logging.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, loc, closer, err := buildResolver(cfg)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	st := store.New(cfg.ToStoreConfig(), logger)
	eng := engine.NewEngine(engine.Config{
		Location: loc,
		Periods:  cfg.Analysis.Periods,
	}, st, resolver, logger)

	var server *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.SetBuildInfo(Version, GitCommit, BuildTime)
		server = metrics.NewServer(metrics.ServerConfig{
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			HealthPath:  "/health",
		}, logger)
		server.RegisterHealthCheck("engine", eng.HealthCheck)
		if err := server.Start(); err != nil {
			return err
		}
	}

	logger.Info("tna starting",
		"version", Version,
		"location", loc,
		"periods", cfg.Analysis.Periods,
	)

	res, err := eng.Run(ctx)
	if err != nil {
		shutdownServer(server)
		return err
	}

	if err := report.Write(os.Stdout, st.Days(), report.Options{
		Rows:    cfg.Report.Rows,
		Periods: res.Periods,
		Title:   filepath.Base(cfg.Source.Location),
	}); err != nil {
		shutdownServer(server)
		return fmt.Errorf("write report: %w", err)
	}

	if server != nil {
		logger.Info("serving metrics, waiting for shutdown signal", "addr", server.Addr())
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownServer(server)
	}

	return nil
}

func shutdownServer(server *metrics.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("metrics server shutdown failed", "err", err)
	}
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (defaults when empty)")
	location := fs.String("location", "", "Override source.location")
	dbPath := fs.String("db", "", "Override persistence.path")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *location != "" {
		cfg.Source.Location = *location
	}
	if *dbPath != "" {
		cfg.Persistence.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, loc, closer, err := buildResolver(cfg)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	st := store.New(cfg.ToStoreConfig(), logger)
	if err := st.Initialize(ctx, resolver, loc); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Persistence.Path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	repo, err := persistence.NewSQLiteRepository(cfg.Persistence.Path)
	if err != nil {
		return err
	}
	defer repo.Close()

	importID := uuid.NewString()
	days := st.Days()
	if err := repo.SaveDays(ctx, importID, days); err != nil {
		return err
	}

	rec := persistence.ImportRecord{
		ID:         importID,
		Source:     loc,
		Days:       len(days),
		ImportedAt: time.Now().UTC(),
	}
	if len(days) > 0 {
		rec.FirstDate = days[0].Date()
		rec.LastDate = days[len(days)-1].Date()
	}
	if err := repo.SaveImport(ctx, rec); err != nil {
		return err
	}

	logger.Info("import complete",
		"import_id", importID,
		"days", rec.Days,
		"db", cfg.Persistence.Path,
	)
	fmt.Printf("Imported %d days from %s into %s (import %s)\n", rec.Days, loc, cfg.Persistence.Path, importID)
	return nil
}
