// Deepchat - chat and document-summary backend
// Entry point: flag handling, wiring and graceful shutdown.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/matiasleandrokruk/deepchat/internal/api"
	"github.com/matiasleandrokruk/deepchat/internal/api/handlers"
	"github.com/matiasleandrokruk/deepchat/internal/domain/document"
	"github.com/matiasleandrokruk/deepchat/internal/domain/history"
	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/cache"
	"github.com/matiasleandrokruk/deepchat/internal/infra/config"
	"github.com/matiasleandrokruk/deepchat/internal/infra/eventbus"
	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
	"github.com/matiasleandrokruk/deepchat/internal/infra/runstore"
	"github.com/matiasleandrokruk/deepchat/internal/infra/sqlite"
	"github.com/matiasleandrokruk/deepchat/internal/infra/uploads"
	"github.com/matiasleandrokruk/deepchat/internal/server"
	"github.com/matiasleandrokruk/deepchat/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("deepchat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	host := fs.String("host", "0.0.0.0", "Listen host")
	port := fs.Int("port", 8000, "Listen port")
	configPath := fs.String("config", "config.json", "Path to the config file")
	dataDir := fs.String("data", ".", "Base directory for uploads, runs, cache and the history database")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(*host, *port, *configPath, *dataDir); err != nil {
		fmt.Fprintf(out, "deepchat: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(host string, port int, configPath, dataDir string) error {
	// .env feeds the DEEPCHAT_* variables before config resolution; a
	// missing file is fine.
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.NewManager(configPath)
	if err != nil {
		return err
	}

	dirs := handlers.SelfTestDirs{
		Uploads: filepath.Join(dataDir, "uploads"),
		Runs:    filepath.Join(dataDir, "runs"),
		Cache:   filepath.Join(dataDir, "pdf_cache"),
	}
	for _, dir := range []string{dirs.Uploads, dirs.Runs, dirs.Cache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	provider := llm.NewOpenAIProvider(func() llm.Settings {
		c := cfg.Get()
		return llm.Settings{
			APIBase:     c.APIBase,
			APIKey:      c.APIKey,
			Model:       c.Model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
		}
	})

	cacheStore := cache.New(dirs.Cache)
	runStore := runstore.New(dirs.Runs)
	uploadStore := uploads.New(dirs.Uploads)
	tasks := task.NewRegistry()
	subs := task.NewSubscribers()
	bus := eventbus.New()

	docs, err := document.NewProcessor(provider, cacheStore, log)
	if err != nil {
		return err
	}
	orch := task.NewOrchestrator(task.Deps{
		Tasks:    tasks,
		Subs:     subs,
		Store:    runStore,
		Provider: provider,
		Docs:     docs,
		Bus:      bus,
		Log:      log,
	}, task.Options{})

	db, err := sqlite.NewDB(filepath.Join(dataDir, "deepchat.db"))
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	if err := sqlite.MigrateUp(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	historySvc := history.NewService(db, log)
	historySvc.Start(ctx, bus)

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Provider: provider,
		Orch:     orch,
		Tasks:    tasks,
		Subs:     subs,
		RunStore: runStore,
		Uploads:  uploadStore,
		History:  historySvc,
		Dirs:     dirs,
		Log:      log,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srv := server.NewServer(router, srvCfg, log)

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errs
	case err := <-errs:
		return err
	}
}

func printHelp(out io.Writer) {
	helpText := `Deepchat - chat and document-summary backend

Usage:
  deepchat [options]

Options:
  --version      Show version information
  --help         Show this help message
  --host         Listen host (default 0.0.0.0)
  --port         Listen port (default 8000)
  --config       Path to the config file (default config.json)
  --data         Base directory for uploads, runs, cache and the history database

Examples:
  deepchat --version
  deepchat --port 8000 --config /etc/deepchat/config.json`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
