package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stoplist-telegram/bot"
	"stoplist-telegram/config"
	"stoplist-telegram/console"
	"stoplist-telegram/db"
	"stoplist-telegram/logging"
	"stoplist-telegram/services"
)

func main() {
	os.Exit(run())
}

// run wires the bot and returns the process exit code, so deferred cleanup
// happens before exit.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	log := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		return runMigrate(ctx, cfg, log)
	}

	log.Info(ctx, "starting", "menu_file", cfg.Files.Menu, "backend", cfg.Remote.Backend)
	if cfg.InsecurePin() {
		log.Warn(ctx, "ADMIN_PIN is not set, the well-known default pin is in use")
	} else {
		log.Info(ctx, "operator pin configured")
	}

	catalog := services.NewCatalogSource(cfg.Files.Menu, cfg.Files.CategoryLabels)
	problems := func() []string {
		p := cfg.Problems()
		if _, statErr := os.Stat(cfg.Files.Menu); statErr == nil {
			if _, err := catalog.Load(); err != nil {
				p = append(p, err.Error())
			}
		}
		return p
	}

	if cfg.Remote.Backend == config.BackendPostgres {
		defer db.Close()
	}
	remote, err := newRemoteStore(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "remote store:", err)
		return 1
	}

	res := services.NewReconciler(problems, remote, cfg.Remote.Timeout, log).Run(ctx)
	if res.State == services.BootstrapHalted {
		fmt.Fprintln(os.Stderr, "startup cancelled: configuration invalid")
		return 1
	}
	log.Info(ctx, "bootstrap finished", "state", res.State.String(), "document_id", res.DocumentID)

	var primary services.StateStore
	if remote != nil {
		primary = remote
	}
	local := services.NewLocalStore(cfg.Files.StopList, cfg.Files.DeliveryStatus, log.With("component", "local"))
	repo := services.NewStateRepository(primary, local, cfg.Remote.Timeout, log.With("component", "state"))

	auth, err := services.NewAuthGate(cfg.Telegram.Pin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "auth:", err)
		return 1
	}
	ctrl := console.NewController(console.Deps{
		Auth:     auth,
		Catalog:  catalog,
		StopList: services.NewStopListService(repo),
		Delivery: services.NewDeliveryService(repo, nil, cfg.Location),
		Log:      log.With("component", "console"),
	})

	b, err := bot.New(cfg.Telegram.Token, ctrl, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		return 1
	}
	if err := b.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		return 1
	}
	log.Info(context.Background(), "bot stopped")
	return 0
}

// newRemoteStore builds the configured shared backend. It returns nil for
// the local backend.
func newRemoteStore(ctx context.Context, cfg *config.Config, log logging.Logger) (services.RemoteStore, error) {
	ids := config.EnvFile{Path: cfg.EnvFile, Key: cfg.DocumentIDKey()}
	switch cfg.Remote.Backend {
	case config.BackendGist:
		return services.NewGistStore(services.GistConfig{
			BaseURL:     cfg.Remote.APIURL,
			Token:       cfg.Remote.GitHubToken,
			GistID:      cfg.Remote.GistID,
			Description: cfg.Remote.Description,
			RatePerSec:  cfg.Remote.RatePerSec,
			Timeout:     cfg.Remote.Timeout,
			IDs:         ids,
			Log:         log.With("component", "gist"),
		}), nil
	case config.BackendPostgres:
		if err := db.Init(ctx, cfg.DB); err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		// Optional auto-migration for fresh databases.
		// Set AUTO_MIGRATE=1 (or "true") to enable.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, log.With("component", "migrate")); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return services.NewPostgresStore(db.Pool, cfg.Remote.DocumentID, ids, log.With("component", "postgres")), nil
	default:
		return nil, nil
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, log logging.Logger) int {
	defer db.Close()
	if err := db.Init(ctx, cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		return 1
	}
	if err := applyMigrations(ctx, log.With("component", "migrate")); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		return 1
	}
	return 0
}
