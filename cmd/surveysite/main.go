package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/letsssgooo/surveySite/internal/admin"
	"github.com/letsssgooo/surveySite/internal/auth"
	"github.com/letsssgooo/surveySite/internal/catalog"
	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/config"
	"github.com/letsssgooo/surveySite/internal/console"
	"github.com/letsssgooo/surveySite/internal/events/fetcher"
	"github.com/letsssgooo/surveySite/internal/events/sender"
	"github.com/letsssgooo/surveySite/internal/lib/slogcustom"
	"github.com/letsssgooo/surveySite/internal/session"
	"github.com/letsssgooo/surveySite/internal/shell"
	"github.com/letsssgooo/surveySite/internal/storage"
	"github.com/letsssgooo/surveySite/internal/storage/postgres"
	"github.com/letsssgooo/surveySite/internal/storage/sqlite"
	"github.com/letsssgooo/surveySite/internal/survey"
)

func main() {
	if err := run(); err != nil {
		slog.Error("surveysite stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		var help *config.HelpError
		if errors.As(err, &help) {
			fmt.Print(help.Error())
			return nil
		}

		return err
	}

	interactive := isTerminal(os.Stdin)
	colored := !cfg.NoColor && isTerminal(os.Stdout)
	color.NoColor = !colored

	slog.SetDefault(setupLogger(cfg.LogLevel))
	slog.Info("starting surveysite", "api", cfg.APIURL, "store", cfg.Store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sess := session.New(local, storage.NewMemoryStorage())

	opts := []client.Option{client.WithTimeout(cfg.Timeout)}
	if cfg.Insecure {
		opts = append(opts, client.WithInsecureTLS())
	}

	api := client.NewHTTPClient(cfg.APIURL, sess, opts...)
	resolver := completion.NewResolver(api, sess)

	deps := console.Deps{
		Session:   sess,
		Shell:     shell.New(sess),
		Auth:      auth.NewService(api, sess),
		Taker:     survey.NewTaker(api, sess, resolver),
		Catalog:   catalog.New(api, sess, resolver),
		Dashboard: admin.NewDashboard(api, sess, cfg.Origin, cfg.ExportDir),
	}

	var prompt io.Writer
	if interactive {
		prompt = os.Stdout
	}

	c := console.New(fetcher.NewLineFetcher(os.Stdin, prompt), sender.NewConsoleSender(os.Stdout, colored), deps)

	return c.Run(ctx, cfg.Start)
}

func setupLogger(level string) *slog.Logger {
	return slog.New(slogcustom.NewCustomHandler(os.Stderr, slogcustom.ParseLevel(level)))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openStore открывает постоянное хранилище клиента.
func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.NewStorage(ctx, cfg.PostgresDSN, cfg.Profile)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil

	case config.StoreMemory:
		return storage.NewMemoryStorage(), func() {}, nil

	default:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close store", "error", err)
			}
		}, nil
	}
}
