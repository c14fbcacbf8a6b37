// Command backup runs a one-shot database dump, for cron jobs and manual
// exports before risky maintenance.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/torneiradigital/pos-server/internal/backup"
	"github.com/torneiradigital/pos-server/internal/storage/postgres"
)

func main() {
	var (
		dir         string
		databaseURL string
	)
	flag.StringVar(&dir, "dir", "backups", "output directory")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dir, databaseURL); err != nil {
		slog.Error("backup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dir, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	lg, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	out, err := backup.NewExporter(pool, dir, lg).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("backup written", slog.String("dir", out))
	return nil
}
