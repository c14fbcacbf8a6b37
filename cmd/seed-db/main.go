// Command seed-db loads a demo catalog, a few customers and an API key, for
// local development and the integration tests.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/torneiradigital/pos-server/internal/handler"
	"github.com/torneiradigital/pos-server/internal/storage/postgres"
)

type seedProduct struct {
	name     string
	category string
	barcode  string
	price    string
	stock    int
}

var seedProducts = []seedProduct{
	{"Chopp Pilsen 300ml", "chopp", "7891000100103", "8.50", 120},
	{"Chopp Pilsen 500ml", "chopp", "7891000100110", "12.00", 120},
	{"Chopp IPA 300ml", "chopp", "7891000100127", "11.00", 60},
	{"Chopp Vinho 300ml", "chopp", "7891000100134", "10.50", 40},
	{"Porção Batata Frita", "porções", "", "24.90", 30},
	{"Porção Calabresa", "porções", "", "29.90", 25},
	{"Refrigerante Lata", "bebidas", "7894900010015", "6.00", 80},
	{"Água Mineral 500ml", "bebidas", "7894900530001", "4.00", 100},
}

var seedCustomers = []string{"João da Silva", "Maria Oliveira", "Carlos Souza"}

func main() {
	var (
		databaseURL string
		pepper      string
		userID      string
		apiKey      string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper matching the server's TORNEIRA_API_KEY_PEPPER")
	flag.StringVar(&userID, "user-id", "demo-user", "user the seeded data belongs to")
	flag.StringVar(&apiKey, "api-key", "demo-key", "API key to register for the user")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" || pepper == "" {
		slog.Error("both --database-url (or DATABASE_URL) and --api-key-pepper are required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, pepper, userID, apiKey); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed", slog.String("user_id", userID), slog.String("api_key", apiKey))
}

func run(ctx context.Context, databaseURL, pepper, userID, apiKey string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price of %q", p.name)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, category, barcode, price, stock)
			 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			uuid.NewString(), p.name, p.category, p.barcode, price, p.stock); err != nil {
			return errors.Wrapf(err, "seed product %q", p.name)
		}
	}

	for _, name := range seedCustomers {
		if _, err := pool.Exec(ctx,
			`INSERT INTO customers (id, user_id, name, created_at)
			 VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), userID, name, time.Now()); err != nil {
			return errors.Wrapf(err, "seed customer %q", name)
		}
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, key_hash, name)
		 VALUES ($1, $2, $3, 'seeded')
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.NewString(), userID, handler.HashKey([]byte(pepper), apiKey)); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}
