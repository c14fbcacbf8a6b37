// Package backup exports the database tables as compressed JSON-lines files.
// The POS often runs on a single on-prem box; a periodic local dump is the
// last line of defense when that box dies.
package backup

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tables = []string{
	"products",
	"customers",
	"sales",
	"sale_items",
	"stock_movements",
	"finalize_log",
	"api_keys",
}

// Exporter dumps every table to dir, one gzip JSON-lines file per table per
// run.
type Exporter struct {
	pool *pgxpool.Pool
	dir  string
	lg   *zap.Logger
	now  func() time.Time
}

// NewExporter creates an Exporter writing under dir.
func NewExporter(pool *pgxpool.Pool, dir string, lg *zap.Logger) *Exporter {
	return &Exporter{pool: pool, dir: dir, lg: lg, now: time.Now}
}

// Run exports all tables concurrently into a timestamped subdirectory and
// returns its path.
func (e *Exporter) Run(ctx context.Context) (string, error) {
	dir := filepath.Join(e.dir, e.now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}

	start := e.now()
	g, ctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		g.Go(func() error {
			return e.exportTable(ctx, dir, table)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	e.lg.Info("backup completed",
		zap.String("dir", dir),
		zap.Duration("duration", time.Since(start)))
	return dir, nil
}

// exportTable streams one table through row_to_json so the dump needs no
// per-table scan code.
func (e *Exporter) exportTable(ctx context.Context, dir, table string) error {
	f, err := os.Create(filepath.Join(dir, table+".jsonl.gz"))
	if err != nil {
		return errors.Wrapf(err, "create dump file for %s", table)
	}
	defer f.Close()

	gz := pgzip.NewWriter(f)
	w := bufio.NewWriter(gz)

	rows, err := e.pool.Query(ctx, `SELECT row_to_json(t) FROM `+table+` t`)
	if err != nil {
		return errors.Wrapf(err, "dump %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var line []byte
		if err := rows.Scan(&line); err != nil {
			return errors.Wrapf(err, "scan %s row", table)
		}
		if _, err := w.Write(line); err != nil {
			return errors.Wrapf(err, "write %s row", table)
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "write %s row", table)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "read %s", table)
	}

	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "flush %s dump", table)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "close %s dump", table)
	}
	return f.Close()
}

// Sweep runs an export every interval until ctx is cancelled. Export errors
// are logged, not fatal: a failed dump must not take the server down.
func (e *Exporter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.lg.Error("backup failed", zap.Error(err))
			}
		}
	}
}
