package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/torneiradigital/pos-server/internal/cache"
)

// Service serves dashboard queries through the TTL cache. Dashboard numbers
// tolerate a short staleness window; the minute-bucketed keys expire on their
// own, so a just-finalized sale shows up within one TTL.
type Service struct {
	repo   Repository
	cache  *cache.Loader
	bucket time.Duration
}

// NewService creates a report Service over repo with the given cache loader.
func NewService(repo Repository, loader *cache.Loader) *Service {
	return &Service{
		repo:   repo,
		cache:  loader,
		bucket: time.Minute,
	}
}

// SalesSummary returns the cached sales summary for the user and period.
func (s *Service) SalesSummary(ctx context.Context, userID string, from, to time.Time) (*Summary, error) {
	key := s.key("summary", userID, from, to)
	data, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		sum, err := s.repo.SalesSummary(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sum)
	})
	if err != nil {
		return nil, errors.Wrap(err, "sales summary")
	}

	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, errors.Wrap(err, "decode cached summary")
	}
	return &sum, nil
}

// TopProducts returns the cached product ranking for the user and period.
func (s *Service) TopProducts(ctx context.Context, userID string, from, to time.Time, limit int) ([]ProductRank, error) {
	key := fmt.Sprintf("%s:%d", s.key("top", userID, from, to), limit)
	data, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		ranks, err := s.repo.TopProducts(ctx, userID, from, to, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ranks)
	})
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}

	var ranks []ProductRank
	if err := json.Unmarshal(data, &ranks); err != nil {
		return nil, errors.Wrap(err, "decode cached ranking")
	}
	return ranks, nil
}

// LowStock is not cached: it feeds restocking decisions and must reflect the
// ledger immediately.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx, threshold)
}

func (s *Service) key(kind, userID string, from, to time.Time) string {
	// Bucket the period bounds so slightly different "now" values from
	// repeated dashboard refreshes share an entry.
	return fmt.Sprintf("report:%s:%s:%d:%d",
		kind, userID, from.Truncate(s.bucket).Unix(), to.Truncate(s.bucket).Unix())
}
