package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/torneiradigital/pos-server/internal/domain/report"
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository implements the dashboard read-model queries.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a ReportRepository using the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// SalesSummary aggregates the user's finalized sales in [from, to).
func (r *ReportRepository) SalesSummary(ctx context.Context, userID string, from, to time.Time) (*report.Summary, error) {
	var sum report.Summary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(total), 0),
		        COALESCE(SUM(discount), 0)
		 FROM sales
		 WHERE user_id = $1 AND status = 'finalized'
		   AND finalized_at >= $2 AND finalized_at < $3`,
		userID, from, to).
		Scan(&sum.Sales, &sum.Revenue, &sum.Discounts)
	if err != nil {
		return nil, errors.Wrap(err, "sales summary")
	}

	if sum.Sales > 0 {
		sum.AverageTicket = sum.Revenue.Div(decimal.NewFromInt(int64(sum.Sales))).Round(2)
	}
	return &sum, nil
}

// TopProducts ranks products by quantity sold in [from, to).
func (r *ReportRepository) TopProducts(ctx context.Context, userID string, from, to time.Time, limit int) ([]report.ProductRank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.product_id, i.name,
		        SUM(i.quantity),
		        SUM(i.quantity * i.unit_price - i.discount)
		 FROM sale_items i
		 JOIN sales s ON s.id = i.sale_id
		 WHERE s.user_id = $1 AND s.status = 'finalized'
		   AND s.finalized_at >= $2 AND s.finalized_at < $3
		 GROUP BY i.product_id, i.name
		 ORDER BY SUM(i.quantity) DESC, i.name
		 LIMIT $4`,
		userID, from, to, limit)
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}
	defer rows.Close()

	var ranks []report.ProductRank
	for rows.Next() {
		var pr report.ProductRank
		if err := rows.Scan(&pr.ProductID, &pr.Name, &pr.Quantity, &pr.Revenue); err != nil {
			return nil, errors.Wrap(err, "scan product rank")
		}
		ranks = append(ranks, pr)
	}
	return ranks, rows.Err()
}

// LowStock returns active products at or below threshold, lowest first.
func (r *ReportRepository) LowStock(ctx context.Context, threshold int) ([]report.LowStockItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, stock FROM products
		 WHERE active AND stock <= $1 ORDER BY stock, name`, threshold)
	if err != nil {
		return nil, errors.Wrap(err, "low stock")
	}
	defer rows.Close()

	var items []report.LowStockItem
	for rows.Next() {
		var it report.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Stock); err != nil {
			return nil, errors.Wrap(err, "scan low stock item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
