package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

// GetStats возвращает сводные показатели магазина: количество пользователей,
// товаров и заказов, выручку, закупочную стоимость и прибыль по завершённым заказам.
func (r *PostgresRepository) GetStats(ctx context.Context) (*model.Stats, error) {
	var s model.Stats

	err := r.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM products),
		   (SELECT COUNT(*) FROM orders)`,
	).Scan(&s.TotalUsers, &s.TotalProducts, &s.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT
		   COALESCE(SUM(o.total_price), 0),
		   COALESCE(SUM(p.import_price), 0),
		   COALESCE(SUM(o.total_price - p.import_price), 0)
		 FROM orders o
		 JOIN products p ON o.product_id = p.id
		 WHERE o.status = $1`,
		string(model.OrderStatusCompleted),
	).Scan(&s.TotalRevenueCents, &s.TotalImportCostCents, &s.TotalProfitCents)
	if err != nil {
		return nil, fmt.Errorf("sum completed orders: %w", err)
	}

	return &s, nil
}
