package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

// CreateOrder оформляет покупку товара в одной транзакции: строка товара
// блокируется FOR UPDATE, при оплате с баланса блокируется и строка покупателя.
// Параллельные покупки одного товара или параллельные списания с одного
// баланса сериализуются этими блокировками.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID, productID int64, paymentMethod string) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			priceCents   int64
			status       string
			gameName     string
			accountLevel string
		)
		err = tx.QueryRow(ctx,
			`SELECT price, status, game_name, account_level FROM products WHERE id = $1 FOR UPDATE`,
			productID,
		).Scan(&priceCents, &status, &gameName, &accountLevel)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		if model.ProductStatus(status) != model.ProductStatusAvailable {
			return ErrProductUnavailable
		}

		orderStatus := model.OrderStatusPending

		if paymentMethod == model.PaymentMethodWallet {
			var balanceCents int64
			err = tx.QueryRow(ctx,
				`SELECT balance FROM users WHERE id = $1 FOR UPDATE`,
				userID,
			).Scan(&balanceCents)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrUserNotFound
				}
				return fmt.Errorf("lock user: %w", err)
			}

			if balanceCents < priceCents {
				return ErrInsufficientBalance
			}

			_, err = tx.Exec(ctx,
				`UPDATE users SET balance = balance - $2 WHERE id = $1`,
				userID, priceCents,
			)
			if err != nil {
				return fmt.Errorf("debit balance: %w", err)
			}

			orderStatus = model.OrderStatusCompleted
		}

		o := model.Order{
			UserID:          userID,
			ProductID:       productID,
			TotalPriceCents: priceCents,
			PaymentMethod:   paymentMethod,
			Status:          orderStatus,
			GameName:        gameName,
			AccountLevel:    accountLevel,
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, product_id, total_price, payment_method, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			userID, productID, priceCents, paymentMethod, string(orderStatus),
		).Scan(&o.ID, &o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET status = $2 WHERE id = $1`,
			productID, string(model.ProductStatusSold),
		)
		if err != nil {
			return fmt.Errorf("mark product sold: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		order = &o
		return nil
	})

	return order, err
}

// GetOrdersByUser возвращает заказы пользователя вместе с данными товара,
// включая учётные данные аккаунта. Скрытие учётных данных для незавершённых
// заказов выполняется на уровне сервиса.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.user_id, o.product_id, o.total_price, o.payment_method, o.status, o.created_at,
		        p.game_name, p.account_level, p.account_info
		 FROM orders o
		 JOIN products p ON o.product_id = p.id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var status string
		var accountInfo string
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProductID, &o.TotalPriceCents, &o.PaymentMethod,
			&status, &o.CreatedAt, &o.GameName, &o.AccountLevel, &accountInfo); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		o.AccountInfo = &accountInfo
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// ListAllOrders возвращает все заказы с данными товара и покупателя.
func (r *PostgresRepository) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.user_id, o.product_id, o.total_price, o.payment_method, o.status, o.created_at,
		        p.game_name, p.account_level, u.username, u.email
		 FROM orders o
		 JOIN products p ON o.product_id = p.id
		 JOIN users u ON o.user_id = u.id
		 ORDER BY o.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select all orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProductID, &o.TotalPriceCents, &o.PaymentMethod,
			&status, &o.CreatedAt, &o.GameName, &o.AccountLevel, &o.Username, &o.Email); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus переводит заказ в новый статус. Завершённый заказ
// перевести в другой статус нельзя.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if model.OrderStatus(current) == model.OrderStatusCompleted && status != model.OrderStatusCompleted {
		return nil, ErrOrderCompleted
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	var o model.Order
	var updated string
	err = tx.QueryRow(ctx,
		`SELECT o.id, o.user_id, o.product_id, o.total_price, o.payment_method, o.status, o.created_at,
		        p.game_name, p.account_level, u.username, u.email
		 FROM orders o
		 JOIN products p ON o.product_id = p.id
		 JOIN users u ON o.user_id = u.id
		 WHERE o.id = $1`,
		id,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.TotalPriceCents, &o.PaymentMethod,
		&updated, &o.CreatedAt, &o.GameName, &o.AccountLevel, &o.Username, &o.Email)
	if err != nil {
		return nil, fmt.Errorf("select updated order: %w", err)
	}
	o.Status = model.OrderStatus(updated)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &o, nil
}
