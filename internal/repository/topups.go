package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

// CreateTopupRequest создаёт заявку на пополнение в статусе pending.
func (r *PostgresRepository) CreateTopupRequest(ctx context.Context, userID, amountCents int64, customerCode string) (*model.TopupRequest, error) {
	req := model.TopupRequest{
		UserID:       userID,
		AmountCents:  amountCents,
		CustomerCode: customerCode,
		Status:       model.TopupStatusPending,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO topup_requests (user_id, amount, customer_code, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		userID, amountCents, customerCode, string(model.TopupStatusPending),
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert topup request: %w", err)
	}

	return &req, nil
}

// GetTopupRequestsByUser возвращает заявки пользователя, новые первыми.
func (r *PostgresRepository) GetTopupRequestsByUser(ctx context.Context, userID int64) ([]model.TopupRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount, customer_code, status, notes, approved_by, approved_at, created_at
		 FROM topup_requests
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select topup requests: %w", err)
	}
	defer rows.Close()

	var requests []model.TopupRequest
	for rows.Next() {
		var req model.TopupRequest
		var status string
		if err := rows.Scan(&req.ID, &req.UserID, &req.AmountCents, &req.CustomerCode,
			&status, &req.Notes, &req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topup request: %w", err)
		}
		req.Status = model.TopupStatus(status)
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return requests, nil
}

// ListTopupRequests возвращает все заявки вместе с данными заявителя.
func (r *PostgresRepository) ListTopupRequests(ctx context.Context) ([]model.TopupRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tr.id, tr.user_id, tr.amount, tr.customer_code, tr.status, tr.notes,
		        tr.approved_by, tr.approved_at, tr.created_at, u.username, u.email
		 FROM topup_requests tr
		 JOIN users u ON tr.user_id = u.id
		 ORDER BY tr.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select all topup requests: %w", err)
	}
	defer rows.Close()

	var requests []model.TopupRequest
	for rows.Next() {
		var req model.TopupRequest
		var status string
		if err := rows.Scan(&req.ID, &req.UserID, &req.AmountCents, &req.CustomerCode,
			&status, &req.Notes, &req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt,
			&req.Username, &req.Email); err != nil {
			return nil, fmt.Errorf("scan topup request: %w", err)
		}
		req.Status = model.TopupStatus(status)
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return requests, nil
}

// ApproveTopupRequest подтверждает заявку и зачисляет сумму на баланс
// пользователя в одной транзакции. Строка заявки и строка пользователя
// блокируются FOR UPDATE, повторное подтверждение невозможно.
// Возвращает новый баланс пользователя в копейках.
func (r *PostgresRepository) ApproveTopupRequest(ctx context.Context, id, adminID int64, notes *string) (int64, error) {
	var newBalance int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		userID, amountCents, err := lockPendingTopup(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE topup_requests
			 SET status = $2, approved_by = $3, approved_at = now(), notes = $4
			 WHERE id = $1`,
			id, string(model.TopupStatusApproved), adminID, notes,
		)
		if err != nil {
			return fmt.Errorf("approve topup request: %w", err)
		}

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		err = tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
			userID, amountCents,
		).Scan(&newBalance)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})

	return newBalance, err
}

// RejectTopupRequest отклоняет заявку. Баланс пользователя не меняется.
func (r *PostgresRepository) RejectTopupRequest(ctx context.Context, id, adminID int64, notes *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, _, err := lockPendingTopup(ctx, tx, id); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE topup_requests
		 SET status = $2, approved_by = $3, approved_at = now(), notes = $4
		 WHERE id = $1`,
		id, string(model.TopupStatusRejected), adminID, notes,
	)
	if err != nil {
		return fmt.Errorf("reject topup request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// lockPendingTopup блокирует строку заявки и проверяет, что она ещё не обработана.
func lockPendingTopup(ctx context.Context, tx pgx.Tx, id int64) (userID, amountCents int64, err error) {
	var status string
	err = tx.QueryRow(ctx,
		`SELECT user_id, amount, status FROM topup_requests WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&userID, &amountCents, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrTopupNotFound
		}
		return 0, 0, fmt.Errorf("lock topup request: %w", err)
	}

	if model.TopupStatus(status) != model.TopupStatusPending {
		return 0, 0, ErrTopupProcessed
	}

	return userID, amountCents, nil
}
