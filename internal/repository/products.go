package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

const productColumns = `id, game_name, account_level, price, import_price, description,
	account_info, featured_image, images, status, created_at`

// CreateProduct сохраняет новый товар и возвращает его с заполненными id и created_at.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	images, err := marshalImages(p.Images)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (game_name, account_level, price, import_price, description, account_info, featured_image, images, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+productColumns,
		p.GameName, p.AccountLevel, p.PriceCents, p.ImportPriceCents, p.Description,
		p.AccountInfo, p.FeaturedImage, images, string(p.Status),
	)

	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts возвращает товары, новые первыми. При onlyAvailable=true
// возвращаются только товары в статусе available.
func (r *PostgresRepository) ListProducts(ctx context.Context, onlyAvailable bool) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []interface{}{}

	if onlyAvailable {
		query += ` WHERE status = $1`
		args = append(args, string(model.ProductStatusAvailable))
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct перезаписывает поля товара и возвращает обновлённую запись.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, p *model.Product) (*model.Product, error) {
	images, err := marshalImages(p.Images)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE products
		 SET game_name = $2, account_level = $3, price = $4, import_price = $5,
		     description = $6, account_info = $7, featured_image = $8, images = $9, status = $10
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, p.GameName, p.AccountLevel, p.PriceCents, p.ImportPriceCents,
		p.Description, p.AccountInfo, p.FeaturedImage, images, string(p.Status),
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// DeleteProduct удаляет товар. Отсутствие товара ошибкой не считается.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	var status string
	var images []byte

	err := row.Scan(&p.ID, &p.GameName, &p.AccountLevel, &p.PriceCents, &p.ImportPriceCents,
		&p.Description, &p.AccountInfo, &p.FeaturedImage, &images, &status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = model.ProductStatus(status)
	p.Images = []string{}
	if len(images) > 0 {
		// Повреждённое содержимое колонки не считается фатальным: список остаётся пустым.
		_ = json.Unmarshal(images, &p.Images)
	}

	return &p, nil
}

func marshalImages(images []string) ([]byte, error) {
	if len(images) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	return data, nil
}
