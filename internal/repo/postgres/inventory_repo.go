package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
)

type InventoryRepo interface {
	// GetItem returns the live stock row for a product; (nil, nil) when the
	// product does not exist.
	GetItem(ctx context.Context, productID int64) (*domain.InventoryItem, error)
	// ListAvailable returns products with quantity_on_hand > 0.
	ListAvailable(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error)
}

type InventoryRepoImpl struct{ pool *pgxpool.Pool }

func NewInventoryRepo(pool *pgxpool.Pool) *InventoryRepoImpl { return &InventoryRepoImpl{pool: pool} }

func (r *InventoryRepoImpl) GetItem(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	const q = `SELECT m.product_id, m.name, s.quantity, s.unit_rate
  FROM stock s
  JOIN medicines m ON s.product_id = m.product_id
  WHERE s.product_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var it domain.InventoryItem
	err := r.pool.QueryRow(ctx, q, productID).Scan(
		&it.ProductID, &it.Name, &it.QuantityOnHand, &it.UnitRate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *InventoryRepoImpl) ListAvailable(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT m.product_id, m.name, s.quantity, s.unit_rate
  FROM stock s
  JOIN medicines m ON s.product_id = m.product_id
  WHERE s.quantity > 0
  ORDER BY m.name ASC
  LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, limit)
	for rows.Next() {
		var it domain.InventoryItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.QuantityOnHand, &it.UnitRate); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

var _ InventoryRepo = (*InventoryRepoImpl)(nil)
