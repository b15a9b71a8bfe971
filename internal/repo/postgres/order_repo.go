package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
)

type OrderRepo interface {
	// PlaceOrder commits the order, its lines, the guarded stock decrements
	// and the bill in one transaction. Any failure leaves nothing behind.
	PlaceOrder(ctx context.Context, patientID int64, lines []domain.CheckoutLine, total decimal.Decimal, paymentMethod string) (*domain.Order, error)
	// UpdateStatus is a plain single-row update, outside any checkout.
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (bool, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.Order, error)
}

type OrderRepoImpl struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepoImpl { return &OrderRepoImpl{pool: pool} }

const orderCols = `id, reference, patient_id, status, created_at`

func (r *OrderRepoImpl) PlaceOrder(ctx context.Context, patientID int64, lines []domain.CheckoutLine, total decimal.Decimal, paymentMethod string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var o domain.Order
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (reference, patient_id, status) VALUES ($1, $2, $3)
  RETURNING `+orderCols,
		uuid.NewString(), patientID, domain.OrderPending,
	).Scan(&o.ID, &o.Reference, &o.PatientID, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			o.ID, line.ProductID, line.Quantity,
		); err != nil {
			return nil, err
		}

		// Guarded decrement: re-checks quantity at write time. The UPDATE's
		// row lock serializes concurrent checkouts touching the same product,
		// so two orders can never both consume the last unit.
		ct, err := tx.Exec(ctx,
			`UPDATE stock SET quantity = quantity - $1
  WHERE product_id = $2 AND quantity >= $1`,
			line.Quantity, line.ProductID,
		)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			return nil, &domain.InsufficientStockError{ProductID: line.ProductID}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO bills (order_id, patient_id, bill_date, total_amount, payment_method)
  VALUES ($1, $2, $3, $4, $5)`,
		o.ID, patientID, o.CreatedAt, total, paymentMethod,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepoImpl) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status = $1 WHERE id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, status, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *OrderRepoImpl) ListRecent(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + orderCols + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.PatientID, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

var _ OrderRepo = (*OrderRepoImpl)(nil)
