package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ProductID      int64           `json:"product_id"`
	Name           string          `json:"name"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	UnitRate       decimal.Decimal `json:"unit_rate"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderDelivered OrderStatus = "Delivered"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderDelivered:
		return OrderStatus(s), true
	}
	return "", false
}

type Order struct {
	ID        int64       `json:"id"`
	Reference string      `json:"reference"`
	PatientID int64       `json:"patient_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

type OrderLine struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Bill struct {
	OrderID       int64           `json:"order_id"`
	PatientID     int64           `json:"patient_id"`
	Date          time.Time       `json:"date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
}

// CheckoutLine is a validated cart entry handed to the atomic order write.
type CheckoutLine struct {
	ProductID int64
	Quantity  int
	UnitRate  decimal.Decimal
}

// ErrProductGone marks a cart entry whose product no longer exists.
var ErrProductGone = errors.New("product no longer exists")

// ProductGoneError identifies the offending cart entry.
type ProductGoneError struct {
	ProductID int64
}

func (e *ProductGoneError) Error() string {
	return fmt.Sprintf("product %d no longer exists", e.ProductID)
}

func (e *ProductGoneError) Unwrap() error { return ErrProductGone }

// ErrInsufficientStock marks a decrement that would drive stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError identifies the product that cannot satisfy the
// ordered quantity.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
