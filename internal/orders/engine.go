package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/payments"
	"github.com/Umer-Fazal/pharmacore/internal/repo/postgres"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/events"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive whole number")
	ErrUnknownProduct  = errors.New("unknown product")
	// ErrOutOfStock rejects carting a product with zero on hand. Quantities
	// above the on-hand count still cart; the checkout transaction is the
	// binding check.
	ErrOutOfStock    = errors.New("out of stock")
	ErrEmptyCart     = errors.New("the cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrOrderNotFound = errors.New("order not found")
)

// Engine owns the cart and the checkout pipeline. The cart is pure session
// state; stock is only ever mutated inside the order transaction.
type Engine struct {
	inventory postgres.InventoryRepo
	orders    postgres.OrderRepo
	sessions  *session.Store
	bus       events.Publisher
	payments  payments.Provider
}

func NewEngine(inventory postgres.InventoryRepo, orders postgres.OrderRepo, sessions *session.Store, bus events.Publisher, provider payments.Provider) *Engine {
	return &Engine{
		inventory: inventory,
		orders:    orders,
		sessions:  sessions,
		bus:       bus,
		payments:  provider,
	}
}

// ListMedicines returns the purchasable catalog: products with stock on hand.
func (e *Engine) ListMedicines(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	return e.inventory.ListAvailable(ctx, limit, offset)
}

// AddToCart merges a quantity into the session cart. The stock check here
// is advisory: only a product with nothing on hand is rejected. Carting
// more than is on hand is allowed, and sessions may race each other doing
// it; the checkout transaction is where claims become binding.
func (e *Engine) AddToCart(ctx context.Context, sess *session.Session, productID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	item, err := e.inventory.GetItem(ctx, productID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrUnknownProduct
	}
	if item.QuantityOnHand == 0 {
		return ErrOutOfStock
	}
	sess.AddToCart(productID, qty)
	return e.sessions.Save(ctx, sess)
}

// RemoveFromCart drops a product from the cart. Removing a product that is
// not there succeeds quietly.
func (e *Engine) RemoveFromCart(ctx context.Context, sess *session.Session, productID int64) error {
	sess.RemoveFromCart(productID)
	return e.sessions.Save(ctx, sess)
}

// CartLines resolves the session cart against live inventory for display.
func (e *Engine) CartLines(ctx context.Context, sess *session.Session) ([]domain.CheckoutLine, decimal.Decimal, error) {
	lines, total, err := e.resolveCart(ctx, sess)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return lines, total, nil
}

// Checkout turns the cart into a committed order. Validation walks the cart
// in product-id order and fails fast; any failure, there or inside the
// transaction, leaves the cart untouched so the user can amend and retry.
// On success the cart is cleared and a confirmation flash is queued.
func (e *Engine) Checkout(ctx context.Context, sess *session.Session, patientID int64, paymentMethod string) (*domain.Order, error) {
	if len(sess.Cart) == 0 {
		return nil, ErrEmptyCart
	}
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	lines, total, err := e.resolveCart(ctx, sess)
	if err != nil {
		return nil, err
	}

	order, err := e.orders.PlaceOrder(ctx, patientID, lines, total, paymentMethod)
	if err != nil {
		return nil, err
	}

	sess.ClearCart()
	sess.Flash = fmt.Sprintf("Order %s placed successfully", order.Reference)
	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	if err := e.bus.Publish(ctx, events.OrderPlaced, events.OrderPlacedEvent{
		OrderID:       order.ID,
		PatientID:     patientID,
		TotalAmount:   total.StringFixed(2),
		PaymentMethod: paymentMethod,
		PlacedAt:      order.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish order event", "order_id", order.ID, "error", err)
	}

	// Charging is post-commit and best effort: the order stands either way
	// and a failed charge is settled manually.
	if err := e.payments.Charge(ctx, order.Reference, total, paymentMethod); err != nil {
		logger.ErrorContext(ctx, "Payment failed for committed order", "order_id", order.ID, "error", err)
	}

	return order, nil
}

// resolveCart re-reads every cart entry against live inventory and prices
// it. Deterministic product order keeps concurrent checkouts from locking
// rows in conflicting orders.
func (e *Engine) resolveCart(ctx context.Context, sess *session.Session) ([]domain.CheckoutLine, decimal.Decimal, error) {
	ids := make([]int64, 0, len(sess.Cart))
	for id := range sess.Cart {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]domain.CheckoutLine, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		qty := sess.Cart[id]
		item, err := e.inventory.GetItem(ctx, id)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if item == nil {
			return nil, decimal.Zero, &domain.ProductGoneError{ProductID: id}
		}
		if qty > item.QuantityOnHand {
			return nil, decimal.Zero, &domain.InsufficientStockError{ProductID: id}
		}
		lines = append(lines, domain.CheckoutLine{
			ProductID: id,
			Quantity:  qty,
			UnitRate:  item.UnitRate,
		})
		total = total.Add(item.UnitRate.Mul(decimal.NewFromInt(int64(qty))))
	}
	return lines, total, nil
}

// Confirmation pops the one-time confirmation message left by Checkout.
func (e *Engine) Confirmation(ctx context.Context, sess *session.Session) (string, error) {
	msg := sess.TakeFlash()
	if msg == "" {
		return "", nil
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	return msg, nil
}

// UpdateOrderStatus moves an order between fulfillment states. Runs outside
// any checkout transaction; it never touches stock.
func (e *Engine) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	parsed, ok := domain.ParseOrderStatus(status)
	if !ok {
		return ErrInvalidStatus
	}
	found, err := e.orders.UpdateStatus(ctx, orderID, parsed)
	if err != nil {
		return err
	}
	if !found {
		return ErrOrderNotFound
	}

	if parsed == domain.OrderDelivered {
		if err := e.bus.Publish(ctx, events.OrderDelivered, events.OrderDeliveredEvent{
			OrderID:     orderID,
			DeliveredAt: time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish delivery event", "order_id", orderID, "error", err)
		}
	}
	return nil
}

// ListOrders returns recent orders for the staff dashboard.
func (e *Engine) ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return e.orders.ListRecent(ctx, limit, offset)
}
