package orders_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/orders"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/events"
)

// ---------- Mocks ----------

// memStock backs both mock repos so the order repo's guarded decrement sees
// the same rows the inventory repo serves.
type memStock struct {
	mu    sync.Mutex
	items map[int64]domain.InventoryItem
}

type mockInventoryRepo struct{ st *memStock }

func (m *mockInventoryRepo) GetItem(_ context.Context, productID int64) (*domain.InventoryItem, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	it, ok := m.st.items[productID]
	if !ok {
		return nil, nil
	}
	cp := it
	return &cp, nil
}

func (m *mockInventoryRepo) ListAvailable(_ context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var out []domain.InventoryItem
	for _, it := range m.st.items {
		if it.QuantityOnHand > 0 {
			out = append(out, it)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	st     *memStock
	mu     sync.Mutex
	nextID int64
	orders []domain.Order
	bills  []domain.Bill
}

func (m *mockOrderRepo) PlaceOrder(_ context.Context, patientID int64, lines []domain.CheckoutLine, total decimal.Decimal, paymentMethod string) (*domain.Order, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	// Re-check every line under the lock, the way the guarded UPDATE does;
	// nothing is decremented unless every line fits.
	for _, line := range lines {
		it, ok := m.st.items[line.ProductID]
		if !ok || it.QuantityOnHand < line.Quantity {
			return nil, &domain.InsufficientStockError{ProductID: line.ProductID}
		}
	}
	for _, line := range lines {
		it := m.st.items[line.ProductID]
		it.QuantityOnHand -= line.Quantity
		m.st.items[line.ProductID] = it
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o := domain.Order{
		ID:        m.nextID,
		Reference: fmt.Sprintf("ref-%d", m.nextID),
		PatientID: patientID,
		Status:    domain.OrderPending,
		CreatedAt: time.Now(),
	}
	m.orders = append(m.orders, o)
	m.bills = append(m.bills, domain.Bill{
		OrderID:       o.ID,
		PatientID:     patientID,
		Date:          o.CreatedAt,
		TotalAmount:   total,
		PaymentMethod: paymentMethod,
	})
	return &o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, orderID int64, status domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == orderID {
			m.orders[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) ListRecent(_ context.Context, limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) has(subject string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

var _ events.Publisher = (*recordingBus)(nil)

type recordingProvider struct {
	mu      sync.Mutex
	charges []string
}

func (p *recordingProvider) Charge(_ context.Context, orderRef string, amount decimal.Decimal, method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charges = append(p.charges, orderRef)
	return nil
}

// ---------- Fixture ----------

type fixture struct {
	engine   *orders.Engine
	store    *session.Store
	stock    *memStock
	orders   *mockOrderRepo
	bus      *recordingBus
	provider *recordingProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := session.NewStore(rdb, 30*time.Minute)

	st := &memStock{items: map[int64]domain.InventoryItem{
		1: {ProductID: 1, Name: "Paracetamol", QuantityOnHand: 5, UnitRate: decimal.RequireFromString("4.50")},
		2: {ProductID: 2, Name: "Amoxicillin", QuantityOnHand: 2, UnitRate: decimal.RequireFromString("11.00")},
		3: {ProductID: 3, Name: "Ibuprofen", QuantityOnHand: 0, UnitRate: decimal.RequireFromString("6.25")},
	}}
	orderRepo := &mockOrderRepo{st: st}
	bus := &recordingBus{}
	provider := &recordingProvider{}

	return &fixture{
		engine:   orders.NewEngine(&mockInventoryRepo{st: st}, orderRepo, store, bus, provider),
		store:    store,
		stock:    st,
		orders:   orderRepo,
		bus:      bus,
		provider: provider,
	}
}

func (f *fixture) newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.store.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func (f *fixture) quantity(productID int64) int {
	f.stock.mu.Lock()
	defer f.stock.mu.Unlock()
	return f.stock.items[productID].QuantityOnHand
}

// ---------- Cart ----------

func TestAddToCartRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	for _, qty := range []int{0, -1, -100} {
		if err := f.engine.AddToCart(context.Background(), sess, 1, qty); !errors.Is(err, orders.ErrInvalidQuantity) {
			t.Errorf("qty %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.AddToCart(context.Background(), f.newSession(t), 99, 1); !errors.Is(err, orders.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestAddToCartZeroStockRejected(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	if err := f.engine.AddToCart(context.Background(), sess, 3, 1); !errors.Is(err, orders.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if len(sess.Cart) != 0 {
		t.Errorf("failed add must not change the cart: %v", sess.Cart)
	}
}

func TestAddToCartBeyondOnHandStillMerges(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	// Only 2 on hand, but the add is advisory: carting 3 succeeds and the
	// shortfall surfaces at checkout, not here.
	if err := f.engine.AddToCart(ctx, sess, 2, 3); err != nil {
		t.Fatalf("add past on-hand quantity: %v", err)
	}
	if sess.Cart[2] != 3 {
		t.Fatalf("cart must hold 3, got %d", sess.Cart[2])
	}
	// Nothing is reserved.
	if f.quantity(2) != 2 {
		t.Errorf("stock must be untouched, got %d", f.quantity(2))
	}

	_, err := f.engine.Checkout(ctx, sess, 1, "cash")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("checkout should fail with insufficient stock, got %v", err)
	}
	if sess.Cart[2] != 3 {
		t.Error("a failed checkout must leave the cart untouched")
	}
	if f.quantity(2) != 2 {
		t.Errorf("failed checkout must not move stock, got %d", f.quantity(2))
	}
}

func TestAddToCartMergesAndPersists(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.engine.AddToCart(ctx, sess, 1, 2); err != nil {
		t.Fatalf("second add: %v", err)
	}
	stored, err := f.store.Get(ctx, sess.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Cart[1] != 4 {
		t.Errorf("cart must merge and persist: %v", stored.Cart)
	}
}

func TestRemoveFromCartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.engine.RemoveFromCart(ctx, sess, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.engine.RemoveFromCart(ctx, sess, 1); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if err := f.engine.RemoveFromCart(ctx, sess, 42); err != nil {
		t.Fatalf("remove of never-added product: %v", err)
	}
	if len(sess.Cart) != 0 {
		t.Errorf("cart should be empty: %v", sess.Cart)
	}
}

// ---------- Checkout ----------

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Checkout(context.Background(), f.newSession(t), 1, "cash"); !errors.Is(err, orders.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutProductGone(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	f.stock.mu.Lock()
	delete(f.stock.items, 1)
	f.stock.mu.Unlock()

	_, err := f.engine.Checkout(ctx, sess, 1, "cash")
	if !errors.Is(err, domain.ErrProductGone) {
		t.Fatalf("expected product-gone error, got %v", err)
	}
	var gone *domain.ProductGoneError
	if !errors.As(err, &gone) || gone.ProductID != 1 {
		t.Fatalf("error should name the product: %v", err)
	}
	if sess.Cart[1] != 2 {
		t.Error("a failed checkout must leave the cart untouched")
	}
	if len(f.orders.orders) != 0 {
		t.Error("no order may be committed")
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 2, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Stock drains between add-to-cart and checkout.
	f.stock.mu.Lock()
	it := f.stock.items[2]
	it.QuantityOnHand = 1
	f.stock.items[2] = it
	f.stock.mu.Unlock()

	_, err := f.engine.Checkout(ctx, sess, 1, "cash")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient-stock error, got %v", err)
	}
	if sess.Cart[2] != 2 {
		t.Error("a failed checkout must leave the cart untouched")
	}
	if f.quantity(2) != 1 {
		t.Errorf("stock must be untouched, got %d", f.quantity(2))
	}
	if len(f.orders.orders) != 0 {
		t.Error("no order may be committed")
	}
}

func TestCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.engine.AddToCart(ctx, sess, 2, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	order, err := f.engine.Checkout(ctx, sess, 42, "cash")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if order.Status != domain.OrderPending {
		t.Errorf("new orders start Pending, got %q", order.Status)
	}
	if order.PatientID != 42 {
		t.Errorf("patient id: got %d", order.PatientID)
	}

	// 2 x 4.50 + 1 x 11.00
	if len(f.orders.bills) != 1 {
		t.Fatalf("expected one bill, got %d", len(f.orders.bills))
	}
	if got := f.orders.bills[0].TotalAmount.StringFixed(2); got != "20.00" {
		t.Errorf("bill total: got %s, want 20.00", got)
	}

	if f.quantity(1) != 3 || f.quantity(2) != 1 {
		t.Errorf("stock after checkout: %d, %d", f.quantity(1), f.quantity(2))
	}
	if len(sess.Cart) != 0 {
		t.Error("cart must be cleared on success")
	}
	if !strings.Contains(sess.Flash, order.Reference) {
		t.Errorf("confirmation flash should name the order: %q", sess.Flash)
	}
	if !f.bus.has(events.OrderPlaced) {
		t.Error("order.placed event not published")
	}
	if len(f.provider.charges) != 1 || f.provider.charges[0] != order.Reference {
		t.Errorf("payment provider charges: %v", f.provider.charges)
	}

	msg, err := f.engine.Confirmation(ctx, sess)
	if err != nil {
		t.Fatalf("Confirmation: %v", err)
	}
	if !strings.Contains(msg, order.Reference) {
		t.Errorf("confirmation message: %q", msg)
	}
	msg, err = f.engine.Confirmation(ctx, sess)
	if err != nil || msg != "" {
		t.Errorf("flash must be one-time, got %q (%v)", msg, err)
	}
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.stock.mu.Lock()
	it := f.stock.items[2]
	it.QuantityOnHand = 1
	f.stock.items[2] = it
	f.stock.mu.Unlock()

	a := f.newSession(t)
	b := f.newSession(t)
	if err := f.engine.AddToCart(ctx, a, 2, 1); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := f.engine.AddToCart(ctx, b, 2, 1); err != nil {
		t.Fatalf("add b: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sess := range []*session.Session{a, b} {
		wg.Add(1)
		go func(i int, sess *session.Session) {
			defer wg.Done()
			_, errs[i] = f.engine.Checkout(ctx, sess, int64(i+1), "cash")
		}(i, sess)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrInsufficientStock):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("exactly one checkout must win: won=%d lost=%d", won, lost)
	}
	if f.quantity(2) != 0 {
		t.Errorf("stock must end at 0, got %d", f.quantity(2))
	}
	if len(f.orders.orders) != 1 {
		t.Errorf("exactly one order must exist, got %d", len(f.orders.orders))
	}
}

// ---------- Status ----------

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	ctx := context.Background()

	if err := f.engine.AddToCart(ctx, sess, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.engine.Checkout(ctx, sess, 1, "cash")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if err := f.engine.UpdateOrderStatus(ctx, order.ID, "Shipped"); !errors.Is(err, orders.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := f.engine.UpdateOrderStatus(ctx, 9999, "Delivered"); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := f.engine.UpdateOrderStatus(ctx, order.ID, "Delivered"); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if f.orders.orders[0].Status != domain.OrderDelivered {
		t.Errorf("status: got %q", f.orders.orders[0].Status)
	}
	if !f.bus.has(events.OrderDelivered) {
		t.Error("order.delivered event not published")
	}
	// Delivery never touches stock.
	if f.quantity(1) != 4 {
		t.Errorf("stock after delivery: got %d", f.quantity(1))
	}
}
