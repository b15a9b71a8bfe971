package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	mw "github.com/Umer-Fazal/pharmacore/internal/http/middleware"
	"github.com/Umer-Fazal/pharmacore/internal/http/response"
	"github.com/Umer-Fazal/pharmacore/internal/orders"
	"github.com/Umer-Fazal/pharmacore/internal/repo/postgres"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

type OrdersHandler struct {
	Engine   *orders.Engine
	Patients postgres.PatientRepo
}

func NewOrdersHandler(engine *orders.Engine, patients postgres.PatientRepo) *OrdersHandler {
	return &OrdersHandler{Engine: engine, Patients: patients}
}

// CartRoutes is mounted for authenticated patients.
func (h *OrdersHandler) CartRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.viewCart)
	r.Post("/items", h.addToCart)
	r.Delete("/items/{productID}", h.removeFromCart)
	return r
}


func (h *OrdersHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.Engine.ListMedicines(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list medicines", "error", err)
		response.InternalError(w, "could not load medicines")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"medicines": items})
}

func (h *OrdersHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}

	err := h.Engine.AddToCart(r.Context(), mw.Current(r), in.ProductID, in.Quantity)
	switch {
	case errors.Is(err, orders.ErrInvalidQuantity):
		response.BadRequest(w, err.Error())
	case errors.Is(err, orders.ErrUnknownProduct):
		response.NotFound(w, "unknown product")
	case errors.Is(err, orders.ErrOutOfStock):
		response.Conflict(w, "out of stock", response.CodeOutOfStock)
	case err != nil:
		logger.ErrorContext(r.Context(), "Failed to add to cart", "error", err)
		response.InternalError(w, "could not update cart")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *OrdersHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}
	if err := h.Engine.RemoveFromCart(r.Context(), mw.Current(r), productID); err != nil {
		logger.ErrorContext(r.Context(), "Failed to remove from cart", "error", err)
		response.InternalError(w, "could not update cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) viewCart(w http.ResponseWriter, r *http.Request) {
	lines, total, err := h.Engine.CartLines(r.Context(), mw.Current(r))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"total": total.StringFixed(2),
	})
}

func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PaymentMethod string `json:"payment_method"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid input")
			return
		}
	}

	sess := mw.Current(r)
	patient, err := h.Patients.FindByAccountID(r.Context(), sess.Identity.UserID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load patient profile", "error", err)
		response.InternalError(w, "checkout failed")
		return
	}
	if patient == nil {
		response.BadRequest(w, "no patient profile for this account")
		return
	}

	order, err := h.Engine.Checkout(r.Context(), sess, patient.ID, in.PaymentMethod)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, order)
}

// Confirmation pops the one-time message queued by a successful checkout.
func (h *OrdersHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Engine.Confirmation(r.Context(), mw.Current(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to read confirmation", "error", err)
		response.InternalError(w, "could not load confirmation")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// ListOrders returns recent orders for the staff dashboard.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.Engine.ListOrders(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list orders", "error", err)
		response.InternalError(w, "could not load orders")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// UpdateStatus moves an order between fulfillment states.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}

	err = h.Engine.UpdateOrderStatus(r.Context(), orderID, in.Status)
	switch {
	case errors.Is(err, orders.ErrInvalidStatus):
		response.WriteError(w, http.StatusBadRequest, "invalid order status", response.CodeInvalidStatus)
	case errors.Is(err, orders.ErrOrderNotFound):
		response.NotFound(w, "order not found")
	case err != nil:
		logger.ErrorContext(r.Context(), "Failed to update order status", "order_id", orderID, "error", err)
		response.InternalError(w, "could not update order")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *OrdersHandler) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	var gone *domain.ProductGoneError
	var short *domain.InsufficientStockError
	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		response.WriteError(w, http.StatusBadRequest, "the cart is empty", response.CodeEmptyCart)
	case errors.As(err, &gone):
		response.Conflict(w, gone.Error(), response.CodeProductGone)
	case errors.As(err, &short):
		response.Conflict(w, short.Error(), response.CodeInsufficientStock)
	default:
		logger.ErrorContext(r.Context(), "Checkout failed", "error", err)
		response.InternalError(w, "checkout failed")
	}
}
