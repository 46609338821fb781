package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/query"
)

// sandboxClientID is what the PayPal SDK accepts when no account is set up.
const sandboxClientID = "sb"

type Handlers struct {
	cmdHandler     *command.Handler
	queryHandler   *query.Handler
	paypalClientID string
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, paypalClientID string) *Handlers {
	if paypalClientID == "" {
		paypalClientID = sandboxClientID
	}
	return &Handlers{
		cmdHandler:     cmdHandler,
		queryHandler:   queryHandler,
		paypalClientID: paypalClientID,
	}
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.User = order.Owner{ID: claims.UserID, Name: claims.Name, Email: claims.Email}

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"message": "New Order Created", "order": o})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/orders/")

	o, err := h.cmdHandler.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) PayOrder(w http.ResponseWriter, r *http.Request) {
	id := orderIDBefore(r.URL.Path, "/pay")

	var receipt payment.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.cmdHandler.PayOrder(r.Context(), command.PayOrder{OrderID: id, Receipt: receipt})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Order Paid", "order": o})
}

func (h *Handlers) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	id := orderIDBefore(r.URL.Path, "/deliver")

	o, err := h.cmdHandler.DeliverOrder(r.Context(), command.DeliverOrder{
		OrderID: id,
		AdminID: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Order Delivered", "order": o})
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/orders/")

	o, err := h.cmdHandler.DeleteOrder(r.Context(), command.DeleteOrder{
		OrderID: id,
		AdminID: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Order Deleted", "order": o})
}

// MyOrders lists the caller's own orders.
func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orders, err := h.queryHandler.ListOrders(r.Context(), store.OrderFilter{UserID: userID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// ListOrders lists every order, or with sellerMode=true only the caller's
// sales.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter store.OrderFilter
	if r.URL.Query().Get("sellerMode") == "true" {
		filter.SellerID = middleware.GetUserID(r.Context())
	}

	orders, err := h.queryHandler.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queryHandler.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Config Handlers

func (h *Handlers) PayPalClientID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.paypalClientID))
}

// Helper functions

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondMessage(w, http.StatusNotFound, "Order Not Found")
	case errors.Is(err, order.ErrValidation):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrInvalidReceipt):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrProviderTimeout):
		log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
		respondMessage(w, http.StatusGatewayTimeout, payment.ErrProviderTimeout.Error())
	case errors.Is(err, payment.ErrProvider):
		log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
		respondMessage(w, http.StatusBadGateway, payment.ErrProviderRejected.Error())
	default:
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func orderIDBefore(path, suffix string) string {
	return strings.TrimSuffix(extractPathParam(path, "/api/orders/"), suffix)
}
