package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/redisx"
	"github.com/georgesalomon/umarket2/internal/service"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"

	defaultNotificationLimit = 20
)

type OrdersHandler struct {
	Service *service.Service
	Auth    TokenVerifier
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Auth))
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.createOrder)
		r.Patch("/orders/{id}", h.updateOrder)
		r.Get("/notifications", h.listNotifications)
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	orders, err := h.Service.ListOrders(ctx, Caller(ctx), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if err := decode(r, &req, market.ErrValidation); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	o, replayed, err := h.Service.CreateOrder(ctx, Caller(ctx), req, r.Header.Get(headerIdempotencyKey))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if replayed {
		w.Header().Set(headerReplayed, "true")
		writeJSON(w, http.StatusOK, o)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateOrderInput
	if err := decode(r, &req, market.ErrValidation); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	o, err := h.Service.UpdateOrder(ctx, Caller(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, market.NewValidationError("limit", "limit must be a positive integer", market.ErrValidation))
			return
		}
		limit = min(n, redisx.InboxLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	ns, err := h.Service.Notifications(ctx, Caller(ctx), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}
