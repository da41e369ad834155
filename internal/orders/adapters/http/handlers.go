package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dejobratic/storefront/internal/orders/app"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// UserIDHeader carries the caller's identity. Requests without it act as an
// internal caller and are not scoped to a user.
const UserIDHeader = "X-User-ID"

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register binds the order handlers to the provided router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Put("/", h.updateOrder)
			r.Delete("/", h.cancelOrder)
			r.Post("/cancel", h.cancelOrder)
			r.Get("/status", h.statusHistory)
			r.Put("/status", h.updateStatus)
			r.Get("/tracking", h.tracking)
			r.Post("/refund", h.refundOrder)
			r.Get("/invoice", h.invoice)
		})
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idemKey := idempotencyKey(userID(r), r.Header.Get("Idempotency-Key"))

	if idemKey != "" {
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if stored != nil {
			for key, values := range restoreHeaders() {
				for _, value := range values {
					w.Header().Add(key, value)
				}
			}
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload app.CreateOrderInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	order, err := h.service.CreateOrder(ctx, userID(r), payload)
	if !h.handleResult(w, r, order, err) {
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    order.ID,
		}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/orders/"+order.ID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), userID(r), chi.URLParam(r, "id"))
	if !h.handleResult(w, r, order, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	filter.UserID = userID(r)

	result, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type updateOrderRequest struct {
	Status            *domain.OrderStatus   `json:"status"`
	PaymentStatus     *domain.PaymentStatus `json:"payment_status"`
	ShippingAddress   *domain.Address       `json:"shipping_address"`
	BillingAddress    *domain.Address       `json:"billing_address"`
	PaymentMethod     *string               `json:"payment_method"`
	PaymentReference  *string               `json:"payment_reference"`
	TrackingNumber    *string               `json:"tracking_number"`
	TrackingURL       *string               `json:"tracking_url"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery"`
	Notes             *string               `json:"notes"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := domain.OrderPatch{
		PaymentStatus:     req.PaymentStatus,
		ShippingAddress:   req.ShippingAddress,
		BillingAddress:    req.BillingAddress,
		PaymentMethod:     req.PaymentMethod,
		PaymentReference:  req.PaymentReference,
		TrackingNumber:    req.TrackingNumber,
		TrackingURL:       req.TrackingURL,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	}

	order, err := h.service.UpdateOrder(r.Context(), userID(r), chi.URLParam(r, "id"), patch, req.Status)
	if !h.handleResult(w, r, order, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if r.Method == http.MethodPost {
		var req cancelRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		if req.Reason != "" {
			reason = req.Reason
		}
	}

	order, err := h.service.CancelOrder(r.Context(), userID(r), chi.URLParam(r, "id"), reason)
	if !h.handleResult(w, r, order, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) statusHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.StatusHistory(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req app.StatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if !h.handleResult(w, r, order, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) tracking(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Tracking(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": info})
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	order, err := h.service.RefundOrder(r.Context(), userID(r), chi.URLParam(r, "id"), req.AmountCents, req.Reason)
	if !h.handleResult(w, r, order, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) invoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.Invoice(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", invoice.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", invoice.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(invoice.Body)
}

// handleResult writes an error response unless the command produced an order.
// A returned order with an error means the write committed but the event did
// not go out; that is logged and the request still succeeds.
func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request, order *domain.Order, err error) bool {
	if err == nil {
		return true
	}
	if order != nil {
		h.logger.WarnContext(r.Context(), "order persisted without event",
			"order_id", order.ID,
			"error", err,
		)
		return true
	}
	writeDomainError(w, err)
	return false
}

func parseListFilter(r *http.Request) (ports.ListFilter, error) {
	q := r.URL.Query()
	filter := ports.ListFilter{}

	if v := q.Get("status"); v != "" {
		status, err := domain.ParseOrderStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if v := q.Get("payment_status"); v != "" {
		status, err := domain.ParsePaymentStatus(v)
		if err != nil {
			return filter, err
		}
		filter.PaymentStatus = &status
	}
	if v := q.Get("start_date"); v != "" {
		t, err := parseDate("start_date", v)
		if err != nil {
			return filter, err
		}
		filter.CreatedFrom = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := parseDate("end_date", v)
		if err != nil {
			return filter, err
		}
		filter.CreatedTo = &t
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, domain.NewValidationError("page", "must be a positive integer")
		}
		filter.Page = page
	}
	limit := q.Get("limit")
	if limit == "" {
		limit = q.Get("page_size")
	}
	if limit != "" {
		size, err := strconv.Atoi(limit)
		if err != nil || size < 1 {
			return filter, domain.NewValidationError("limit", "must be a positive integer")
		}
		filter.PageSize = size
	}
	return filter, nil
}

func parseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		if field == "end_date" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, domain.NewValidationError(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// idempotencyKey scopes a client key to its caller so one user can never
// replay another user's response.
func idempotencyKey(userID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return userID + ":" + key
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderClosed),
		errors.Is(err, domain.ErrRefundNotAllowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// restoreHeaders returns the headers sent with a replayed response.
func restoreHeaders() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Idempotent-Replayed", "true")
	return header
}
