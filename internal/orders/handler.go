package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/platform/httpx"
	"github.com/printforge/printforge/internal/pricing"
	"github.com/printforge/printforge/internal/pricing/books"
	"github.com/printforge/printforge/internal/shared"
)

// Handler exposes checkout, order reads, and the staff order flow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	timeline *TimelineBuilder
	guard    auth.Middleware
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, timelineBuilder *TimelineBuilder, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, timeline: timelineBuilder, guard: guard}
}

// MountRoutes registers customer-facing order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{orderID}", h.show)
	r.Get("/{orderID}/timeline", h.showTimeline)
	r.Get("/{orderID}/invoice", h.showInvoice)
}

// MountAdminRoutes registers the staff order flow.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleOperator, auth.RoleAdmin))
		r.Get("/", h.list)
		r.Patch("/{orderID}/status", h.updateStatus)
	})
}

// MountWebhookRoutes registers the payment gateway callback.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/payment", h.paymentWebhook)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrProductInactive), errors.Is(err, ErrArtworkRequired),
			errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrUnknownSelection):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Order", err.Error())
		case errors.Is(err, books.ErrNoPriceAvailable):
			httpx.Problem(w, http.StatusUnprocessableEntity, "No Price Available", err.Error())
		case errors.Is(err, books.ErrNotAvailableInZone):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Not Available In Zone", err.Error())
		default:
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
				return
			}
			h.logger.Error("create order failed", "error", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) showTimeline(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	stages, err := h.timeline.Build(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("build timeline failed", "error", err, "order_id", orderID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stages": stages})
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	breakdown, err := h.service.Breakdown(r.Context(), order)
	if err != nil {
		h.logger.Error("invoice breakdown failed", "error", err, "order_id", order.ID)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RenderInvoiceText(*order, breakdown)))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	response, err := h.service.List(r.Context(), ListQuery{
		Status:  r.URL.Query().Get("status"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list orders failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, response)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrInvalidTransition):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
		default:
			h.logger.Error("update order status failed", "error", err, "order_id", orderID)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var payload PaymentWebhookPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.HandlePaymentWebhook(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, ErrUnknownPaymentCode):
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		case errors.Is(err, ErrOrderNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		default:
			h.logger.Error("payment webhook failed", "error", err, "order_number", payload.OrderNumber)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request) (*Order, bool) {
	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return nil, false
	}
	order, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return nil, false
		}
		h.logger.Error("load order failed", "error", err, "order_id", orderID)
		httpx.RespondError(w, err)
		return nil, false
	}
	return order, true
}

func orderIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}
