package shipment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/printforge/printforge/internal/platform/httpx"
)

// Handler exposes the courier webhook and serviceability lookups.
type Handler struct {
	logger         *slog.Logger
	webhooks       *WebhookService
	serviceability Serviceability
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, webhooks *WebhookService, serviceability Serviceability) *Handler {
	return &Handler{logger: logger, webhooks: webhooks, serviceability: serviceability}
}

// MountWebhookRoutes registers the courier callback endpoint.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/courier", h.courierWebhook)
}

// MountRoutes registers customer-facing shipping lookups.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/serviceability", h.checkServiceability)
}

func (h *Handler) courierWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	result, err := h.webhooks.Ingest(r.Context(), payload)
	if err != nil {
		h.logger.Error("courier webhook failed", "error", err, "awb_code", payload.AWBCode)
		httpx.RespondError(w, err)
		return
	}
	// Always 200 for handled events, duplicates included, so the vendor
	// stops retrying.
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func (h *Handler) checkServiceability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pickup := query.Get("pickup_pincode")
	delivery := query.Get("delivery_pincode")
	if pickup == "" || delivery == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "pickup_pincode and delivery_pincode are required")
		return
	}
	weight, err := strconv.ParseFloat(query.Get("weight_kg"), 64)
	if err != nil || weight <= 0 {
		weight = 0.5
	}
	paymentMode := query.Get("payment_mode")

	options, err := h.serviceability.CheckServiceability(r.Context(), pickup, delivery, weight, paymentMode)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoCourierAvailable):
			httpx.Problem(w, http.StatusNotFound, "No Courier Available", err.Error())
		default:
			h.logger.Error("serviceability check failed", "error", err)
			httpx.Problem(w, http.StatusBadGateway, "Courier Lookup Failed", "courier aggregator unavailable")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"available_couriers": options})
}
