package books

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/platform/httpx"
	"github.com/printforge/printforge/internal/shared"
)

// Handler exposes the pricing resolution and conflict protocol endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the public resolution route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/resolve", h.resolve)
}

// MountAdminRoutes registers the conflict protocol under /admin/pricing.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Post("/detect-conflicts", h.detectConflicts)
		r.Post("/resolve-conflict", h.resolveConflict)
		r.Post("/smart-view/update", h.smartViewUpdate)
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "product_id is required")
		return
	}
	rctx := ResolutionContext{Quantity: 1}
	if q, err := strconv.Atoi(r.URL.Query().Get("quantity")); err == nil && q > 0 {
		rctx.Quantity = q
	}
	if zone, err := strconv.ParseInt(r.URL.Query().Get("zone_id"), 10, 64); err == nil {
		rctx.ZoneID = &zone
	}
	if segment, err := strconv.ParseInt(r.URL.Query().Get("segment_id"), 10, 64); err == nil {
		rctx.SegmentID = &segment
	}

	resolved, err := h.service.ResolveEffectivePrice(r.Context(), productID, rctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoPriceAvailable):
			httpx.Problem(w, http.StatusNotFound, "No Price Available", err.Error())
		case errors.Is(err, ErrNotAvailableInZone):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Not Available In Zone", err.Error())
		default:
			h.logger.Error("resolve price failed", "error", err, "product_id", productID)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, resolved)
}

// PriceEditRequest is the wire shape shared by the conflict endpoints.
type PriceEditRequest struct {
	Level     *Level  `json:"level,omitempty"`
	ZoneID    *int64  `json:"zone_id,omitempty"`
	SegmentID *int64  `json:"segment_id,omitempty"`
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	NewPrice  float64 `json:"new_price" validate:"required,gt=0"`
}

// ResolveConflictRequest selects one strategy for a detected report.
type ResolveConflictRequest struct {
	PriceEditRequest
	ResolutionID string `json:"resolution_id" validate:"required,oneof=OVERWRITE PRESERVE RELATIVE"`
}

type resolveConflictResponse struct {
	Success      bool `json:"success"`
	UpdatedCount int  `json:"updated_count"`
}

type conflictReportResponse struct {
	HasConflicts bool               `json:"has_conflicts"`
	Items        []ConflictItem     `json:"affected_items"`
	Options      []ResolutionOption `json:"resolution_options"`
	Pagination   shared.Pagination  `json:"pagination"`
}

func (req PriceEditRequest) toEdit() Edit {
	edit := Edit{
		ZoneID:    req.ZoneID,
		SegmentID: req.SegmentID,
		ProductID: req.ProductID,
		NewPrice:  req.NewPrice,
	}
	switch {
	case req.Level != nil:
		edit.Level = *req.Level
	case req.ZoneID != nil && req.SegmentID != nil:
		edit.Level = LevelZoneSegment
	case req.ZoneID != nil:
		edit.Level = LevelZone
	default:
		edit.Level = LevelMaster
	}
	return edit
}

func (h *Handler) detectConflicts(w http.ResponseWriter, r *http.Request) {
	var req PriceEditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	report, err := h.service.DetectConflicts(r.Context(), req.toEdit())
	if err != nil {
		h.logger.Error("detect conflicts failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginateReport(report, r))
}

func (h *Handler) resolveConflict(w http.ResponseWriter, r *http.Request) {
	var req ResolveConflictRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	updated, err := h.service.ApplyResolution(r.Context(), req.toEdit(), req.ResolutionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownStrategy):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrResolutionFailed):
			// Atomic rollback already happened; the admin can retry.
			httpx.Problem(w, http.StatusConflict, "Resolution Failed", err.Error())
		default:
			h.logger.Error("resolve conflict failed", "error", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, resolveConflictResponse{Success: true, UpdatedCount: updated})
}

func (h *Handler) smartViewUpdate(w http.ResponseWriter, r *http.Request) {
	var req PriceEditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	edit := req.toEdit()
	report, err := h.service.DetectConflicts(r.Context(), edit)
	if err != nil {
		h.logger.Error("smart view detect failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if report.HasConflicts {
		// The admin must pick a strategy through resolve-conflict.
		httpx.JSON(w, http.StatusConflict, paginateReport(report, r))
		return
	}

	if err := h.service.UpdatePrice(r.Context(), edit); err != nil {
		h.logger.Error("smart view update failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolveConflictResponse{Success: true, UpdatedCount: 0})
}

// paginateReport windows the affected items; the report itself always
// enumerates every descendant.
func paginateReport(report *ConflictReport, r *http.Request) conflictReportResponse {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > 500 {
		perPage = 100
	}
	pagination := shared.NewPagination(page, perPage, len(report.Items))

	start := (pagination.Page - 1) * pagination.PerPage
	if start > len(report.Items) {
		start = len(report.Items)
	}
	end := start + pagination.PerPage
	if end > len(report.Items) {
		end = len(report.Items)
	}

	return conflictReportResponse{
		HasConflicts: report.HasConflicts,
		Items:        report.Items[start:end],
		Options:      report.Options,
		Pagination:   pagination,
	}
}
