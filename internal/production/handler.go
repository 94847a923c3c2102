package production

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

// Handler exposes the department workflow endpoints to floor staff.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the workflow routes; all require staff auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleOperator, auth.RoleAdmin))
		r.Get("/departments", h.listDepartments)
		r.Get("/orders/{orderID}/departments", h.orderStatuses)
		r.Post("/orders/{orderID}/departments/{departmentID}/action", h.act)
	})
}

type actionRequest struct {
	Action string `json:"action" validate:"required,oneof=start pause resume stop complete"`
	Notes  string `json:"notes" validate:"max=2000"`
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.Departments(r.Context())
	if err != nil {
		h.logger.Error("list departments failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": departments})
}

func (h *Handler) orderStatuses(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	statuses, err := h.service.OrderStatuses(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list order departments failed", "error", err, "order_id", orderID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"department_statuses": statuses})
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	departmentID, err := pathID(r, "departmentID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department id")
		return
	}

	var req actionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := shared.Validator().Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	operator := ""
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		operator = actor.Email
	}

	updated, err := h.service.Act(r.Context(), orderID, departmentID, req.Action, operator, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrDepartmentNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrAnotherActive):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidAction):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Action", err.Error())
		default:
			h.logger.Error("department action failed", "error", err, "order_id", orderID)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
