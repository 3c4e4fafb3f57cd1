// Package handler exposes registration and profile CRUD.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arabesque/internal/identity"
	"arabesque/internal/identity/service"
	"arabesque/internal/platform/middleware"
	"arabesque/internal/transport/http/shared"
	dErrors "arabesque/pkg/domainerrors"
)

// Service is the identity operations surface the handler needs.
type Service interface {
	Register(ctx context.Context, input service.RegisterInput) (*identity.User, error)
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
	List(ctx context.Context) ([]*identity.User, error)
	Update(ctx context.Context, id uuid.UUID, input service.UpdateInput) (*identity.User, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
}

type Handler struct {
	identity Service
	logger   *slog.Logger
}

func New(identitySvc Service, logger *slog.Logger) *Handler {
	return &Handler{identity: identitySvc, logger: logger}
}

// RegisterPublic mounts the routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/users/register", h.handleRegister)
}

// RegisterProtected mounts the profile routes behind the auth middleware;
// requireAdmin wraps the destructive ones.
func (h *Handler) RegisterProtected(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/users", h.handleList)
	r.Get("/users/me", h.handleMe)
	r.Put("/users/{id}", h.handleUpdate)
	r.With(requireAdmin).Delete("/users/{id}", h.handleDelete)
}

type registerRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	PlanType      string  `json:"plan_type"`
	WeeklyLimit   int     `json:"weekly_limit"`
	MonthlySalary float64 `json:"monthly_salary"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if !govalidator.StringLength(req.Name, "1", "100") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}
	if !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a valid email is required"))
		return
	}
	if !govalidator.StringLength(req.Password, "8", "255") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters"))
		return
	}
	role := identity.Role(req.Role)
	if req.Role != "" && !role.Valid() {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
		return
	}
	if req.WeeklyLimit < 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "weekly_limit must not be negative"))
		return
	}

	user, err := h.identity.Register(ctx, service.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		PlanType:      req.PlanType,
		WeeklyLimit:   req.WeeklyLimit,
		MonthlySalary: req.MonthlySalary,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to register user")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "failed to list users")
		return
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := uuid.Parse(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}
	user, err := h.identity.Get(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to read profile")
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

type updateRequest struct {
	Name          *string           `json:"name"`
	Email         *string           `json:"email"`
	Role          *string           `json:"role"`
	PlanType      *string           `json:"plan_type"`
	WeeklyLimit   *int              `json:"weekly_limit"`
	MonthlySalary *float64          `json:"monthly_salary"`
	Measurements  map[string]string `json:"measurements"`
	Active        *bool             `json:"is_active"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	var req updateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	isAdmin := middleware.GetRole(ctx) == string(identity.RoleAdmin)
	if !isAdmin && middleware.GetUserID(ctx) != id.String() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot update another user"))
		return
	}
	if !isAdmin && (req.Role != nil || req.Active != nil || req.MonthlySalary != nil) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role, salary and status changes require an administrator"))
		return
	}

	input := service.UpdateInput{
		Name:          req.Name,
		Email:         req.Email,
		PlanType:      req.PlanType,
		WeeklyLimit:   req.WeeklyLimit,
		MonthlySalary: req.MonthlySalary,
		Measurements:  req.Measurements,
		Active:        req.Active,
	}
	if req.Email != nil && !govalidator.IsEmail(*req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a valid email is required"))
		return
	}
	if req.WeeklyLimit != nil && *req.WeeklyLimit < 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "weekly_limit must not be negative"))
		return
	}
	if req.Role != nil {
		role := identity.Role(*req.Role)
		if !role.Valid() {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
			return
		}
		input.Role = &role
	}

	user, err := h.identity.Update(ctx, id, input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update user")
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.identity.Delete(ctx, middleware.GetUserID(ctx), id); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	shared.WriteError(w, err)
}
