// Package handler exposes the login endpoint and the token echo.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"arabesque/internal/auth"
	"arabesque/internal/identity"
	"arabesque/internal/platform/middleware"
	"arabesque/internal/transport/http/shared"
	dErrors "arabesque/pkg/domainerrors"
)

// LoginService runs the credential flow.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

type Handler struct {
	login  LoginService
	logger *slog.Logger
}

func New(login LoginService, logger *slog.Logger) *Handler {
	return &Handler{login: login, logger: logger}
}

// RegisterPublic mounts the routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtected mounts the routes behind the auth middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  *identity.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email is required"))
		return
	}
	if !govalidator.StringLength(req.Password, "1", "255") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "password is required"))
		return
	}

	result, err := h.login.Login(ctx, req.Email, req.Password)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnauthorized) || dErrors.Is(err, dErrors.CodeLocked) {
			h.logger.WarnContext(ctx, "login rejected",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "login failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "login failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{Token: result.Token, User: result.User})
}

type meResponse struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

// handleMe echoes the claims the middleware decoded from the bearer token.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shared.WriteJSON(w, http.StatusOK, meResponse{
		ID:   middleware.GetUserID(ctx),
		Role: middleware.GetRole(ctx),
		Name: middleware.GetName(ctx),
	})
}
