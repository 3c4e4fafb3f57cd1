// Package handler exposes the booking ledger over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arabesque/internal/booking"
	"arabesque/internal/platform/middleware"
	"arabesque/internal/transport/http/shared"
	dErrors "arabesque/pkg/domainerrors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service is the booking ledger surface the handler needs.
type Service interface {
	Create(ctx context.Context, studentID, courseID uuid.UUID, classDate time.Time) (*booking.Booking, error)
	Cancel(ctx context.Context, studentID uuid.UUID, bookingID int64) error
	ListForUser(ctx context.Context, studentID uuid.UUID) ([]*booking.Booking, error)
}

type Handler struct {
	bookings Service
	logger   *slog.Logger
}

func New(bookings Service, logger *slog.Logger) *Handler {
	return &Handler{bookings: bookings, logger: logger}
}

// Register mounts the booking routes; all of them need a token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bookings", h.handleCreate)
	r.Get("/bookings", h.handleList)
	r.Delete("/bookings/{id}", h.handleCancel)
}

type createRequest struct {
	CourseID  string `json:"courseId"`
	ClassDate string `json:"classDate"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studentID, err := uuid.Parse(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}

	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "courseId must be a valid id"))
		return
	}
	classDate, err := time.Parse(time.DateOnly, req.ClassDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "classDate must be YYYY-MM-DD"))
		return
	}

	created, err := h.bookings.Create(ctx, studentID, courseID, classDate)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create booking")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studentID, err := uuid.Parse(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}

	bookings, err := h.bookings.ListForUser(ctx, studentID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []*booking.Booking{}
	}
	shared.WriteJSON(w, http.StatusOK, bookings)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studentID, err := uuid.Parse(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid booking id"))
		return
	}

	if err := h.bookings.Cancel(ctx, studentID, bookingID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to cancel booking")
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
