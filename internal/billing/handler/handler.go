// Package handler exposes the money ledger. All routes are admin-only.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arabesque/internal/billing"
	"arabesque/internal/billing/service"
	"arabesque/internal/platform/middleware"
	"arabesque/internal/transport/http/shared"
	dErrors "arabesque/pkg/domainerrors"
)

// Service is the ledger surface the handler needs.
type Service interface {
	RecordPayment(ctx context.Context, actorID string, input service.PaymentInput) (*billing.Payment, error)
	ListPayments(ctx context.Context) ([]*billing.Payment, error)
	ListPaymentsForUser(ctx context.Context, userID uuid.UUID) ([]*billing.Payment, error)
	DeletePayment(ctx context.Context, actorID string, id uuid.UUID) error
	RecordExpense(ctx context.Context, actorID string, input service.ExpenseInput) (*billing.Expense, error)
	ListExpenses(ctx context.Context) ([]*billing.Expense, error)
	DeleteExpense(ctx context.Context, actorID string, id uuid.UUID) error
}

type Handler struct {
	ledger Service
	logger *slog.Logger
}

func New(ledger Service, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// Register mounts the ledger routes behind the admin middleware. They live
// under /users because that is the path the frontend already calls.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	admin := r.With(requireAdmin)
	admin.Get("/users/payments", h.handleListPayments)
	admin.Post("/users/payments", h.handleRecordPayment)
	admin.Delete("/users/payments/{id}", h.handleDeletePayment)
	admin.Get("/users/expenses", h.handleListExpenses)
	admin.Post("/users/expenses", h.handleRecordExpense)
	admin.Delete("/users/expenses/{id}", h.handleDeleteExpense)
}

type paymentRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	PaymentDate string  `json:"payment_date"`
	AddCredits  int     `json:"add_credits"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user_id must be a valid id"))
		return
	}

	input := service.PaymentInput{
		UserID:      userID,
		Amount:      req.Amount,
		Kind:        billing.Kind(req.Kind),
		Description: req.Description,
		AddCredits:  req.AddCredits,
	}
	if req.PaymentDate != "" {
		paymentDate, err := time.Parse(time.DateOnly, req.PaymentDate)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "payment_date must be YYYY-MM-DD"))
			return
		}
		input.PaymentDate = paymentDate
	}

	payment, err := h.ledger.RecordPayment(ctx, middleware.GetUserID(ctx), input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to record payment")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		payments []*billing.Payment
		err      error
	)
	if rawUserID := r.URL.Query().Get("user_id"); rawUserID != "" {
		userID, parseErr := uuid.Parse(rawUserID)
		if parseErr != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user_id must be a valid id"))
			return
		}
		payments, err = h.ledger.ListPaymentsForUser(ctx, userID)
	} else {
		payments, err = h.ledger.ListPayments(ctx)
	}
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list payments")
		return
	}
	if payments == nil {
		payments = []*billing.Payment{}
	}
	shared.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payment id"))
		return
	}
	if err := h.ledger.DeletePayment(ctx, middleware.GetUserID(ctx), id); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete payment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expenseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

func (h *Handler) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req expenseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	input := service.ExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Date != "" {
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
			return
		}
		input.Date = date
	}

	expense, err := h.ledger.RecordExpense(ctx, middleware.GetUserID(ctx), input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to record expense")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, expense)
}

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.ledger.ListExpenses(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []*billing.Expense{}
	}
	shared.WriteJSON(w, http.StatusOK, expenses)
}

func (h *Handler) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid expense id"))
		return
	}
	if err := h.ledger.DeleteExpense(ctx, middleware.GetUserID(ctx), id); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete expense")
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
