package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arabesque/internal/audit"
	"arabesque/internal/billing"
	billingstore "arabesque/internal/billing/store"
	"arabesque/internal/identity"
	identitystore "arabesque/internal/identity/store"
	dErrors "arabesque/pkg/domainerrors"
)

type recordingTrail struct {
	events []audit.Event
}

func (r *recordingTrail) Emit(event audit.Event) {
	r.events = append(r.events, event)
}

type BillingSuite struct {
	suite.Suite
	users   *identitystore.InMemoryStore
	trail   *recordingTrail
	svc     *Service
	student *identity.User
}

func TestBillingSuite(t *testing.T) {
	suite.Run(t, new(BillingSuite))
}

func (s *BillingSuite) SetupTest() {
	s.users = identitystore.NewInMemory()
	s.trail = &recordingTrail{}
	s.svc = NewService(billingstore.NewInMemory(s.users), s.trail)

	s.student = &identity.User{
		ID:      uuid.New(),
		Name:    "Ana",
		Email:   "ana@example.com",
		Role:    identity.RoleStudent,
		Active:  true,
		Credits: 2,
	}
	s.Require().NoError(s.users.Save(context.Background(), s.student))
}

func (s *BillingSuite) TestRecordPaymentWithTopUp() {
	payment, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID:     s.student.ID,
		Amount:     120,
		Kind:       billing.KindIncome,
		AddCredits: 8,
	})
	s.Require().NoError(err)
	s.Equal(billing.KindIncome, payment.Kind)

	balance, ok := s.users.Balance(s.student.ID)
	s.Require().True(ok)
	s.Equal(10, balance)

	s.Require().Len(s.trail.events, 1)
	s.Equal(audit.ActionPaymentRecorded, s.trail.events[0].Action)
}

func (s *BillingSuite) TestRecordPaymentUnknownUser() {
	_, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID: uuid.New(),
		Amount: 120,
		Kind:   billing.KindIncome,
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *BillingSuite) TestRecordPaymentRejectsNegativeAmount() {
	_, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID: s.student.ID,
		Amount: -5,
		Kind:   billing.KindIncome,
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *BillingSuite) TestRecordPaymentRejectsUnknownKind() {
	_, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID: s.student.ID,
		Amount: 5,
		Kind:   billing.Kind("REFUND"),
	})
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *BillingSuite) TestDeletePaymentKeepsGrantedCredits() {
	payment, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID:     s.student.ID,
		Amount:     120,
		Kind:       billing.KindIncome,
		AddCredits: 8,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeletePayment(context.Background(), "admin-1", payment.ID))

	balance, _ := s.users.Balance(s.student.ID)
	s.Equal(10, balance)

	payments, err := s.svc.ListPayments(context.Background())
	s.Require().NoError(err)
	s.Empty(payments)
}

func (s *BillingSuite) TestListPaymentsForUserFilters() {
	other := &identity.User{ID: uuid.New(), Name: "Bea", Email: "bea@example.com", Active: true}
	s.Require().NoError(s.users.Save(context.Background(), other))

	for _, userID := range []uuid.UUID{s.student.ID, other.ID, s.student.ID} {
		_, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
			UserID: userID,
			Amount: 50,
			Kind:   billing.KindIncome,
		})
		s.Require().NoError(err)
	}

	payments, err := s.svc.ListPaymentsForUser(context.Background(), s.student.ID)
	s.Require().NoError(err)
	s.Len(payments, 2)
}

func (s *BillingSuite) TestPayrollIsAnExpenseKind() {
	teacher := &identity.User{ID: uuid.New(), Name: "Marta", Email: "marta@example.com", Role: identity.RoleTeacher, Active: true, MonthlySalary: 1800}
	s.Require().NoError(s.users.Save(context.Background(), teacher))

	payment, err := s.svc.RecordPayment(context.Background(), "admin-1", PaymentInput{
		UserID:      teacher.ID,
		Amount:      teacher.MonthlySalary,
		Kind:        billing.KindExpense,
		Description: "March payroll",
	})
	s.Require().NoError(err)
	s.Equal(billing.KindExpense, payment.Kind)
	s.Equal(1800.0, payment.Amount)
}

func (s *BillingSuite) TestExpenseLifecycle() {
	expense, err := s.svc.RecordExpense(context.Background(), "admin-1", ExpenseInput{
		Amount:      300,
		Description: "studio mirror repair",
		Date:        time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.Equal("general", expense.Category)

	expenses, err := s.svc.ListExpenses(context.Background())
	s.Require().NoError(err)
	s.Require().Len(expenses, 1)

	s.Require().NoError(s.svc.DeleteExpense(context.Background(), "admin-1", expense.ID))

	err = s.svc.DeleteExpense(context.Background(), "admin-1", expense.ID)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}
