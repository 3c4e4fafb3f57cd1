package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"arabesque/internal/booking"
	"arabesque/internal/booking/handler/mocks"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/testutil"
)

func newRouter(svc Service) http.Handler {
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestCreateBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	studentID := uuid.New()
	courseID := uuid.New()
	classDate := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	svc.EXPECT().
		Create(gomock.Any(), studentID, courseID, classDate).
		Return(&booking.Booking{
			ID:        7,
			UserID:    studentID,
			CourseID:  courseID,
			ClassDate: classDate,
			Status:    booking.StatusConfirmed,
		}, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
		"courseId":  courseID.String(),
		"classDate": "2026-03-10",
	})
	req = testutil.AsUser(req, studentID.String(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[booking.Booking](t, rr)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, booking.StatusConfirmed, created.Status)
}

func TestCreateBookingRejectsBadDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
		"courseId":  uuid.NewString(),
		"classDate": "10/03/2026",
	})
	req = testutil.AsUser(req, uuid.NewString(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestCreateBookingRejectsBadCourseID(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
		"courseId":  "ballet",
		"classDate": "2026-03-10",
	})
	req = testutil.AsUser(req, uuid.NewString(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestCreateBookingDomainFailures(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "insufficient credit",
			err:        dErrors.New(dErrors.CodeInsufficientCredit, "insufficient credit"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "insufficient_credit",
		},
		{
			name:       "capacity exceeded",
			err:        dErrors.New(dErrors.CodeCapacityExceeded, "class is full"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "capacity_exceeded",
		},
		{
			name:       "already booked",
			err:        dErrors.New(dErrors.CodeConflict, "already booked"),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "course missing",
			err:        dErrors.New(dErrors.CodeNotFound, "course not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockService(ctrl)
			router := newRouter(svc)

			svc.EXPECT().
				Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, tc.err)

			req := testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
				"courseId":  uuid.NewString(),
				"classDate": "2026-03-10",
			})
			req = testutil.AsUser(req, uuid.NewString(), "STUDENT", "Ana")

			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, tc.wantStatus, tc.wantCode)
		})
	}
}

func TestListBookingsEmptyIsJSONArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	studentID := uuid.New()
	svc.EXPECT().ListForUser(gomock.Any(), studentID).Return(nil, nil)

	req := testutil.NewRequest(t, http.MethodGet, "/bookings")
	req = testutil.AsUser(req, studentID.String(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestCancelBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	studentID := uuid.New()
	svc.EXPECT().Cancel(gomock.Any(), studentID, int64(42)).Return(nil)

	req := testutil.NewRequest(t, http.MethodDelete, "/bookings/42")
	req = testutil.AsUser(req, studentID.String(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestCancelBookingBadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc)

	req := testutil.NewRequest(t, http.MethodDelete, "/bookings/forty-two")
	req = testutil.AsUser(req, uuid.NewString(), "STUDENT", "Ana")

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}
