// Package handler exposes the course catalog and the attendance register.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arabesque/internal/platform/middleware"
	"arabesque/internal/scheduling"
	"arabesque/internal/scheduling/service"
	"arabesque/internal/transport/http/shared"
	dErrors "arabesque/pkg/domainerrors"
)

// Service is the scheduling surface the handler needs.
type Service interface {
	CreateCourse(ctx context.Context, input service.CourseInput) (*scheduling.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*scheduling.Course, error)
	ListCourses(ctx context.Context) ([]*scheduling.Course, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, input service.CourseInput) (*scheduling.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	Roster(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*scheduling.RosterEntry, error)
	ToggleAttendance(ctx context.Context, courseID, studentID uuid.UUID, date time.Time) (bool, error)
	FinalizeAttendance(ctx context.Context, courseID uuid.UUID, date time.Time, roster []scheduling.FinalizeEntry) error
	AttendanceReport(ctx context.Context, from, to time.Time) ([]*scheduling.AttendanceMark, error)
}

type Handler struct {
	courses Service
	logger  *slog.Logger
}

func New(courses Service, logger *slog.Logger) *Handler {
	return &Handler{courses: courses, logger: logger}
}

// Register mounts the course and attendance routes; requireAdmin wraps course
// deletion.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/courses", h.handleList)
	r.Post("/courses", h.handleCreate)
	r.Get("/courses/all-attendance", h.handleAttendanceReport)
	r.Post("/courses/attendance", h.handleToggleAttendance)
	r.Post("/courses/finalize-attendance", h.handleFinalizeAttendance)
	r.Get("/courses/{id}", h.handleGet)
	r.Put("/courses/{id}", h.handleUpdate)
	r.With(requireAdmin).Delete("/courses/{id}", h.handleDelete)
	r.Get("/courses/{id}/students", h.handleRoster)
}

type courseRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Schedule    scheduling.Schedule `json:"schedule"`
	Capacity    int                 `json:"capacity"`
	TeacherID   string              `json:"teacher_id"`
	Cost        float64             `json:"cost"`
}

func (r courseRequest) toInput() (service.CourseInput, error) {
	input := service.CourseInput{
		Name:        r.Name,
		Description: r.Description,
		Schedule:    r.Schedule,
		Capacity:    r.Capacity,
		Cost:        r.Cost,
	}
	if !govalidator.StringLength(r.Name, "1", "100") {
		return input, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if r.Capacity <= 0 {
		return input, dErrors.New(dErrors.CodeBadRequest, "capacity must be positive")
	}
	if r.Cost < 0 {
		return input, dErrors.New(dErrors.CodeBadRequest, "cost must not be negative")
	}
	if r.TeacherID != "" {
		teacherID, err := uuid.Parse(r.TeacherID)
		if err != nil {
			return input, dErrors.New(dErrors.CodeBadRequest, "teacher_id must be a valid id")
		}
		input.TeacherID = &teacherID
	}
	return input, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req courseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	course, err := h.courses.CreateCourse(ctx, input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create course")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, course)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "failed to list courses")
		return
	}
	if courses == nil {
		courses = []*scheduling.Course{}
	}
	shared.WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid course id"))
		return
	}
	course, err := h.courses.GetCourse(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to read course")
		return
	}
	shared.WriteJSON(w, http.StatusOK, course)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid course id"))
		return
	}

	var req courseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	course, err := h.courses.UpdateCourse(ctx, id, input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update course")
		return
	}
	shared.WriteJSON(w, http.StatusOK, course)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid course id"))
		return
	}
	if err := h.courses.DeleteCourse(ctx, id); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete course")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRoster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid course id"))
		return
	}
	date, err := parseDateParam(r, "date")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	roster, err := h.courses.Roster(ctx, id, date)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list roster")
		return
	}
	if roster == nil {
		roster = []*scheduling.RosterEntry{}
	}
	shared.WriteJSON(w, http.StatusOK, roster)
}

type toggleRequest struct {
	CourseID  string `json:"course_id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
}

func (h *Handler) handleToggleAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req toggleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "course_id must be a valid id"))
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "student_id must be a valid id"))
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	present, err := h.courses.ToggleAttendance(ctx, courseID, studentID, date)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to toggle attendance")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"attended": present})
}

type finalizeRequest struct {
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
	Roster   []struct {
		StudentID string `json:"student_id"`
		Attended  bool   `json:"attended"`
	} `json:"roster"`
}

func (h *Handler) handleFinalizeAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req finalizeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "course_id must be a valid id"))
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	roster := make([]scheduling.FinalizeEntry, 0, len(req.Roster))
	for _, entry := range req.Roster {
		studentID, err := uuid.Parse(entry.StudentID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "student_id must be a valid id"))
			return
		}
		roster = append(roster, scheduling.FinalizeEntry{StudentID: studentID, Attended: entry.Attended})
	}

	if err := h.courses.FinalizeAttendance(ctx, courseID, date, roster); err != nil {
		h.writeServiceError(ctx, w, err, "failed to finalize attendance")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := parseDateParam(r, "from")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	marks, err := h.courses.AttendanceReport(ctx, from, to)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list attendance")
		return
	}
	if marks == nil {
		marks = []*scheduling.AttendanceMark{}
	}
	shared.WriteJSON(w, http.StatusOK, marks)
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" query parameter is required")
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" must be YYYY-MM-DD")
	}
	return date, nil
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
