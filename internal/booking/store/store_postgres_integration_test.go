//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"arabesque/internal/audit"
	"arabesque/internal/booking/service"
	"arabesque/internal/booking/store"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/testutil/containers"
)

// pgTx mirrors the server's transaction adapter for tests.
type pgTx struct {
	db *sql.DB
}

func (t *pgTx) RunInTx(ctx context.Context, fn func(stores service.TxStores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(store.NewPostgresTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type discardTrail struct{}

func (discardTrail) Emit(audit.Event) {}

type PostgresBookingSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	svc *service.Service
}

func TestPostgresBookingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBookingSuite))
}

func (s *PostgresBookingSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	reads := store.NewPostgres(s.pg.DB)
	s.svc = service.NewService(
		&pgTx{db: s.pg.DB},
		reads,
		discardTrail{},
		metrics.New(prometheus.NewRegistry()),
	)
}

func (s *PostgresBookingSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresBookingSuite) seedStudent(credits int) uuid.UUID {
	id := uuid.New()
	_, err := s.pg.DB.Exec(`
		INSERT INTO users (id, name, email, password_hash, role, credits)
		VALUES ($1, $2, $3, 'x', 'STUDENT', $4)
	`, id, "Student", fmt.Sprintf("%s@example.com", id), credits)
	s.Require().NoError(err)
	return id
}

func (s *PostgresBookingSuite) seedCourse(capacity int) uuid.UUID {
	id := uuid.New()
	_, err := s.pg.DB.Exec(`
		INSERT INTO courses (id, name, capacity) VALUES ($1, 'Ballet II', $2)
	`, id, capacity)
	s.Require().NoError(err)
	return id
}

func (s *PostgresBookingSuite) credits(id uuid.UUID) int {
	var credits int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT credits FROM users WHERE id = $1`, id).Scan(&credits))
	return credits
}

func (s *PostgresBookingSuite) confirmedCount(courseID uuid.UUID, date time.Time) int {
	var count int
	s.Require().NoError(s.pg.DB.QueryRow(`
		SELECT COUNT(*) FROM bookings WHERE course_id = $1 AND class_date = $2 AND status = 'CONFIRMED'
	`, courseID, date).Scan(&count))
	return count
}

func classDate() time.Time {
	return time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresBookingSuite) TestCreateThenCancelConservesCredits() {
	ctx := context.Background()
	student := s.seedStudent(5)
	course := s.seedCourse(10)

	created, err := s.svc.Create(ctx, student, course, classDate())
	s.Require().NoError(err)
	s.Equal(4, s.credits(student))

	s.Require().NoError(s.svc.Cancel(ctx, student, created.ID))
	s.Equal(5, s.credits(student))
	s.Equal(0, s.confirmedCount(course, classDate()))
}

// C+1 students race for a course with capacity C; exactly C must win.
func (s *PostgresBookingSuite) TestCapacityHoldsUnderConcurrentCreates() {
	ctx := context.Background()
	const capacity = 3

	course := s.seedCourse(capacity)
	students := make([]uuid.UUID, capacity+1)
	for i := range students {
		students[i] = s.seedStudent(5)
	}

	var wg sync.WaitGroup
	var successes, capacityFailures atomic.Int32
	for _, student := range students {
		wg.Add(1)
		go func(student uuid.UUID) {
			defer wg.Done()
			_, err := s.svc.Create(ctx, student, course, classDate())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.CodeOf(err) == dErrors.CodeCapacityExceeded:
				capacityFailures.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}(student)
	}
	wg.Wait()

	s.Equal(int32(capacity), successes.Load())
	s.Equal(int32(1), capacityFailures.Load())
	s.Equal(capacity, s.confirmedCount(course, classDate()))
}

// Two racing attempts for the same (student, course, date) key: exactly one
// wins, and only one credit is spent.
func (s *PostgresBookingSuite) TestConcurrentDuplicateBookings() {
	ctx := context.Background()
	student := s.seedStudent(5)
	course := s.seedCourse(10)

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Create(ctx, student, course, classDate())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.CodeOf(err) == dErrors.CodeConflict:
				conflicts.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(1), conflicts.Load())
	s.Equal(4, s.credits(student))
}

// One student with one credit races two creates for different courses. The
// course lock does not serialize these, so the guarded debit is the only
// thing standing between the balance and -1.
func (s *PostgresBookingSuite) TestConcurrentDebitsDoNotOverdraw() {
	ctx := context.Background()
	student := s.seedStudent(1)
	courses := []uuid.UUID{s.seedCourse(10), s.seedCourse(10)}

	var wg sync.WaitGroup
	var successes, insufficient atomic.Int32
	for _, course := range courses {
		wg.Add(1)
		go func(course uuid.UUID) {
			defer wg.Done()
			_, err := s.svc.Create(ctx, student, course, classDate())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.CodeOf(err) == dErrors.CodeInsufficientCredit:
				insufficient.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}(course)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(1), insufficient.Load())
	s.Equal(0, s.credits(student))
}

func (s *PostgresBookingSuite) TestZeroCreditStudentRejected() {
	ctx := context.Background()
	student := s.seedStudent(0)
	course := s.seedCourse(10)

	_, err := s.svc.Create(ctx, student, course, classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeInsufficientCredit, dErrors.CodeOf(err))
	s.Equal(0, s.confirmedCount(course, classDate()))
}

func (s *PostgresBookingSuite) TestHasUpcoming() {
	ctx := context.Background()
	student := s.seedStudent(5)
	course := s.seedCourse(10)

	_, err := s.svc.Create(ctx, student, course, classDate())
	s.Require().NoError(err)

	reads := store.NewPostgres(s.pg.DB)
	upcoming, err := reads.HasUpcoming(ctx, student, classDate().AddDate(0, 0, -1))
	s.Require().NoError(err)
	s.True(upcoming)

	upcoming, err = reads.HasUpcoming(ctx, student, classDate().AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.False(upcoming)
}
