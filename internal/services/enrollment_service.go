package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/metrics"
	"github.com/healthdesk/client-registry/internal/models"
)

// EnrollmentServiceProvider defines the interface for enrollment services.
type EnrollmentServiceProvider interface {
	Enroll(ctx context.Context, clientID int64, in EnrollmentInput) (models.Enrollment, error)
	GetEnrollment(ctx context.Context, id int64) (models.Enrollment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (models.Enrollment, error)
	ListForClient(ctx context.Context, clientID int64) ([]models.EnrollmentSummary, error)
}

// EnrollmentInput holds the enrollment form fields.
type EnrollmentInput struct {
	ProgramID      int64  `validate:"required" label:"Program"`
	EnrollmentDate string `validate:"required,datetime=2006-01-02" label:"Enrollment date"`
}

const alreadyEnrolled = "Client is already enrolled in this program."

// EnrollmentService provides business logic for enrollments.
type EnrollmentService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(db *sql.DB, events EventServiceProvider) *EnrollmentService {
	return &EnrollmentService{db: db, events: events}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q rowQuerier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Enroll creates an Active enrollment of the client in a program. The
// active-enrollment check and the insert share one transaction, and the
// partial unique index on enrollments backs it up under concurrency.
func (s *EnrollmentService) Enroll(ctx context.Context, clientID int64, in EnrollmentInput) (models.Enrollment, error) {
	in.EnrollmentDate = strings.TrimSpace(in.EnrollmentDate)

	tx, err := database.Querier(ctx, s.db).BeginTx(ctx, nil)
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("begin enrollment: %w", err)
	}
	defer tx.Rollback()

	ok, err := exists(ctx, tx, "SELECT 1 FROM clients WHERE id = ?", clientID)
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("lookup client %d: %w", clientID, err)
	}
	if !ok {
		return models.Enrollment{}, notFound("Client not found")
	}

	if err := validateStruct(in); err != nil {
		return models.Enrollment{}, err
	}

	ok, err = exists(ctx, tx, "SELECT 1 FROM programs WHERE id = ?", in.ProgramID)
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("lookup program %d: %w", in.ProgramID, err)
	}
	if !ok {
		return models.Enrollment{}, invalid("Selected program does not exist.")
	}

	ok, err = exists(ctx, tx,
		"SELECT 1 FROM enrollments WHERE client_id = ? AND program_id = ? AND status = ?",
		clientID, in.ProgramID, string(models.StatusActive))
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("check active enrollment: %w", err)
	}
	if ok {
		metrics.EnrollmentConflictsTotal.Inc()
		return models.Enrollment{}, conflict(alreadyEnrolled)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO enrollments (client_id, program_id, enrollment_date, status) VALUES (?, ?, ?, ?)",
		clientID, in.ProgramID, in.EnrollmentDate, string(models.StatusActive))
	if err != nil {
		if database.IsUniqueViolation(err) {
			metrics.EnrollmentConflictsTotal.Inc()
			return models.Enrollment{}, conflict(alreadyEnrolled)
		}
		return models.Enrollment{}, fmt.Errorf("insert enrollment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Enrollment{}, err
	}
	if err := tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			metrics.EnrollmentConflictsTotal.Inc()
			return models.Enrollment{}, conflict(alreadyEnrolled)
		}
		return models.Enrollment{}, fmt.Errorf("commit enrollment: %w", err)
	}

	metrics.EnrollmentsCreatedTotal.Inc()
	recordEvent(ctx, s.events, "enrollment.create", "info",
		fmt.Sprintf("Client %d enrolled in program %d.", clientID, in.ProgramID))

	return models.Enrollment{
		ID:             id,
		ClientID:       clientID,
		ProgramID:      in.ProgramID,
		EnrollmentDate: in.EnrollmentDate,
		Status:         models.StatusActive,
	}, nil
}

// GetEnrollment retrieves a single enrollment by its ID.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id int64) (models.Enrollment, error) {
	var e models.Enrollment
	err := database.Querier(ctx, s.db).QueryRowContext(ctx,
		"SELECT id, client_id, program_id, enrollment_date, status FROM enrollments WHERE id = ?", id).
		Scan(&e.ID, &e.ClientID, &e.ProgramID, &e.EnrollmentDate, &e.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Enrollment{}, notFound("Enrollment not found")
		}
		return models.Enrollment{}, fmt.Errorf("get enrollment %d: %w", id, err)
	}
	return e, nil
}

// UpdateStatus sets the status of an enrollment and touches nothing else.
// Any of the known statuses may follow any other; re-activating fails with
// a conflict if the client already has another active enrollment in the
// same program.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id int64, status string) (models.Enrollment, error) {
	e, err := s.GetEnrollment(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}

	next := models.EnrollmentStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return models.Enrollment{}, invalid("Status must be one of: Active, Completed, Dropped.")
	}

	_, err = database.Querier(ctx, s.db).ExecContext(ctx, "UPDATE enrollments SET status = ? WHERE id = ?", string(next), id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.Enrollment{}, conflict(alreadyEnrolled)
		}
		return models.Enrollment{}, fmt.Errorf("update enrollment %d: %w", id, err)
	}

	recordEvent(ctx, s.events, "enrollment.status", "info",
		fmt.Sprintf("Enrollment %d changed from %s to %s.", id, e.Status, next))
	e.Status = next
	return e, nil
}

// ListForClient returns the client's enrollments joined with program names.
func (s *EnrollmentService) ListForClient(ctx context.Context, clientID int64) ([]models.EnrollmentSummary, error) {
	rows, err := database.Querier(ctx, s.db).QueryContext(ctx, `
		SELECT e.id, e.program_id, p.name, e.enrollment_date, e.status
		FROM enrollments e JOIN programs p ON e.program_id = p.id
		WHERE e.client_id = ?
		ORDER BY e.id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for client %d: %w", clientID, err)
	}
	defer rows.Close()

	summaries := []models.EnrollmentSummary{}
	for rows.Next() {
		var es models.EnrollmentSummary
		if err := rows.Scan(&es.ID, &es.ProgramID, &es.ProgramName, &es.EnrollmentDate, &es.Status); err != nil {
			return nil, err
		}
		summaries = append(summaries, es)
	}
	return summaries, rows.Err()
}
