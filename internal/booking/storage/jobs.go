package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

const jobColumns = `
	id, user_id, from_language_id, gender, certified, job_type, immediate,
	due, duration, session_time, will_expire_at, customer_phone_type,
	customer_physical_type, status, created_at, end_at, cancel_at, withdraw_at,
	admin_comments, reference, user_email, address, instructions, town,
	by_admin, email_sent, email_sent_to_virpal, flagged, manually_handled,
	pinned_translator_id, version`

const assignmentColumns = `id, job_id, user_id, created_at, cancel_at, completed_at, completed_by`

// terminalStatuses must stay in step with domain.Status.IsTerminal
var terminalStatuses = statusStrings([]domain.Status{
	domain.StatusCompleted,
	domain.StatusWithdrawnBefore24,
	domain.StatusWithdrawnAfter24,
	domain.StatusNotCarriedOutCustomer,
})

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			user_id, from_language_id, gender, certified, job_type, immediate,
			due, duration, session_time, will_expire_at, customer_phone_type,
			customer_physical_type, status, created_at, end_at, cancel_at, withdraw_at,
			admin_comments, reference, user_email, address, instructions, town,
			by_admin, email_sent, email_sent_to_virpal, flagged, manually_handled,
			pinned_translator_id, version
		) VALUES (
			:user_id, :from_language_id, :gender, :certified, :job_type, :immediate,
			:due, :duration, :session_time, :will_expire_at, :customer_phone_type,
			:customer_physical_type, :status, :created_at, :end_at, :cancel_at, :withdraw_at,
			:admin_comments, :reference, :user_email, :address, :instructions, :town,
			:by_admin, :email_sent, :email_sent_to_virpal, :flagged, :manually_handled,
			:pinned_translator_id, :version
		)
		RETURNING id
	`

	job.Version = 0
	rows, err := s.db.NamedQueryContext(ctx, query, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("failed to create job: no id returned")
	}
	if err := rows.Scan(&job.ID); err != nil {
		return fmt.Errorf("failed to read job id: %w", err)
	}

	s.logger.Debug("Job stored", slog.Int64("job_id", job.ID))
	return nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("job %d", id))
	}
	return &job, nil
}

// jobUpdateRow lets a named UPDATE bind the expected status next to the job
type jobUpdateRow struct {
	*domain.Job
	ExpectedStatus domain.Status `db:"expected_status"`
}

const updateJobSet = `
	UPDATE jobs SET
		from_language_id = :from_language_id,
		gender = :gender,
		certified = :certified,
		job_type = :job_type,
		immediate = :immediate,
		due = :due,
		duration = :duration,
		session_time = :session_time,
		will_expire_at = :will_expire_at,
		customer_phone_type = :customer_phone_type,
		customer_physical_type = :customer_physical_type,
		status = :status,
		created_at = :created_at,
		end_at = :end_at,
		cancel_at = :cancel_at,
		withdraw_at = :withdraw_at,
		admin_comments = :admin_comments,
		reference = :reference,
		user_email = :user_email,
		address = :address,
		instructions = :instructions,
		town = :town,
		by_admin = :by_admin,
		email_sent = :email_sent,
		email_sent_to_virpal = :email_sent_to_virpal,
		flagged = :flagged,
		manually_handled = :manually_handled,
		pinned_translator_id = :pinned_translator_id,
		version = version + 1
	WHERE id = :id AND version = :version`

// uniqueViolation is the PostgreSQL error code raised by a unique index
const uniqueViolation = "23505"

// ApplyUpdate writes the job row and its assignment changes in one
// transaction. The row is only written while the stored version, and the
// stored status when ExpectedStatus is set, still match what the caller read;
// otherwise domain.ErrStatusConflict is returned. A second active assignment
// on the job is rejected by idx_assignments_one_active and reported the same way.
func (s *Store) ApplyUpdate(ctx context.Context, u domain.JobUpdate) error {
	if u.Job == nil {
		return domain.ErrInvalidInput
	}

	query := updateJobSet
	if u.ExpectedStatus != "" {
		query += ` AND status = :expected_status`
	}

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, jobUpdateRow{Job: u.Job, ExpectedStatus: u.ExpectedStatus})
		if err != nil {
			return fmt.Errorf("failed to update job %d: %w", u.Job.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, u.Job.ID); err != nil {
				return fmt.Errorf("failed to check job %d: %w", u.Job.ID, err)
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrStatusConflict
		}

		return assignmentConflict(s.applyAssignmentChanges(ctx, tx, u))
	})
	if err != nil {
		return err
	}
	u.Job.Version++
	return nil
}

// assignmentConflict maps a second active assignment to domain.ErrStatusConflict
func assignmentConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrStatusConflict
	}
	return err
}

func (s *Store) applyAssignmentChanges(ctx context.Context, tx *sqlx.Tx, u domain.JobUpdate) error {
	jobID := u.Job.ID

	if u.CancelAssignmentID != 0 {
		_, err := tx.ExecContext(ctx,
			`UPDATE translator_assignments SET cancel_at = $1 WHERE id = $2 AND job_id = $3`,
			u.At, u.CancelAssignmentID, jobID)
		if err != nil {
			return fmt.Errorf("failed to cancel assignment %d: %w", u.CancelAssignmentID, err)
		}
	}

	if u.CompleteAssignmentID != 0 {
		_, err := tx.ExecContext(ctx,
			`UPDATE translator_assignments SET completed_at = $1, completed_by = $2 WHERE id = $3 AND job_id = $4`,
			u.At, u.CompletedBy, u.CompleteAssignmentID, jobID)
		if err != nil {
			return fmt.Errorf("failed to complete assignment %d: %w", u.CompleteAssignmentID, err)
		}
	}

	if u.DeleteAssignmentUser != 0 {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM translator_assignments
			WHERE job_id = $1 AND user_id = $2 AND cancel_at IS NULL AND completed_at IS NULL`,
			jobID, u.DeleteAssignmentUser)
		if err != nil {
			return fmt.Errorf("failed to delete assignment of user %d: %w", u.DeleteAssignmentUser, err)
		}
	}

	if u.NewAssignment != nil {
		a := u.NewAssignment
		a.JobID = jobID
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO translator_assignments (job_id, user_id, created_at, cancel_at, completed_at, completed_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			a.JobID, a.UserID, a.CreatedAt, a.CancelAt, a.CompletedAt, a.CompletedBy,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
	}
	return nil
}

func (s *Store) Assignments(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	var out []domain.Assignment
	query := `SELECT ` + assignmentColumns + ` FROM translator_assignments WHERE job_id = $1 ORDER BY id`

	if err := s.db.SelectContext(ctx, &out, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list assignments for job %d: %w", jobID, err)
	}
	return out, nil
}

// HasOverlappingAssignment reports whether the translator holds an active
// assignment on another live job whose session covers due.
func (s *Store) HasOverlappingAssignment(ctx context.Context, translatorID int64, due time.Time, excludeJobID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM translator_assignments a
			JOIN jobs j ON j.id = a.job_id
			WHERE a.user_id = $1
			  AND a.job_id <> $2
			  AND a.cancel_at IS NULL
			  AND a.completed_at IS NULL
			  AND NOT (j.status = ANY($3))
			  AND $4 >= j.due
			  AND ($4 < j.due + j.duration * INTERVAL '1 minute' OR $4 = j.due)
		)
	`

	var busy bool
	if err := s.db.GetContext(ctx, &busy, query, translatorID, excludeJobID, pq.Array(terminalStatuses), due); err != nil {
		return false, fmt.Errorf("failed to check overlapping assignments: %w", err)
	}
	return busy, nil
}

func (s *Store) ListPendingJobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY due ASC, id ASC`

	if err := s.db.SelectContext(ctx, &jobs, query, domain.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return jobs, nil
}

func (s *Store) ListCustomerJobs(ctx context.Context, customerID int64, statuses []domain.Status) ([]domain.Job, error) {
	var jobs []domain.Job
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY due ASC, id ASC
	`

	if err := s.db.SelectContext(ctx, &jobs, query, customerID, pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("failed to list jobs of customer %d: %w", customerID, err)
	}
	return jobs, nil
}

// translatorJobsFilter selects jobs whose current assignment belongs to $1
const translatorJobsFilter = `
	id IN (
		SELECT job_id FROM translator_assignments
		WHERE user_id = $1 AND cancel_at IS NULL
	)`

func (s *Store) ListTranslatorJobs(ctx context.Context, translatorID int64, statuses []domain.Status) ([]domain.Job, error) {
	var jobs []domain.Job
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ` + translatorJobsFilter + ` AND status = ANY($2)
		ORDER BY due ASC, id ASC
	`

	if err := s.db.SelectContext(ctx, &jobs, query, translatorID, pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("failed to list jobs of translator %d: %w", translatorID, err)
	}
	return jobs, nil
}

// ListJobHistory pages through finished jobs, newest due first. page is 1-based.
func (s *Store) ListJobHistory(ctx context.Context, userID int64, role domain.Role, page, pageSize int) ([]domain.Job, int, error) {
	var filter string
	switch role {
	case domain.RoleCustomer:
		filter = `user_id = $1`
	case domain.RoleTranslator:
		filter = translatorJobsFilter
	default:
		return nil, 0, nil
	}
	if page < 1 {
		page = 1
	}
	statuses := pq.Array(statusStrings(domain.HistoricStatuses))

	var total int
	countQuery := `SELECT COUNT(*) FROM jobs WHERE ` + filter + ` AND status = ANY($2)`
	if err := s.db.GetContext(ctx, &total, countQuery, userID, statuses); err != nil {
		return nil, 0, fmt.Errorf("failed to count job history of user %d: %w", userID, err)
	}

	jobs := []domain.Job{}
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ` + filter + ` AND status = ANY($2)
		ORDER BY due DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	if err := s.db.SelectContext(ctx, &jobs, query, userID, statuses, pageSize, (page-1)*pageSize); err != nil {
		return nil, 0, fmt.Errorf("failed to list job history of user %d: %w", userID, err)
	}
	return jobs, total, nil
}

// UpdateDistance upserts the distance row and copies the admin fields onto the job
func (s *Store) UpdateDistance(ctx context.Context, feed domain.DistanceFeed) error {
	return s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs SET
				session_time = CASE WHEN $2 <> '' THEN $2 ELSE session_time END,
				admin_comments = CASE WHEN $3 <> '' THEN $3 ELSE admin_comments END,
				flagged = $4,
				manually_handled = $5,
				by_admin = $6,
				version = version + 1
			WHERE id = $1`,
			feed.JobID, feed.SessionTime, feed.AdminComment, feed.Flagged, feed.ManuallyHandled, feed.ByAdmin)
		if err != nil {
			return fmt.Errorf("failed to update job %d: %w", feed.JobID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO distances (job_id, distance, time)
			VALUES ($1, $2, $3)
			ON CONFLICT (job_id) DO UPDATE SET distance = EXCLUDED.distance, time = EXCLUDED.time`,
			feed.JobID, feed.Distance, feed.Time)
		if err != nil {
			return fmt.Errorf("failed to store distance for job %d: %w", feed.JobID, err)
		}
		return nil
	})
}
