package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/healing-center/internal/model"
)

// EnrollmentRepo manages course enrollments and per-lesson progress rows.
// The progress recompute runs inside a transaction so the lesson mark and
// the derived percentage move together.
type EnrollmentRepo struct{ db *sql.DB }

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

func (r *EnrollmentRepo) DB() *sql.DB { return r.db }

const enrollmentCols = `id, user_id, course_id, enrolled_at, completed_at,
       progress_percentage, status, payment_status`

// GetActive returns the user's active or completed enrollment in a course.
// Cancelled enrollments do not count; sql.ErrNoRows means not enrolled.
func (r *EnrollmentRepo) GetActive(ctx context.Context, userID, courseID uint64) (model.CourseEnrollment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+enrollmentCols+` FROM course_enrollments
		 WHERE user_id = ? AND course_id = ? AND status IN (?, ?)`,
		userID, courseID, model.EnrollActive, model.EnrollCompleted)
	return scanEnrollment(row)
}

// Create inserts a new active enrollment. The unique (user_id, course_id)
// key rejects double enrollment with ErrConflict.
func (r *EnrollmentRepo) Create(ctx context.Context, e *model.CourseEnrollment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO course_enrollments (user_id, course_id, status, payment_status)
		 VALUES (?,?,?,?)`,
		e.UserID, e.CourseID, model.EnrollActive, e.PaymentStatus)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.EnrollActive
	return nil
}

// ListByUser returns all of a user's enrollments, newest first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CourseEnrollment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+enrollmentCols+` FROM course_enrollments
		 WHERE user_id = ? ORDER BY enrolled_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.CourseEnrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpsertLessonProgressTx creates or updates the (enrollment, lesson) progress
// row. Marking a lesson complete is idempotent; completed_at is only set on
// the transition to completed and cleared when un-completed.
func (r *EnrollmentRepo) UpsertLessonProgressTx(ctx context.Context, tx *sql.Tx, enrollmentID, lessonID uint64, completed bool, watchSeconds int, now time.Time) error {
	var completedAt any
	if completed {
		completedAt = now.UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO lesson_progress (enrollment_id, lesson_id, is_completed, completed_at, watch_time_seconds)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		     is_completed = VALUES(is_completed),
		     completed_at = IF(VALUES(is_completed) = 1,
		                       COALESCE(completed_at, VALUES(completed_at)), NULL),
		     watch_time_seconds = GREATEST(watch_time_seconds, VALUES(watch_time_seconds))`,
		enrollmentID, lessonID, completed, completedAt, watchSeconds)
	return err
}

// CountCompletedPublishedTx counts completed lessons of an enrollment that
// still exist as published lessons of published modules, inside the
// recompute transaction.
func (r *EnrollmentRepo) CountCompletedPublishedTx(ctx context.Context, tx *sql.Tx, enrollmentID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_progress p
		 JOIN course_lessons l ON l.id = p.lesson_id
		 JOIN course_modules m ON m.id = l.module_id
		 WHERE p.enrollment_id = ? AND p.is_completed = 1
		   AND l.is_published = 1 AND m.is_published = 1`,
		enrollmentID).Scan(&n)
	return n, err
}

// UpdateProgressTx persists the recomputed percentage and flips the
// enrollment to completed when it reaches 100. The transition is one-way:
// completed_at is kept on later recomputes.
func (r *EnrollmentRepo) UpdateProgressTx(ctx context.Context, tx *sql.Tx, enrollmentID uint64, pct float64, now time.Time) error {
	if pct >= 100 {
		_, err := tx.ExecContext(ctx,
			`UPDATE course_enrollments
			 SET progress_percentage = ?, status = ?,
			     completed_at = COALESCE(completed_at, ?)
			 WHERE id = ?`,
			pct, model.EnrollCompleted, now.UTC(), enrollmentID)
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE course_enrollments SET progress_percentage = ? WHERE id = ?`,
		pct, enrollmentID)
	return err
}

// MarkPaidTx settles an enrollment's payment state when its ledger payment
// completes.
func (r *EnrollmentRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE course_enrollments SET payment_status = ? WHERE id = ?`,
		model.PayPaid, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetTx re-reads an enrollment inside a transaction.
func (r *EnrollmentRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.CourseEnrollment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+enrollmentCols+` FROM course_enrollments WHERE id = ?`, id)
	return scanEnrollment(row)
}

// LessonProgressFor returns the progress rows of an enrollment keyed by
// lesson ID, for decorating the course tree.
func (r *EnrollmentRepo) LessonProgressFor(ctx context.Context, enrollmentID uint64) (map[uint64]model.LessonProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, enrollment_id, lesson_id, is_completed, completed_at, watch_time_seconds
		 FROM lesson_progress WHERE enrollment_id = ?`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	progress := make(map[uint64]model.LessonProgress)
	for rows.Next() {
		var (
			p           model.LessonProgress
			completedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.EnrollmentID, &p.LessonID, &p.IsCompleted,
			&completedAt, &p.WatchTimeSeconds); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			p.CompletedAt = &t
		}
		progress[p.LessonID] = p
	}
	return progress, rows.Err()
}

func scanEnrollment(row rowScanner) (model.CourseEnrollment, error) {
	var (
		e           model.CourseEnrollment
		completedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &completedAt,
		&e.ProgressPercentage, &e.Status, &e.PaymentStatus)
	if err != nil {
		return model.CourseEnrollment{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return e, nil
}
