package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Montinou/student-attendance-app/internal/store"
)

// Enrollment links a student to a subject. At most one row may exist per
// (student, subject) pair; the unique constraint is authoritative.
type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	SubjectID  string    `json:"subject_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// WithSubject adds subject detail for a student's own listing.
type WithSubject struct {
	Enrollment
	SubjectName string `json:"subject_name"`
	SubjectCode string `json:"subject_code"`
}

// WithStudent adds student detail for a teacher's roster.
type WithStudent struct {
	Enrollment
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

var (
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this subject")
	ErrNotFound        = errors.New("enrollment not found")
)

// Repository persists enrollments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether the student is enrolled in the subject.
func (r *Repository) Exists(ctx context.Context, studentID, subjectID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM enrollments WHERE student_id = $1 AND subject_id = $2
	`, studentID, subjectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes a new enrollment, translating the unique constraint into
// ErrAlreadyEnrolled.
func (r *Repository) Insert(ctx context.Context, studentID, subjectID string) (Enrollment, error) {
	e := Enrollment{ID: uuid.NewString(), StudentID: studentID, SubjectID: subjectID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (id, student_id, subject_id)
		VALUES ($1, $2, $3)
		RETURNING enrolled_at
	`, e.ID, e.StudentID, e.SubjectID)
	if err := row.Scan(&e.EnrolledAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		return Enrollment{}, err
	}
	return e, nil
}

// GetByID returns an enrollment by id, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, subject_id, enrolled_at
		FROM enrollments WHERE id = $1
	`, id)
	var e Enrollment
	if err := row.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.EnrolledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, ErrNotFound
		}
		return Enrollment{}, err
	}
	return e, nil
}

// Delete removes an enrollment. Past attendance records stay untouched.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStudent returns the student's enrollments with subject detail,
// newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]WithSubject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.student_id, e.subject_id, e.enrolled_at, s.name, s.code
		FROM enrollments e
		JOIN subjects s ON s.id = e.subject_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithSubject
	for rows.Next() {
		var e WithSubject
		if err := rows.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.EnrolledAt, &e.SubjectName, &e.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListBySubject returns the subject's roster with student detail, oldest
// first.
func (r *Repository) ListBySubject(ctx context.Context, subjectID string) ([]WithStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.student_id, e.subject_id, e.enrolled_at, p.full_name, p.email
		FROM enrollments e
		JOIN profiles p ON p.id = e.student_id
		WHERE e.subject_id = $1
		ORDER BY e.enrolled_at ASC
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithStudent
	for rows.Next() {
		var e WithStudent
		if err := rows.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.EnrolledAt, &e.StudentName, &e.StudentEmail); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
