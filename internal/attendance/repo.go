package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Montinou/student-attendance-app/internal/store"
)

// Record is proof that a student checked into a session. Records are never
// updated; they disappear only through the subject cascade.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	SubjectID   string    `json:"subject_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// Metadata carries the optional capture context of a scan.
type Metadata struct {
	IPAddress *string
	Latitude  *float64
	Longitude *float64
}

// WithSubject adds subject detail for a student's history.
type WithSubject struct {
	Record
	SubjectName string `json:"subject_name"`
	SubjectCode string `json:"subject_code"`
}

// WithStudent adds student and subject detail for teacher reports.
type WithStudent struct {
	Record
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	SubjectName  string `json:"subject_name"`
	SubjectCode  string `json:"subject_code"`
}

// Filters narrows a teacher report. To is an inclusive calendar date; the
// query uses an exclusive bound one day later.
type Filters struct {
	SubjectID string
	From      *time.Time
	To        *time.Time
}

const recordColumns = `id, session_id, student_id, subject_id, checked_in_at, ip_address, latitude, longitude`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// HasAttended reports whether the student already has a record for the
// session.
func (r *Repository) HasAttended(ctx context.Context, sessionID, studentID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM attendance_records WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes a new record. The duplicate pre-check narrows the race; the
// unique constraint on (session_id, student_id) is the final authority and
// is translated to ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, sessionID, studentID, subjectID string, meta Metadata) (Record, error) {
	attended, err := r.HasAttended(ctx, sessionID, studentID)
	if err != nil {
		return Record{}, err
	}
	if attended {
		return Record{}, ErrDuplicate
	}

	rec := Record{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		StudentID: studentID,
		SubjectID: subjectID,
		IPAddress: meta.IPAddress,
		Latitude:  meta.Latitude,
		Longitude: meta.Longitude,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, session_id, student_id, subject_id, ip_address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING checked_in_at
	`, rec.ID, rec.SessionID, rec.StudentID, rec.SubjectID, rec.IPAddress, rec.Latitude, rec.Longitude)
	if err := row.Scan(&rec.CheckedInAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return rec, nil
}

// GetByID returns a single record by id.
func (r *Repository) GetByID(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.SubjectID, &rec.CheckedInAt,
		&rec.IPAddress, &rec.Latitude, &rec.Longitude); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListByStudent returns the student's history with subject detail, newest
// first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]WithSubject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.session_id, a.student_id, a.subject_id, a.checked_in_at, a.ip_address, a.latitude, a.longitude,
		       s.name, s.code
		FROM attendance_records a
		JOIN subjects s ON s.id = a.subject_id
		WHERE a.student_id = $1
		ORDER BY a.checked_in_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithSubject
	for rows.Next() {
		var rec WithSubject
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.SubjectID, &rec.CheckedInAt,
			&rec.IPAddress, &rec.Latitude, &rec.Longitude, &rec.SubjectName, &rec.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListByTeacher returns records across the teacher's subjects with optional
// subject and date-range filters, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string, f Filters) ([]WithStudent, error) {
	query := `
		SELECT a.id, a.session_id, a.student_id, a.subject_id, a.checked_in_at, a.ip_address, a.latitude, a.longitude,
		       p.full_name, p.email, s.name, s.code
		FROM attendance_records a
		JOIN subjects s ON s.id = a.subject_id
		JOIN profiles p ON p.id = a.student_id
		WHERE s.teacher_id = $1`
	args := []any{teacherID}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		query += fmt.Sprintf(" AND a.subject_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND a.checked_in_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, f.To.Add(24*time.Hour))
		query += fmt.Sprintf(" AND a.checked_in_at < $%d", len(args))
	}
	query += " ORDER BY a.checked_in_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithStudent
	for rows.Next() {
		var rec WithStudent
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.SubjectID, &rec.CheckedInAt,
			&rec.IPAddress, &rec.Latitude, &rec.Longitude,
			&rec.StudentName, &rec.StudentEmail, &rec.SubjectName, &rec.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListBySession returns who has checked into a session so far, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]WithStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.session_id, a.student_id, a.subject_id, a.checked_in_at, a.ip_address, a.latitude, a.longitude,
		       p.full_name, p.email, s.name, s.code
		FROM attendance_records a
		JOIN subjects s ON s.id = a.subject_id
		JOIN profiles p ON p.id = a.student_id
		WHERE a.session_id = $1
		ORDER BY a.checked_in_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithStudent
	for rows.Next() {
		var rec WithStudent
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.SubjectID, &rec.CheckedInAt,
			&rec.IPAddress, &rec.Latitude, &rec.Longitude,
			&rec.StudentName, &rec.StudentEmail, &rec.SubjectName, &rec.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CountBySession returns the live head count for a session.
func (r *Repository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records WHERE session_id = $1
	`, sessionID).Scan(&n)
	return n, err
}
