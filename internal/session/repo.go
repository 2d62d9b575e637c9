package session

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session statuses. A session is terminal once closed or past its expiry;
// both look the same to the check-in gate.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Session is a time-boxed invitation to check in, tied to one subject and
// carrying one QR-encodable code.
type Session struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	QRCode    string    `json:"qr_code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrNotFound is returned by mutations against a missing session.
var ErrNotFound = errors.New("session not found")

const sessionColumns = `id, subject_id, teacher_id, qr_code, status, created_at, expires_at`

// Repository persists attendance sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new session.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (id, subject_id, teacher_id, qr_code, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.SubjectID, s.TeacherID, s.QRCode, s.Status, s.ExpiresAt)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Session{}, err
	}
	return s, nil
}

// GetByCode returns the session carrying the exact code string, or nil.
// qr_code is unique so at most one session can match.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions WHERE qr_code = $1
	`, code)
	return scanSession(row)
}

// GetByID returns a session by id, or nil.
func (r *Repository) GetByID(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// CloseActiveForSubject closes every active session of the subject. Advisory
// cleanup before creating a new one, not a uniqueness guarantee.
func (r *Repository) CloseActiveForSubject(ctx context.Context, subjectID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET status = $2, expires_at = $3
		WHERE subject_id = $1 AND status = $4
	`, subjectID, StatusClosed, now, StatusActive)
	return err
}

// Close ends a session: status goes to closed AND expiry is pulled to now,
// so status checks and expiry checks agree.
func (r *Repository) Close(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET status = $2, expires_at = $3
		WHERE id = $1
	`, id, StatusClosed, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseExpired closes sessions still marked active whose expiry has passed.
// Returns the number of sessions closed.
func (r *Repository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET status = $1
		WHERE status = $2 AND expires_at < $3
	`, StatusClosed, StatusActive, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListBySubject returns the subject's sessions, newest first. Expired and
// closed sessions are filtered out unless includeExpired is set.
func (r *Repository) ListBySubject(ctx context.Context, subjectID string, includeExpired bool, now time.Time) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE subject_id = $1`
	args := []any{subjectID}
	if !includeExpired {
		query += ` AND status = $2 AND expires_at > $3`
		args = append(args, StatusActive, now)
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

// ListByTeacher returns the teacher's sessions, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string, includeExpired bool, now time.Time) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE teacher_id = $1`
	args := []any{teacherID}
	if !includeExpired {
		query += ` AND status = $2 AND expires_at > $3`
		args = append(args, StatusActive, now)
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.TeacherID, &s.QRCode, &s.Status, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.SubjectID, &s.TeacherID, &s.QRCode, &s.Status, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
