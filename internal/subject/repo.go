package subject

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Subject is a course owned by exactly one teacher. Deleting a subject
// cascades to its enrollments, sessions and attendance records at the
// database level.
type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Schedule    *string   `json:"schedule,omitempty"`
	Description *string   `json:"description,omitempty"`
	TeacherID   string    `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// WithTeacher adds the teacher display name for student-facing listings.
type WithTeacher struct {
	Subject
	TeacherName string `json:"teacher_name"`
}

// Update carries partial field updates; nil means leave unchanged.
type Update struct {
	Name        *string
	Code        *string
	Schedule    *string
	Description *string
}

var ErrNotFound = errors.New("subject not found")

// Repository persists subjects in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new subject.
func (r *Repository) Insert(ctx context.Context, s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, name, code, schedule, description, teacher_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.Name, s.Code, s.Schedule, s.Description, s.TeacherID)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Subject{}, err
	}
	return s, nil
}

// Update applies the non-nil fields of upd to the subject.
func (r *Repository) Update(ctx context.Context, id string, upd Update) (Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE subjects
		SET name = COALESCE($2, name),
		    code = COALESCE($3, code),
		    schedule = COALESCE($4, schedule),
		    description = COALESCE($5, description)
		WHERE id = $1
		RETURNING id, name, code, schedule, description, teacher_id, created_at
	`, id, upd.Name, upd.Code, upd.Schedule, upd.Description)
	var s Subject
	if err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Schedule, &s.Description, &s.TeacherID, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	return s, nil
}

// Delete removes a subject. Enrollments, sessions and attendance records go
// with it through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a subject by id, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, schedule, description, teacher_id, created_at
		FROM subjects WHERE id = $1
	`, id)
	var s Subject
	if err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Schedule, &s.Description, &s.TeacherID, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	return s, nil
}

// OwnedBy reports whether teacherID owns the subject. A missing subject is
// reported the same as a foreign one so callers cannot probe existence.
func (r *Repository) OwnedBy(ctx context.Context, subjectID, teacherID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM subjects WHERE id = $1 AND teacher_id = $2
	`, subjectID, teacherID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByTeacher returns the teacher's subjects, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, schedule, description, teacher_id, created_at
		FROM subjects
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Schedule, &s.Description, &s.TeacherID, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListAll returns every subject with its teacher's name, for students
// browsing what they can enroll in.
func (r *Repository) ListAll(ctx context.Context) ([]WithTeacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.code, s.schedule, s.description, s.teacher_id, s.created_at, p.full_name
		FROM subjects s
		JOIN profiles p ON p.id = s.teacher_id
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WithTeacher
	for rows.Next() {
		var s WithTeacher
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Schedule, &s.Description, &s.TeacherID, &s.CreatedAt, &s.TeacherName); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
