package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Montinou/student-attendance-app/internal/store"
)

// Profile is a registered user. Role is fixed at registration.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound   = errors.New("profile not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository persists profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new profile with its password hash.
func (r *Repository) Insert(ctx context.Context, p Profile, passwordHash string) (Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.Email, p.FullName, passwordHash, p.Role)
	if err := row.Scan(&p.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, err
	}
	return p, nil
}

// GetByID returns a profile by id, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, created_at
		FROM profiles WHERE id = $1
	`, id)
	return scanProfile(row)
}

// GetByEmail returns a profile and its password hash by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Profile, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, created_at, password_hash
		FROM profiles WHERE email = $1
	`, email)
	var p Profile
	var hash string
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, "", ErrNotFound
		}
		return Profile{}, "", err
	}
	return p, hash, nil
}

// GetStudentByEmail returns the student profile with the given email, or
// ErrNotFound when no student matches.
func (r *Repository) GetStudentByEmail(ctx context.Context, email string) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, created_at
		FROM profiles WHERE email = $1 AND role = 'student'
	`, email)
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}
