package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/Montinou/student-attendance-app/internal/auth"
)

var (
	ErrInvalidRole        = errors.New("role must be teacher or student")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles registration and login.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a profile with a bcrypt password hash. The role is
// immutable once set.
func (s *Service) Register(ctx context.Context, email, password, fullName, role string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" || fullName == "" {
		return Profile{}, errors.New("email, password and full name required")
	}
	if role != auth.RoleTeacher && role != auth.RoleStudent {
		return Profile{}, ErrInvalidRole
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Profile{}, err
	}
	return s.repo.Insert(ctx, Profile{Email: email, FullName: fullName, Role: role}, hash)
}

// Login verifies credentials and returns the matching profile.
func (s *Service) Login(ctx context.Context, email, password string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrInvalidCredentials
		}
		return Profile{}, err
	}
	if !auth.CheckPassword(hash, password) {
		return Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

// GetByID returns a profile by id.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}
