package enrollment

import (
	"context"
	"errors"

	"github.com/Montinou/student-attendance-app/internal/profile"
)

// ErrStudentNotFound means no student profile matches the given email.
var ErrStudentNotFound = errors.New("student not found with this email")

// Store is the persistence surface the service needs.
type Store interface {
	Exists(ctx context.Context, studentID, subjectID string) (bool, error)
	Insert(ctx context.Context, studentID, subjectID string) (Enrollment, error)
	GetByID(ctx context.Context, id string) (Enrollment, error)
	Delete(ctx context.Context, id string) error
}

// StudentFinder resolves an email to a student profile.
type StudentFinder interface {
	GetStudentByEmail(ctx context.Context, email string) (profile.Profile, error)
}

// Service handles enrollment membership.
type Service struct {
	store    Store
	profiles StudentFinder
}

// NewService creates a service.
func NewService(store Store, profiles StudentFinder) *Service {
	return &Service{store: store, profiles: profiles}
}

// IsEnrolled reports membership of a student in a subject.
func (s *Service) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	return s.store.Exists(ctx, studentID, subjectID)
}

// Enroll adds a student to a subject. The pre-check gives a clean error on
// the common path; the unique constraint catches the race.
func (s *Service) Enroll(ctx context.Context, studentID, subjectID string) (Enrollment, error) {
	exists, err := s.store.Exists(ctx, studentID, subjectID)
	if err != nil {
		return Enrollment{}, err
	}
	if exists {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	return s.store.Insert(ctx, studentID, subjectID)
}

// EnrollByEmail resolves the email to a student profile and enrolls them.
// Used by teachers adding students to their subject.
func (s *Service) EnrollByEmail(ctx context.Context, email, subjectID string) (Enrollment, error) {
	p, err := s.profiles.GetStudentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Enrollment{}, ErrStudentNotFound
		}
		return Enrollment{}, err
	}
	return s.Enroll(ctx, p.ID, subjectID)
}

// Unenroll removes an enrollment by id.
func (s *Service) Unenroll(ctx context.Context, enrollmentID string) error {
	return s.store.Delete(ctx, enrollmentID)
}

// Get returns an enrollment by id.
func (s *Service) Get(ctx context.Context, enrollmentID string) (Enrollment, error) {
	return s.store.GetByID(ctx, enrollmentID)
}
