package session

import (
	"context"
	"errors"
	"time"

	"github.com/Montinou/student-attendance-app/internal/qr"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, s Session) (Session, error)
	GetByCode(ctx context.Context, code string) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	CloseActiveForSubject(ctx context.Context, subjectID string, now time.Time) error
	Close(ctx context.Context, id string, now time.Time) error
	ListBySubject(ctx context.Context, subjectID string, includeExpired bool, now time.Time) ([]Session, error)
	ListByTeacher(ctx context.Context, teacherID string, includeExpired bool, now time.Time) ([]Session, error)
}

// Service creates and ends attendance sessions.
type Service struct {
	store           Store
	defaultDuration time.Duration
	now             func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store Store, defaultDuration time.Duration) *Service {
	if defaultDuration <= 0 {
		defaultDuration = 30 * time.Minute
	}
	return &Service{store: store, defaultDuration: defaultDuration, now: time.Now}
}

// Create opens a new active session for the subject. Any other session still
// active for the same subject is closed first, so at most one stays active
// per subject going forward.
func (s *Service) Create(ctx context.Context, subjectID, teacherID string, durationMinutes int) (Session, error) {
	if subjectID == "" || teacherID == "" {
		return Session{}, errors.New("subject and teacher required")
	}
	duration := s.defaultDuration
	if durationMinutes > 0 {
		duration = time.Duration(durationMinutes) * time.Minute
	}
	now := s.now().UTC()

	if err := s.store.CloseActiveForSubject(ctx, subjectID, now); err != nil {
		return Session{}, err
	}

	id := qr.NewSessionID()
	code := qr.Encode(qr.Payload{
		SessionID: id,
		SubjectID: subjectID,
		TeacherID: teacherID,
		Timestamp: now.UnixMilli(),
	})
	return s.store.Insert(ctx, Session{
		ID:        id,
		SubjectID: subjectID,
		TeacherID: teacherID,
		QRCode:    code,
		Status:    StatusActive,
		ExpiresAt: now.Add(duration),
	})
}

// End closes a session early.
func (s *Service) End(ctx context.Context, id string) error {
	return s.store.Close(ctx, id, s.now().UTC())
}

// GetByCode returns the session matching the code, or nil.
func (s *Service) GetByCode(ctx context.Context, code string) (*Session, error) {
	return s.store.GetByCode(ctx, code)
}

// GetByID returns a session by id, or nil.
func (s *Service) GetByID(ctx context.Context, id string) (*Session, error) {
	return s.store.GetByID(ctx, id)
}

// ListBySubject lists the subject's sessions.
func (s *Service) ListBySubject(ctx context.Context, subjectID string, includeExpired bool) ([]Session, error) {
	return s.store.ListBySubject(ctx, subjectID, includeExpired, s.now().UTC())
}

// ListByTeacher lists the teacher's sessions.
func (s *Service) ListByTeacher(ctx context.Context, teacherID string, includeExpired bool) ([]Session, error) {
	return s.store.ListByTeacher(ctx, teacherID, includeExpired, s.now().UTC())
}

// IsValid reports whether the session accepts check-ins at the given time:
// still active and strictly before its expiry. At the expiry instant the
// session is already expired.
func IsValid(s *Session, now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive && now.Before(s.ExpiresAt)
}

// TimeRemaining returns whole minutes until expiry, rounded up, or 0 once
// the session has expired.
func TimeRemaining(s *Session, now time.Time) int {
	if s == nil {
		return 0
	}
	diff := s.ExpiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int((diff + time.Minute - 1) / time.Minute)
}
