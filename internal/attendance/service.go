package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Montinou/student-attendance-app/internal/metrics"
	"github.com/Montinou/student-attendance-app/internal/profile"
	"github.com/Montinou/student-attendance-app/internal/qr"
	"github.com/Montinou/student-attendance-app/internal/session"
	"github.com/Montinou/student-attendance-app/internal/subject"
)

// Rejection reasons produced by the check-in gate, in check order. The first
// failing check wins; later checks are not run.
var (
	ErrInvalidCode     = errors.New("invalid code")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrNotEnrolled     = errors.New("student is not enrolled in this subject")
	ErrDuplicate       = errors.New("attendance already recorded for this session")
)

// Sessions resolves scanned codes to sessions.
type Sessions interface {
	GetByCode(ctx context.Context, code string) (*session.Session, error)
}

// Enrollments answers membership checks.
type Enrollments interface {
	IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error)
}

// Records is the persistence surface for attendance records.
type Records interface {
	HasAttended(ctx context.Context, sessionID, studentID string) (bool, error)
	Insert(ctx context.Context, sessionID, studentID, subjectID string, meta Metadata) (Record, error)
}

// Profiles and Subjects supply display names for accepted check-ins.
type Profiles interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

type Subjects interface {
	GetByID(ctx context.Context, id string) (subject.Subject, error)
}

// CheckInResult is an accepted check-in with denormalized display fields.
type CheckInResult struct {
	Record      Record `json:"record"`
	StudentName string `json:"student_name"`
	SubjectName string `json:"subject_name"`
}

// ValidationResult is the outcome of a non-mutating dry run of the gate.
type ValidationResult struct {
	Valid   bool             `json:"valid"`
	Reasons []string         `json:"reasons,omitempty"`
	Session *session.Session `json:"session,omitempty"`
}

// Service runs the check-in gate: decode, resolve session, expiry check,
// enrollment check, duplicate check, insert. Each check short-circuits so
// the caller learns exactly one reason.
type Service struct {
	sessions    Sessions
	enrollments Enrollments
	records     Records
	profiles    Profiles
	subjects    Subjects
	now         func() time.Time
}

// NewService creates the check-in service.
func NewService(sessions Sessions, enrollments Enrollments, records Records, profiles Profiles, subjects Subjects) *Service {
	return &Service{
		sessions:    sessions,
		enrollments: enrollments,
		records:     records,
		profiles:    profiles,
		subjects:    subjects,
		now:         time.Now,
	}
}

// CheckIn records attendance for the acting student from a scanned code.
// On success exactly one record exists afterwards; concurrent duplicate
// submissions lose against the store's unique constraint and surface as
// ErrDuplicate.
func (s *Service) CheckIn(ctx context.Context, scannedCode, studentID string, meta Metadata) (CheckInResult, error) {
	res, err := s.checkIn(ctx, scannedCode, studentID, meta)
	metrics.CheckIns.WithLabelValues(outcomeLabel(err)).Inc()
	return res, err
}

func (s *Service) checkIn(ctx context.Context, scannedCode, studentID string, meta Metadata) (CheckInResult, error) {
	if _, err := qr.Decode(scannedCode); err != nil {
		return CheckInResult{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	sess, err := s.sessions.GetByCode(ctx, scannedCode)
	if err != nil {
		return CheckInResult{}, err
	}
	if sess == nil {
		return CheckInResult{}, ErrSessionNotFound
	}

	if !session.IsValid(sess, s.now().UTC()) {
		return CheckInResult{}, ErrSessionExpired
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, sess.SubjectID)
	if err != nil {
		return CheckInResult{}, err
	}
	if !enrolled {
		return CheckInResult{}, ErrNotEnrolled
	}

	attended, err := s.records.HasAttended(ctx, sess.ID, studentID)
	if err != nil {
		return CheckInResult{}, err
	}
	if attended {
		return CheckInResult{}, ErrDuplicate
	}

	rec, err := s.records.Insert(ctx, sess.ID, studentID, sess.SubjectID, meta)
	if err != nil {
		return CheckInResult{}, err
	}

	// Display enrichment only; the record stands regardless.
	result := CheckInResult{Record: rec}
	if p, err := s.profiles.GetByID(ctx, studentID); err == nil {
		result.StudentName = p.FullName
	}
	if subj, err := s.subjects.GetByID(ctx, sess.SubjectID); err == nil {
		result.SubjectName = subj.Name
	}
	return result, nil
}

// Validate dry-runs the gate without inserting. Decode failures and a
// missing session end the run immediately; after that, every remaining
// failing check contributes a reason so the student sees everything wrong
// at once.
func (s *Service) Validate(ctx context.Context, scannedCode, studentID string) (ValidationResult, error) {
	if _, err := qr.Decode(scannedCode); err != nil {
		return ValidationResult{Reasons: []string{ErrInvalidCode.Error()}}, nil
	}

	sess, err := s.sessions.GetByCode(ctx, scannedCode)
	if err != nil {
		return ValidationResult{}, err
	}
	if sess == nil {
		return ValidationResult{Reasons: []string{ErrSessionNotFound.Error()}}, nil
	}

	var reasons []string
	if !session.IsValid(sess, s.now().UTC()) {
		reasons = append(reasons, ErrSessionExpired.Error())
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, sess.SubjectID)
	if err != nil {
		return ValidationResult{}, err
	}
	if !enrolled {
		reasons = append(reasons, ErrNotEnrolled.Error())
	}

	attended, err := s.records.HasAttended(ctx, sess.ID, studentID)
	if err != nil {
		return ValidationResult{}, err
	}
	if attended {
		reasons = append(reasons, ErrDuplicate.Error())
	}

	if len(reasons) > 0 {
		return ValidationResult{Reasons: reasons}, nil
	}
	return ValidationResult{Valid: true, Session: sess}, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return "error"
	}
}
