package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Montinou/student-attendance-app/internal/qr"
)

const (
	subjectID = "11111111-1111-1111-1111-111111111111"
	teacherID = "22222222-2222-2222-2222-222222222222"
)

type fakeStore struct {
	sessions map[string]*Session
	ops      []string
}

func (f *fakeStore) Insert(_ context.Context, s Session) (Session, error) {
	f.ops = append(f.ops, "insert")
	s.CreatedAt = time.Now().UTC()
	stored := s
	f.sessions[s.ID] = &stored
	return s, nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*Session, error) {
	for _, s := range f.sessions {
		if s.QRCode == code {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Session, error) {
	return f.sessions[id], nil
}

func (f *fakeStore) CloseActiveForSubject(_ context.Context, subjID string, now time.Time) error {
	f.ops = append(f.ops, "close-active")
	for _, s := range f.sessions {
		if s.SubjectID == subjID && s.Status == StatusActive {
			s.Status = StatusClosed
			s.ExpiresAt = now
		}
	}
	return nil
}

func (f *fakeStore) Close(_ context.Context, id string, now time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusClosed
	s.ExpiresAt = now
	return nil
}

func (f *fakeStore) ListBySubject(_ context.Context, _ string, _ bool, _ time.Time) ([]Session, error) {
	return nil, nil
}

func (f *fakeStore) ListByTeacher(_ context.Context, _ string, _ bool, _ time.Time) ([]Session, error) {
	return nil, nil
}

func newTestService() (*Service, *fakeStore, time.Time) {
	store := &fakeStore{sessions: map[string]*Session{}}
	svc := NewService(store, 30*time.Minute)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, now
}

func TestCreateSession(t *testing.T) {
	svc, store, now := newTestService()

	s, err := svc.Create(context.Background(), subjectID, teacherID, 15)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !strings.HasPrefix(s.ID, qr.SessionIDPrefix) {
		t.Fatalf("id %q missing prefix", s.ID)
	}
	if s.Status != StatusActive {
		t.Fatalf("status = %s, want active", s.Status)
	}
	if !s.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expires_at = %v, want created+15m", s.ExpiresAt)
	}

	p, err := qr.Decode(s.QRCode)
	if err != nil {
		t.Fatalf("qr code does not decode: %v", err)
	}
	if p.SessionID != s.ID || p.SubjectID != subjectID || p.TeacherID != teacherID {
		t.Fatalf("qr payload mismatch: %+v", p)
	}

	// Prior active sessions are closed before the new one is inserted.
	if len(store.ops) != 2 || store.ops[0] != "close-active" || store.ops[1] != "insert" {
		t.Fatalf("unexpected op order: %v", store.ops)
	}
}

func TestCreateClosesPriorActive(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, subjectID, teacherID, 0)
	if err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	second, err := svc.Create(ctx, subjectID, teacherID, 0)
	if err != nil {
		t.Fatalf("second Create error: %v", err)
	}

	if got := store.sessions[first.ID].Status; got != StatusClosed {
		t.Fatalf("first session status = %s, want closed", got)
	}
	if got := store.sessions[second.ID].Status; got != StatusActive {
		t.Fatalf("second session status = %s, want active", got)
	}
}

func TestCreateDefaultDuration(t *testing.T) {
	svc, _, now := newTestService()

	s, err := svc.Create(context.Background(), subjectID, teacherID, 0)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !s.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("expires_at = %v, want created+30m", s.ExpiresAt)
	}
}

func TestEndSession(t *testing.T) {
	svc, store, now := newTestService()
	ctx := context.Background()

	s, err := svc.Create(ctx, subjectID, teacherID, 30)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := svc.End(ctx, s.ID); err != nil {
		t.Fatalf("End error: %v", err)
	}

	ended := store.sessions[s.ID]
	if ended.Status != StatusClosed {
		t.Fatalf("status = %s, want closed", ended.Status)
	}
	if ended.ExpiresAt.After(now) {
		t.Fatalf("expiry %v not pulled to now %v", ended.ExpiresAt, now)
	}
	if IsValid(ended, now) {
		t.Fatal("ended session must not validate")
	}

	if err := svc.End(ctx, "SESS_missing1"); err != ErrNotFound {
		t.Fatalf("End(missing) = %v, want ErrNotFound", err)
	}
}

func TestIsValid(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	expiry := now.Add(10 * time.Minute)

	cases := []struct {
		name   string
		status string
		at     time.Time
		want   bool
	}{
		{"active before expiry", StatusActive, now, true},
		{"active one ns before expiry", StatusActive, expiry.Add(-time.Nanosecond), true},
		{"active at expiry", StatusActive, expiry, false},
		{"active after expiry", StatusActive, expiry.Add(time.Second), false},
		{"closed before expiry", StatusClosed, now, false},
	}
	for _, tc := range cases {
		s := &Session{Status: tc.status, ExpiresAt: expiry}
		if got := IsValid(s, tc.at); got != tc.want {
			t.Fatalf("%s: IsValid = %v, want %v", tc.name, got, tc.want)
		}
	}
	if IsValid(nil, now) {
		t.Fatal("nil session must not validate")
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(10*time.Minute + 30*time.Second)}

	if got := TimeRemaining(s, now); got != 11 {
		t.Fatalf("TimeRemaining = %d, want 11 (rounded up)", got)
	}
	if got := TimeRemaining(s, now.Add(time.Hour)); got != 0 {
		t.Fatalf("TimeRemaining past expiry = %d, want 0", got)
	}
	if got := TimeRemaining(nil, now); got != 0 {
		t.Fatalf("TimeRemaining(nil) = %d, want 0", got)
	}
}
