package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Montinou/student-attendance-app/internal/profile"
	"github.com/Montinou/student-attendance-app/internal/qr"
	"github.com/Montinou/student-attendance-app/internal/session"
	"github.com/Montinou/student-attendance-app/internal/subject"
)

const (
	testSubjectID = "11111111-1111-1111-1111-111111111111"
	testTeacherID = "22222222-2222-2222-2222-222222222222"
	testStudentID = "33333333-3333-3333-3333-333333333333"
	outsiderID    = "44444444-4444-4444-4444-444444444444"
)

type fakeSessions struct {
	byCode map[string]*session.Session
	calls  int
}

func (f *fakeSessions) GetByCode(_ context.Context, code string) (*session.Session, error) {
	f.calls++
	return f.byCode[code], nil
}

type fakeEnrollments struct {
	enrolled map[string]bool // studentID+"/"+subjectID
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, studentID, subjectID string) (bool, error) {
	return f.enrolled[studentID+"/"+subjectID], nil
}

type fakeRecords struct {
	rows map[string]Record // sessionID+"/"+studentID
}

func (f *fakeRecords) HasAttended(_ context.Context, sessionID, studentID string) (bool, error) {
	_, ok := f.rows[sessionID+"/"+studentID]
	return ok, nil
}

func (f *fakeRecords) Insert(_ context.Context, sessionID, studentID, subjectID string, meta Metadata) (Record, error) {
	key := sessionID + "/" + studentID
	if _, ok := f.rows[key]; ok {
		return Record{}, ErrDuplicate
	}
	rec := Record{
		ID:          "rec-" + key,
		SessionID:   sessionID,
		StudentID:   studentID,
		SubjectID:   subjectID,
		CheckedInAt: time.Now().UTC(),
		IPAddress:   meta.IPAddress,
		Latitude:    meta.Latitude,
		Longitude:   meta.Longitude,
	}
	f.rows[key] = rec
	return rec, nil
}

type fakeProfiles struct{}

func (fakeProfiles) GetByID(_ context.Context, id string) (profile.Profile, error) {
	if id == testStudentID {
		return profile.Profile{ID: id, FullName: "Ana Alvarez"}, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

type fakeSubjects struct{}

func (fakeSubjects) GetByID(_ context.Context, id string) (subject.Subject, error) {
	if id == testSubjectID {
		return subject.Subject{ID: id, Name: "Algorithms"}, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

type fixture struct {
	svc      *Service
	sessions *fakeSessions
	records  *fakeRecords
	code     string
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := &session.Session{
		ID:        "SESS_abc12345",
		SubjectID: testSubjectID,
		TeacherID: testTeacherID,
		Status:    session.StatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
	sess.QRCode = qr.Encode(qr.Payload{
		SessionID: sess.ID,
		SubjectID: sess.SubjectID,
		TeacherID: sess.TeacherID,
		Timestamp: now.UnixMilli(),
	})

	sessions := &fakeSessions{byCode: map[string]*session.Session{sess.QRCode: sess}}
	records := &fakeRecords{rows: map[string]Record{}}
	enrollments := &fakeEnrollments{enrolled: map[string]bool{testStudentID + "/" + testSubjectID: true}}

	svc := NewService(sessions, enrollments, records, fakeProfiles{}, fakeSubjects{})
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, sessions: sessions, records: records, code: sess.QRCode, now: now}
}

func (fx *fixture) session() *session.Session {
	return fx.sessions.byCode[fx.code]
}

func TestCheckInAccepted(t *testing.T) {
	fx := newFixture(t)
	ip := "203.0.113.9"

	res, err := fx.svc.CheckIn(context.Background(), fx.code, testStudentID, Metadata{IPAddress: &ip})
	if err != nil {
		t.Fatalf("CheckIn error: %v", err)
	}
	if res.Record.SessionID != fx.session().ID || res.Record.StudentID != testStudentID {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if res.Record.SubjectID != testSubjectID {
		t.Fatalf("record subject = %s, want %s", res.Record.SubjectID, testSubjectID)
	}
	if res.Record.CheckedInAt.IsZero() {
		t.Fatal("checked_in_at not set")
	}
	if res.StudentName != "Ana Alvarez" || res.SubjectName != "Algorithms" {
		t.Fatalf("enrichment mismatch: %q / %q", res.StudentName, res.SubjectName)
	}
	if res.Record.IPAddress == nil || *res.Record.IPAddress != ip {
		t.Fatalf("ip not recorded: %v", res.Record.IPAddress)
	}
	if len(fx.records.rows) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(fx.records.rows))
	}
}

func TestCheckInDuplicate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.CheckIn(ctx, fx.code, testStudentID, Metadata{}); err != nil {
		t.Fatalf("first CheckIn error: %v", err)
	}
	if _, err := fx.svc.CheckIn(ctx, fx.code, testStudentID, Metadata{}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second CheckIn error = %v, want ErrDuplicate", err)
	}
	if len(fx.records.rows) != 1 {
		t.Fatalf("duplicate scan must not add a row; got %d", len(fx.records.rows))
	}
}

func TestCheckInNotEnrolled(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.svc.CheckIn(context.Background(), fx.code, outsiderID, Metadata{}); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("error = %v, want ErrNotEnrolled", err)
	}
	if len(fx.records.rows) != 0 {
		t.Fatal("rejected scan must not persist a record")
	}
}

func TestCheckInExpiry(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	expiry := fx.session().ExpiresAt

	// One instant before expiry is still accepted.
	fx.svc.now = func() time.Time { return expiry.Add(-time.Second) }
	if _, err := fx.svc.CheckIn(ctx, fx.code, testStudentID, Metadata{}); err != nil {
		t.Fatalf("CheckIn just before expiry: %v", err)
	}

	// At the expiry instant and later the session rejects.
	delete(fx.records.rows, fx.session().ID+"/"+testStudentID)
	for _, at := range []time.Time{expiry, expiry.Add(time.Minute)} {
		fx.svc.now = func() time.Time { return at }
		if _, err := fx.svc.CheckIn(ctx, fx.code, testStudentID, Metadata{}); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("at %v: error = %v, want ErrSessionExpired", at, err)
		}
	}
}

func TestCheckInClosedSession(t *testing.T) {
	fx := newFixture(t)
	fx.session().Status = session.StatusClosed

	if _, err := fx.svc.CheckIn(context.Background(), fx.code, testStudentID, Metadata{}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired for closed session", err)
	}
}

func TestCheckInInvalidCode(t *testing.T) {
	fx := newFixture(t)

	for _, code := range []string{"", "garbage", "a|b|c", "SESS_x|not-a-uuid|also-not|123"} {
		if _, err := fx.svc.CheckIn(context.Background(), code, testStudentID, Metadata{}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q: error = %v, want ErrInvalidCode", code, err)
		}
	}
	if fx.sessions.calls != 0 {
		t.Fatal("decode failure must not reach the session store")
	}
}

func TestCheckInUnknownSession(t *testing.T) {
	fx := newFixture(t)
	unknown := qr.Encode(qr.Payload{
		SessionID: "SESS_nowhere1",
		SubjectID: testSubjectID,
		TeacherID: testTeacherID,
		Timestamp: fx.now.UnixMilli(),
	})

	if _, err := fx.svc.CheckIn(context.Background(), unknown, testStudentID, Metadata{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestValidateAccumulatesReasons(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// All green.
	res, err := fx.svc.Validate(ctx, fx.code, testStudentID)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !res.Valid || res.Session == nil || res.Session.ID != fx.session().ID {
		t.Fatalf("expected valid result with session, got %+v", res)
	}

	// Expired session, not enrolled, already attended: all three reasons.
	fx.records.rows[fx.session().ID+"/"+outsiderID] = Record{}
	fx.svc.now = func() time.Time { return fx.session().ExpiresAt.Add(time.Hour) }
	res, err = fx.svc.Validate(ctx, fx.code, outsiderID)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if res.Valid || len(res.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %+v", res)
	}
}

func TestValidateShortCircuits(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.svc.Validate(ctx, "not|a|code", testStudentID)
	if err != nil || res.Valid || len(res.Reasons) != 1 {
		t.Fatalf("decode failure: got %+v, %v", res, err)
	}

	unknown := qr.Encode(qr.Payload{
		SessionID: "SESS_nowhere1",
		SubjectID: testSubjectID,
		TeacherID: testTeacherID,
		Timestamp: fx.now.UnixMilli(),
	})
	res, err = fx.svc.Validate(ctx, unknown, testStudentID)
	if err != nil || res.Valid || len(res.Reasons) != 1 {
		t.Fatalf("missing session: got %+v, %v", res, err)
	}
}
