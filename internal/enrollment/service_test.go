package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Montinou/student-attendance-app/internal/profile"
)

const (
	studentID = "33333333-3333-3333-3333-333333333333"
	subjectID = "11111111-1111-1111-1111-111111111111"
)

type fakeStore struct {
	rows map[string]Enrollment // studentID+"/"+subjectID
	byID map[string]Enrollment
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]Enrollment{}, byID: map[string]Enrollment{}}
}

func (f *fakeStore) Exists(_ context.Context, studentID, subjectID string) (bool, error) {
	_, ok := f.rows[studentID+"/"+subjectID]
	return ok, nil
}

func (f *fakeStore) Insert(_ context.Context, studentID, subjectID string) (Enrollment, error) {
	key := studentID + "/" + subjectID
	if _, ok := f.rows[key]; ok {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	e := Enrollment{ID: "enr-" + key, StudentID: studentID, SubjectID: subjectID, EnrolledAt: time.Now().UTC()}
	f.rows[key] = e
	f.byID[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (Enrollment, error) {
	e, ok := f.byID[id]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	e, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(f.byID, id)
	delete(f.rows, e.StudentID+"/"+e.SubjectID)
	return nil
}

type fakeProfiles struct {
	students map[string]profile.Profile // by email
}

func (f *fakeProfiles) GetStudentByEmail(_ context.Context, email string) (profile.Profile, error) {
	p, ok := f.students[email]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func TestEnroll(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{})
	ctx := context.Background()

	e, err := svc.Enroll(ctx, studentID, subjectID)
	if err != nil {
		t.Fatalf("Enroll error: %v", err)
	}
	enrolled, err := svc.IsEnrolled(ctx, studentID, subjectID)
	if err != nil || !enrolled {
		t.Fatalf("IsEnrolled = %v, %v after enroll", enrolled, err)
	}

	if _, err := svc.Enroll(ctx, studentID, subjectID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("second Enroll = %v, want ErrAlreadyEnrolled", err)
	}

	if err := svc.Unenroll(ctx, e.ID); err != nil {
		t.Fatalf("Unenroll error: %v", err)
	}
	enrolled, _ = svc.IsEnrolled(ctx, studentID, subjectID)
	if enrolled {
		t.Fatal("still enrolled after unenroll")
	}
}

func TestEnrollByEmail(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{students: map[string]profile.Profile{
		"ana@school.edu": {ID: studentID, Email: "ana@school.edu", Role: "student"},
	}}
	svc := NewService(store, profiles)
	ctx := context.Background()

	e, err := svc.EnrollByEmail(ctx, "ana@school.edu", subjectID)
	if err != nil {
		t.Fatalf("EnrollByEmail error: %v", err)
	}
	if e.StudentID != studentID || e.SubjectID != subjectID {
		t.Fatalf("unexpected enrollment: %+v", e)
	}

	if _, err := svc.EnrollByEmail(ctx, "nobody@school.edu", subjectID); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("unknown email = %v, want ErrStudentNotFound", err)
	}
	if _, err := svc.EnrollByEmail(ctx, "ana@school.edu", subjectID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("repeat EnrollByEmail = %v, want ErrAlreadyEnrolled", err)
	}
}
