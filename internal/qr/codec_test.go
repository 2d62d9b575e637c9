package qr

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []Payload{
		{
			SessionID: "SESS_a1b2c3d4",
			SubjectID: "11111111-1111-1111-1111-111111111111",
			TeacherID: "22222222-2222-2222-2222-222222222222",
			Timestamp: 1737000000000,
		},
		{
			SessionID: "SESS_x",
			SubjectID: "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			TeacherID: "ffffffff-0000-1111-2222-333333333333",
			Timestamp: 0,
		},
	}
	for _, want := range payloads {
		got, err := Decode(Encode(want))
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)) error: %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
	}
}

func TestDecodeRejections(t *testing.T) {
	const subject = "11111111-1111-1111-1111-111111111111"
	const teacher = "22222222-2222-2222-2222-222222222222"

	cases := []struct {
		name    string
		scanned string
		want    error
	}{
		{"empty", "", ErrInvalidFormat},
		{"three fields", "SESS_abc|" + subject + "|1700000000", ErrInvalidFormat},
		{"five fields", "SESS_abc|" + subject + "|" + teacher + "|1700000000|extra", ErrInvalidFormat},
		{"bad timestamp", "SESS_abc|" + subject + "|" + teacher + "|soon", ErrInvalidTimestamp},
		{"missing prefix", "abc|" + subject + "|" + teacher + "|1700000000", ErrSchemaViolation},
		{"empty suffix", "SESS_|" + subject + "|" + teacher + "|1700000000", ErrSchemaViolation},
		{"bad subject uuid", "SESS_abc|not-a-uuid|" + teacher + "|1700000000", ErrSchemaViolation},
		{"bad teacher uuid", "SESS_abc|" + subject + "|not-a-uuid|1700000000", ErrSchemaViolation},
	}
	for _, tc := range cases {
		if _, err := Decode(tc.scanned); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestNewSessionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		if !strings.HasPrefix(id, SessionIDPrefix) {
			t.Fatalf("id %q missing prefix", id)
		}
		if len(id) != len(SessionIDPrefix)+8 {
			t.Fatalf("id %q has wrong length", id)
		}
		for _, r := range id[len(SessionIDPrefix):] {
			if !strings.ContainsRune(base36, r) {
				t.Fatalf("id %q contains non-base36 rune %q", id, r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Fatalf("expected ~100 distinct ids, got %d", len(seen))
	}
}

func TestDataURL(t *testing.T) {
	url, err := DataURL("SESS_abc|11111111-1111-1111-1111-111111111111|22222222-2222-2222-2222-222222222222|1700000000")
	if err != nil {
		t.Fatalf("DataURL error: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL prefix: %.40s", url)
	}
}
