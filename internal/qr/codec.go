package qr

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Payload is the structured content of a scanned code.
// Wire format: sessionId|subjectId|teacherId|timestamp
type Payload struct {
	SessionID string
	SubjectID string
	TeacherID string
	Timestamp int64
}

// Decode failure modes.
var (
	ErrInvalidFormat    = errors.New("qr: expected 4 fields separated by |")
	ErrInvalidTimestamp = errors.New("qr: timestamp is not an integer")
	ErrSchemaViolation  = errors.New("qr: field failed shape check")
)

// SessionIDPrefix marks session ids embedded in QR payloads.
const SessionIDPrefix = "SESS_"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Encode formats a payload into its wire string. It never queries any store.
func Encode(p Payload) string {
	return fmt.Sprintf("%s|%s|%s|%d", p.SessionID, p.SubjectID, p.TeacherID, p.Timestamp)
}

// Decode parses scanned text into a payload. It is pure and total: every
// failure is reported through the returned error, ordered so that the field
// count is checked first, then the timestamp, then field shapes.
func Decode(scanned string) (Payload, error) {
	parts := strings.Split(scanned, "|")
	if len(parts) != 4 {
		return Payload{}, ErrInvalidFormat
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Payload{}, ErrInvalidTimestamp
	}
	if !strings.HasPrefix(parts[0], SessionIDPrefix) || len(parts[0]) == len(SessionIDPrefix) {
		return Payload{}, ErrSchemaViolation
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return Payload{}, ErrSchemaViolation
	}
	if _, err := uuid.Parse(parts[2]); err != nil {
		return Payload{}, ErrSchemaViolation
	}
	return Payload{
		SessionID: parts[0],
		SubjectID: parts[1],
		TeacherID: parts[2],
		Timestamp: ts,
	}, nil
}

// NewSessionID generates a session id of the form SESS_ plus 8 random
// base-36 characters.
func NewSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a uuid-derived suffix rather than panic.
		return SessionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = base36[int(b)%len(base36)]
	}
	return SessionIDPrefix + string(out)
}
