package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckIns counts check-in attempts by outcome: accepted, invalid_code,
// session_not_found, session_expired, not_enrolled, duplicate, error.
var CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendance_checkins_total",
	Help: "Check-in attempts by outcome.",
}, []string{"result"})

// SessionsCreated counts attendance sessions opened by teachers.
var SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "attendance_sessions_created_total",
	Help: "Attendance sessions created.",
})

// SessionsSwept counts sessions closed by the background expiry sweep.
var SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
	Name: "attendance_sessions_swept_total",
	Help: "Expired sessions closed by the worker sweep.",
})
