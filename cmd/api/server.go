package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/attendance"
	"github.com/Montinou/student-attendance-app/internal/auth"
	"github.com/Montinou/student-attendance-app/internal/config"
	"github.com/Montinou/student-attendance-app/internal/enrollment"
	"github.com/Montinou/student-attendance-app/internal/profile"
	"github.com/Montinou/student-attendance-app/internal/queue"
	"github.com/Montinou/student-attendance-app/internal/session"
	"github.com/Montinou/student-attendance-app/internal/subject"
)

type server struct {
	cfg         config.App
	profiles    *profile.Service
	subjects    *subject.Repository
	enrollments *enrollment.Service
	enrollRepo  *enrollment.Repository
	sessions    *session.Service
	checkins    *attendance.Service
	records     *attendance.Repository
	queue       queue.Queue
}

// identity returns the acting user or aborts with 401.
func (s *server) identity(c *gin.Context) (auth.Identity, bool) {
	who, ok := auth.FromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return who, ok
}

// requireSubjectOwner verifies the teacher owns the subject. Missing and
// foreign subjects get the same 404 so existence cannot be probed.
func (s *server) requireSubjectOwner(c *gin.Context, subjectID, teacherID string) bool {
	owned, err := s.subjects.OwnedBy(c.Request.Context(), subjectID, teacherID)
	if err != nil {
		s.writeError(c, err)
		return false
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found or unauthorized"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP responses. Anything unrecognized is
// logged and hidden behind a generic 500.
func (s *server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidCode),
		errors.Is(err, profile.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, profile.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, enrollment.ErrStudentNotFound),
		errors.Is(err, enrollment.ErrNotFound),
		errors.Is(err, subject.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, profile.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrDuplicate),
		errors.Is(err, enrollment.ErrAlreadyEnrolled),
		errors.Is(err, profile.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
