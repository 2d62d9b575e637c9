package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/metrics"
	"github.com/Montinou/student-attendance-app/internal/qr"
	"github.com/Montinou/student-attendance-app/internal/session"
)

// Durations a teacher may pick for a session; zero means the configured
// default.
var allowedDurations = map[int]bool{0: true, 5: true, 10: true, 15: true, 30: true, 60: true}

func (s *server) handleCreateSession(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	var req struct {
		SubjectID       string `json:"subject_id" binding:"required"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !allowedDurations[req.DurationMinutes] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_minutes must be one of 5, 10, 15, 30, 60"})
		return
	}
	if !s.requireSubjectOwner(c, req.SubjectID, who.UserID) {
		return
	}

	sess, err := s.sessions.Create(c.Request.Context(), req.SubjectID, who.UserID, req.DurationMinutes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	metrics.SessionsCreated.Inc()

	qrImage, err := qr.DataURL(sess.QRCode)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":  sess,
		"qr_image": qrImage,
	})
}

func (s *server) handleListSessions(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	includeExpired := c.Query("include_expired") == "true"

	if subjectID := c.Query("subject_id"); subjectID != "" {
		if !s.requireSubjectOwner(c, subjectID, who.UserID) {
			return
		}
		sessions, err := s.sessions.ListBySubject(c.Request.Context(), subjectID, includeExpired)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
		return
	}

	sessions, err := s.sessions.ListByTeacher(c.Request.Context(), who.UserID, includeExpired)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *server) handleGetSession(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":        sess,
		"time_remaining": session.TimeRemaining(sess, time.Now().UTC()),
	})
}

func (s *server) handleEndSession(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	if err := s.sessions.End(c.Request.Context(), sess.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) handleSessionAttendance(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	records, err := s.records.ListBySession(ctx, sess.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	count, err := s.records.CountBySession(ctx, sess.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": count})
}

// ownedSession resolves the :id session and checks the caller owns it.
// Missing and foreign sessions both yield 404.
func (s *server) ownedSession(c *gin.Context) (*session.Session, bool) {
	who, ok := s.identity(c)
	if !ok {
		return nil, false
	}
	sess, err := s.sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	if sess == nil || sess.TeacherID != who.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or unauthorized"})
		return nil, false
	}
	return sess, true
}
