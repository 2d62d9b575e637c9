package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/attendance"
	"github.com/Montinou/student-attendance-app/internal/queue"
)

func (s *server) handleValidate(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.checkins.Validate(c.Request.Context(), req.Code, who.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) handleCheckIn(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	var req struct {
		Code      string   `json:"code" binding:"required"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meta := attendance.Metadata{Latitude: req.Latitude, Longitude: req.Longitude}
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}

	res, err := s.checkins.CheckIn(c.Request.Context(), req.Code, who.UserID, meta)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.queue.Publish(c.Request.Context(), queue.Message{Type: queue.TypeCheckIn, Body: res.Record.ID}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}

	c.JSON(http.StatusCreated, res)
}

func (s *server) handleMyAttendance(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	records, err := s.records.ListByStudent(c.Request.Context(), who.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// handleReport lists check-ins across the teacher's subjects, optionally
// narrowed by subject and calendar date range (to is inclusive).
func (s *server) handleReport(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	filters := attendance.Filters{SubjectID: c.Query("subject_id")}
	if filters.SubjectID != "" && !s.requireSubjectOwner(c, filters.SubjectID, who.UserID) {
		return
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		filters.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		filters.To = &to
	}

	records, err := s.records.ListByTeacher(c.Request.Context(), who.UserID, filters)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
