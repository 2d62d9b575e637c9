package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/auth"
)

func (s *server) handleSelfEnroll(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	var req struct {
		SubjectID string `json:"subject_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := s.enrollments.Enroll(c.Request.Context(), who.UserID, req.SubjectID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrollment": e})
}

func (s *server) handleEnrollByEmail(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	subjectID := c.Param("id")
	if !s.requireSubjectOwner(c, subjectID, who.UserID) {
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := s.enrollments.EnrollByEmail(c.Request.Context(), req.Email, subjectID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrollment": e})
}

func (s *server) handleMyEnrollments(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	enrollments, err := s.enrollRepo.ListByStudent(c.Request.Context(), who.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

func (s *server) handleRoster(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	subjectID := c.Param("id")
	if !s.requireSubjectOwner(c, subjectID, who.UserID) {
		return
	}
	roster, err := s.enrollRepo.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": roster})
}

// handleUnenroll removes an enrollment. Allowed for the enrolled student
// themselves and for the teacher owning the subject; everyone else gets the
// same 404 as a missing enrollment.
func (s *server) handleUnenroll(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	e, err := s.enrollments.Get(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	allowed := who.Role == auth.RoleStudent && e.StudentID == who.UserID
	if !allowed && who.Role == auth.RoleTeacher {
		owned, err := s.subjects.OwnedBy(ctx, e.SubjectID, who.UserID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		allowed = owned
	}
	if !allowed {
		c.JSON(http.StatusNotFound, gin.H{"error": "enrollment not found or unauthorized"})
		return
	}

	if err := s.enrollments.Unenroll(ctx, e.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
