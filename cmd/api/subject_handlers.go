package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/auth"
	"github.com/Montinou/student-attendance-app/internal/subject"
)

func (s *server) handleCreateSubject(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Code        string  `json:"code" binding:"required"`
		Schedule    *string `json:"schedule"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subj, err := s.subjects.Insert(c.Request.Context(), subject.Subject{
		Name:        req.Name,
		Code:        req.Code,
		Schedule:    req.Schedule,
		Description: req.Description,
		TeacherID:   who.UserID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subject": subj})
}

// handleListSubjects returns the teacher's own subjects, or the full catalog
// for students browsing what to enroll in.
func (s *server) handleListSubjects(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	if who.Role == auth.RoleTeacher {
		subjects, err := s.subjects.ListByTeacher(c.Request.Context(), who.UserID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
		return
	}
	subjects, err := s.subjects.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (s *server) handleGetSubject(c *gin.Context) {
	subj, err := s.subjects.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subj})
}

func (s *server) handleUpdateSubject(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	subjectID := c.Param("id")
	if !s.requireSubjectOwner(c, subjectID, who.UserID) {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Code        *string `json:"code"`
		Schedule    *string `json:"schedule"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subj, err := s.subjects.Update(c.Request.Context(), subjectID, subject.Update{
		Name:        req.Name,
		Code:        req.Code,
		Schedule:    req.Schedule,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subj})
}

func (s *server) handleDeleteSubject(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	subjectID := c.Param("id")
	if !s.requireSubjectOwner(c, subjectID, who.UserID) {
		return
	}
	// Enrollments, sessions and records cascade at the database level.
	if err := s.subjects.Delete(c.Request.Context(), subjectID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
