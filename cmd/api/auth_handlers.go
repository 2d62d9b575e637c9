package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Montinou/student-attendance-app/internal/auth"
	"github.com/Montinou/student-attendance-app/internal/profile"
)

func (s *server) handleRegister(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		FullName string `json:"full_name" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.profiles.Register(c.Request.Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeTokenResponse(c, http.StatusCreated, p)
}

func (s *server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.profiles.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeTokenResponse(c, http.StatusOK, p)
}

func (s *server) handleMe(c *gin.Context) {
	who, ok := s.identity(c)
	if !ok {
		return
	}
	p, err := s.profiles.GetByID(c.Request.Context(), who.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (s *server) writeTokenResponse(c *gin.Context, status int, p profile.Profile) {
	token, err := auth.Issue(p.ID, p.Role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"access_token": token.Value,
		"expires_at":   token.ExpiresAt.Unix(),
		"profile":      p,
	})
}
