package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Montinou/student-attendance-app/internal/attendance"
	"github.com/Montinou/student-attendance-app/internal/auth"
	"github.com/Montinou/student-attendance-app/internal/config"
	"github.com/Montinou/student-attendance-app/internal/enrollment"
	"github.com/Montinou/student-attendance-app/internal/httpmiddleware"
	"github.com/Montinou/student-attendance-app/internal/profile"
	"github.com/Montinou/student-attendance-app/internal/queue"
	"github.com/Montinou/student-attendance-app/internal/session"
	"github.com/Montinou/student-attendance-app/internal/store"
	"github.com/Montinou/student-attendance-app/internal/subject"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:checkins")
	}

	profileRepo := profile.NewRepository(db.Client)
	subjectRepo := subject.NewRepository(db.Client)
	enrollmentRepo := enrollment.NewRepository(db.Client)
	sessionRepo := session.NewRepository(db.Client)
	recordRepo := attendance.NewRepository(db.Client)

	enrollmentSvc := enrollment.NewService(enrollmentRepo, profileRepo)

	srv := &server{
		cfg:         cfg,
		profiles:    profile.NewService(profileRepo),
		subjects:    subjectRepo,
		enrollments: enrollmentSvc,
		enrollRepo:  enrollmentRepo,
		sessions:    session.NewService(sessionRepo, cfg.SessionDuration),
		checkins:    attendance.NewService(sessionRepo, enrollmentSvc, recordRepo, profileRepo, subjectRepo),
		records:     recordRepo,
		queue:       q,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	srv.routes(r)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func (s *server) routes(r *gin.Engine) {
	r.POST("/v1/auth/register", s.handleRegister)
	r.POST("/v1/auth/login", s.handleLogin)

	authed := r.Group("/v1", auth.Require(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))
	authed.GET("/auth/me", s.handleMe)

	authed.GET("/subjects", s.handleListSubjects)
	authed.GET("/subjects/:id", s.handleGetSubject)

	teachers := authed.Group("", auth.RequireRole(auth.RoleTeacher))
	teachers.POST("/subjects", s.handleCreateSubject)
	teachers.PATCH("/subjects/:id", s.handleUpdateSubject)
	teachers.DELETE("/subjects/:id", s.handleDeleteSubject)
	teachers.POST("/subjects/:id/enrollments", s.handleEnrollByEmail)
	teachers.GET("/subjects/:id/enrollments", s.handleRoster)

	teachers.POST("/sessions", s.handleCreateSession)
	teachers.GET("/sessions", s.handleListSessions)
	teachers.GET("/sessions/:id", s.handleGetSession)
	teachers.POST("/sessions/:id/end", s.handleEndSession)
	teachers.GET("/sessions/:id/attendance", s.handleSessionAttendance)
	teachers.GET("/attendance/report", s.handleReport)

	students := authed.Group("", auth.RequireRole(auth.RoleStudent))
	students.POST("/enrollments", s.handleSelfEnroll)
	students.GET("/enrollments", s.handleMyEnrollments)
	students.POST("/attendance/validate", s.handleValidate)
	students.POST("/attendance", s.handleCheckIn)
	students.GET("/attendance", s.handleMyAttendance)

	authed.DELETE("/enrollments/:id", s.handleUnenroll)
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
