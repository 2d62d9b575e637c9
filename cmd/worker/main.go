package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Montinou/student-attendance-app/internal/attendance"
	"github.com/Montinou/student-attendance-app/internal/config"
	"github.com/Montinou/student-attendance-app/internal/metrics"
	"github.com/Montinou/student-attendance-app/internal/queue"
	"github.com/Montinou/student-attendance-app/internal/session"
	"github.com/Montinou/student-attendance-app/internal/store"
)

// Worker consumes check-in messages for the audit trail and periodically
// closes sessions whose expiry has passed.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:checkins")
	}

	records := attendance.NewRepository(db.Client)
	sessions := session.NewRepository(db.Client)

	go sweepExpiredSessions(ctx, sessions, cfg.SweepInterval)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeCheckIn {
			continue
		}

		rec, err := records.GetByID(ctx, msg.Body)
		if err != nil {
			log.Printf("fetch record %s failed: %v", msg.Body, err)
			continue
		}
		log.Printf("audit: student %s checked into session %s (subject %s) at %s",
			rec.StudentID, rec.SessionID, rec.SubjectID, rec.CheckedInAt.Format(time.RFC3339))
	}

	log.Println("worker stopped")
}

// sweepExpiredSessions marks overdue active sessions closed so listings and
// status checks agree with the wall clock. The check-in gate rejects on
// expiry regardless, so the sweep is cleanup, not enforcement.
func sweepExpiredSessions(ctx context.Context, sessions *session.Repository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := sessions.CloseExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("session sweep error: %v", err)
				continue
			}
			if closed > 0 {
				metrics.SessionsSwept.Add(float64(closed))
				log.Printf("session sweep closed %d sessions", closed)
			}
		}
	}
}
