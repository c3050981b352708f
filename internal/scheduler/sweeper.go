package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CoreX20/library-app/internal/tasks"
)

// Sweeper periodically enqueues the background maintenance tasks: the
// overdue-loan sweep, idle reader-session reaping and audit cleanup.
// The work itself runs on the task queue; the sweeper only schedules.
type Sweeper struct {
	taskClient *tasks.Client
	schedule   string
	sessionTTL time.Duration

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a sweeper firing on the given cron schedule
// (standard 5-field format).
func NewSweeper(taskClient *tasks.Client, schedule string, sessionTTL time.Duration) *Sweeper {
	return &Sweeper{
		taskClient: taskClient,
		schedule:   schedule,
		sessionTTL: sessionTTL,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the schedule. Safe to call once; later calls are no-ops.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueSweeps); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Sweep scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running enqueue to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Println("Sweep scheduler stopped")
}

func (s *Sweeper) enqueueSweeps() {
	if _, err := s.taskClient.Add(tasks.MarkOverdueTask{}).Save(); err != nil {
		log.Printf("Failed to enqueue overdue sweep: %v", err)
	}

	ttlMinutes := int(s.sessionTTL.Minutes())
	if _, err := s.taskClient.Add(tasks.ReapReaderSessionsTask{TTLMinutes: ttlMinutes}).Save(); err != nil {
		log.Printf("Failed to enqueue session reaping: %v", err)
	}

	if _, err := s.taskClient.Add(tasks.CleanupAuditEventsTask{}).Save(); err != nil {
		log.Printf("Failed to enqueue audit cleanup: %v", err)
	}
}
