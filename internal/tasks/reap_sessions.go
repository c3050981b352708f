package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// SessionReaper closes reader sessions that have been idle too long.
type SessionReaper interface {
	ReapIdle(ttl time.Duration) int
}

// ReapReaderSessionsTask closes reader sessions with no position events
// for longer than the TTL. Closing cancels any pending flush timer, so
// abandoned sessions stop holding resources.
type ReapReaderSessionsTask struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// Config returns the queue configuration for session reaping.
func (t ReapReaderSessionsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reap_reader_sessions",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReapReaderSessionsProcessor creates a processor function for ReapReaderSessionsTask.
func ReapReaderSessionsProcessor(reaper SessionReaper) backlite.QueueProcessor[ReapReaderSessionsTask] {
	return func(ctx context.Context, task ReapReaderSessionsTask) error {
		if reaper == nil {
			return fmt.Errorf("session reaper not configured")
		}

		ttlMinutes := task.TTLMinutes
		if ttlMinutes <= 0 {
			ttlMinutes = 60
		}

		reaped := reaper.ReapIdle(time.Duration(ttlMinutes) * time.Minute)
		if reaped > 0 {
			log.Printf("[TASK] Reaped %d idle reader sessions", reaped)
		}
		return nil
	}
}

// NewReapReaderSessionsQueue creates a backlite queue for session reaping.
func NewReapReaderSessionsQueue(reaper SessionReaper) backlite.Queue {
	return backlite.NewQueue(ReapReaderSessionsProcessor(reaper))
}
