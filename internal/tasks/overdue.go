package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/CoreX20/library-app/internal/entities"
)

// OverdueMarker flips due loans to overdue.
type OverdueMarker interface {
	MarkOverdueBorrows(now time.Time) (int64, error)
}

// OverdueAuditor records the sweep in the audit trail.
type OverdueAuditor interface {
	LogEvent(event *entities.AuditEvent) error
}

// MarkOverdueTask sweeps borrow records whose due date has passed.
type MarkOverdueTask struct{}

// Config returns the queue configuration for overdue sweeps.
func (t MarkOverdueTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "mark_overdue_borrows",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// MarkOverdueProcessor creates a processor function for MarkOverdueTask.
// The auditor is optional; sweeps that change nothing are not audited.
func MarkOverdueProcessor(marker OverdueMarker, auditor OverdueAuditor) backlite.QueueProcessor[MarkOverdueTask] {
	return func(ctx context.Context, task MarkOverdueTask) error {
		if marker == nil {
			return fmt.Errorf("overdue marker not configured")
		}

		changed, err := marker.MarkOverdueBorrows(time.Now())
		if err != nil {
			return fmt.Errorf("mark overdue borrows: %w", err)
		}
		if changed == 0 {
			return nil
		}

		log.Printf("[TASK] Marked %d borrow records overdue", changed)
		if auditor != nil {
			event := &entities.AuditEvent{
				EventType:   entities.AuditEventBorrow,
				Action:      "overdue_sweep",
				Description: fmt.Sprintf("Marked %d loans overdue", changed),
				EntityType:  "borrow_record",
				Status:      entities.AuditStatusSuccess,
			}
			if err := auditor.LogEvent(event); err != nil {
				log.Printf("[TASK ERROR] Failed to audit overdue sweep: %v", err)
			}
		}
		return nil
	}
}

// NewMarkOverdueQueue creates a backlite queue for overdue sweeps.
func NewMarkOverdueQueue(marker OverdueMarker, auditor OverdueAuditor) backlite.Queue {
	return backlite.NewQueue(MarkOverdueProcessor(marker, auditor))
}
