package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoreX20/library-app/internal/entities"
)

type fakeOverdueMarker struct {
	changed int64
	err     error
	calls   int
}

func (f *fakeOverdueMarker) MarkOverdueBorrows(now time.Time) (int64, error) {
	f.calls++
	return f.changed, f.err
}

type fakeOverdueAuditor struct {
	events []entities.AuditEvent
}

func (f *fakeOverdueAuditor) LogEvent(event *entities.AuditEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func TestMarkOverdueProcessor(t *testing.T) {
	marker := &fakeOverdueMarker{changed: 3}
	auditor := &fakeOverdueAuditor{}
	processor := MarkOverdueProcessor(marker, auditor)

	err := processor(context.Background(), MarkOverdueTask{})
	require.NoError(t, err)

	assert.Equal(t, 1, marker.calls)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, "overdue_sweep", auditor.events[0].Action)
	assert.Equal(t, entities.AuditEventBorrow, auditor.events[0].EventType)
}

func TestMarkOverdueProcessor_NothingDue(t *testing.T) {
	marker := &fakeOverdueMarker{changed: 0}
	auditor := &fakeOverdueAuditor{}
	processor := MarkOverdueProcessor(marker, auditor)

	err := processor(context.Background(), MarkOverdueTask{})
	require.NoError(t, err)

	assert.Empty(t, auditor.events)
}

func TestMarkOverdueProcessor_Error(t *testing.T) {
	marker := &fakeOverdueMarker{err: errors.New("database locked")}
	processor := MarkOverdueProcessor(marker, nil)

	err := processor(context.Background(), MarkOverdueTask{})
	assert.Error(t, err)
}

type fakeSessionReaper struct {
	gotTTL time.Duration
	reaped int
}

func (f *fakeSessionReaper) ReapIdle(ttl time.Duration) int {
	f.gotTTL = ttl
	return f.reaped
}

func TestReapReaderSessionsProcessor(t *testing.T) {
	reaper := &fakeSessionReaper{reaped: 2}
	processor := ReapReaderSessionsProcessor(reaper)

	err := processor(context.Background(), ReapReaderSessionsTask{TTLMinutes: 30})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, reaper.gotTTL)
}

func TestReapReaderSessionsProcessor_DefaultTTL(t *testing.T) {
	reaper := &fakeSessionReaper{}
	processor := ReapReaderSessionsProcessor(reaper)

	err := processor(context.Background(), ReapReaderSessionsTask{})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, reaper.gotTTL)
}
