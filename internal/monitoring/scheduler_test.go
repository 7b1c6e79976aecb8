package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/healthdesk/client-registry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvents struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (s *stubEvents) CreateEvent(ctx context.Context, eventType, level, message string) error {
	return nil
}

func (s *stubEvents) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return nil, nil
}

func (s *stubEvents) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, before)
	return 3, s.err
}

func (s *stubEvents) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func TestNewSchedulerRejectsBadSettings(t *testing.T) {
	_, err := NewScheduler(&stubEvents{}, time.Hour, "not a schedule")
	assert.Error(t, err)

	_, err = NewScheduler(&stubEvents{}, 0, "@daily")
	assert.Error(t, err)
}

func TestPruneOnceUsesRetentionWindow(t *testing.T) {
	events := &stubEvents{}
	s, err := NewScheduler(events, 48*time.Hour, "@daily")
	require.NoError(t, err)
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.PruneOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, events.cutoffs, 1)
	assert.Equal(t, fixed.Add(-48*time.Hour), events.cutoffs[0])

	events.err = errors.New("database is locked")
	_, err = s.PruneOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestRunPrunesImmediatelyAndStops(t *testing.T) {
	events := &stubEvents{}
	s, err := NewScheduler(events, time.Hour, "@hourly")
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		s.Run()
		close(finished)
	}()

	require.Eventually(t, func() bool { return events.calls() == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()
	assert.NotPanics(t, s.Stop)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
