package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/healthdesk/client-registry/internal/database"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db          *sql.DB
	events      *EventService
	users       *UserService
	clients     *ClientService
	programs    *ProgramService
	enrollments *EnrollmentService
	dashboard   *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	events := NewEventService(db)
	enrollments := NewEnrollmentService(db, events)
	return &testEnv{
		db:          db,
		events:      events,
		users:       NewUserService(db, events),
		clients:     NewClientService(db, enrollments, events),
		programs:    NewProgramService(db, events),
		enrollments: enrollments,
		dashboard:   NewDashboardService(db),
	}
}

func (e *testEnv) countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
