package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/models"
)

// DashboardServiceProvider defines the interface for dashboard data.
type DashboardServiceProvider interface {
	GetDashboardStatistics(ctx context.Context) (models.DashboardStats, error)
}

// DashboardService aggregates record counts for the dashboard.
type DashboardService struct {
	db *sql.DB
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

// GetDashboardStatistics counts clients, programs and enrollments.
func (s *DashboardService) GetDashboardStatistics(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := database.Querier(ctx, s.db).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM programs),
			(SELECT COUNT(*) FROM enrollments)`).
		Scan(&stats.Clients, &stats.Programs, &stats.Enrollments)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard statistics: %w", err)
	}
	return stats, nil
}
