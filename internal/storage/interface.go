package storage

import (
	"context"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
)

// Storage is the abstract interface for run-history persistence
type Storage interface {
	// SaveReport persists a run report and its per-target outcomes
	SaveReport(ctx context.Context, report *domain.Report) error

	// GetReport retrieves one report with its outcomes
	GetReport(ctx context.Context, id string) (*domain.Report, error)

	// ListReports retrieves the most recent reports, newest first,
	// without outcomes
	ListReports(ctx context.Context, limit int) ([]*domain.Report, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
