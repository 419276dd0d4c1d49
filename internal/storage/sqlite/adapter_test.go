package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
	"github.com/kurihiro0119/github-profile-miner/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(id string, started time.Time) *domain.Report {
	return &domain.Report{
		ID:           id,
		Status:       domain.RunStopped,
		Mode:         "repo",
		OutputPrefix: "crawl_20240101_120000",
		Total:        3,
		Succeeded:    1,
		Failed:       1,
		Skipped:      1,
		StartedAt:    started,
		FinishedAt:   started.Add(90 * time.Second),
		Outcomes: []domain.TargetOutcome{
			{Login: "alice", Origin: "golang/go", Status: domain.OutcomeSucceeded, Duration: 4 * time.Second},
			{Login: "bob", Origin: "golang/go", Status: domain.OutcomeFailed, Error: "NOT_FOUND: user bob not found"},
			{Login: "carol", Origin: "golang/go", Status: domain.OutcomeSkipped},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("run-1", time.Now().Truncate(time.Second))
	require.NoError(t, store.SaveReport(ctx, report))

	got, err := store.GetReport(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, domain.RunStopped, got.Status)
	assert.Equal(t, "repo", got.Mode)
	assert.Equal(t, report.Total, got.Total)
	assert.Equal(t, report.Succeeded, got.Succeeded)
	assert.Equal(t, report.Failed, got.Failed)
	assert.Equal(t, report.Skipped, got.Skipped)

	require.Len(t, got.Outcomes, 3)
	byLogin := make(map[string]domain.TargetOutcome)
	for _, o := range got.Outcomes {
		byLogin[o.Login] = o
	}
	assert.Equal(t, domain.OutcomeSucceeded, byLogin["alice"].Status)
	assert.Equal(t, 4*time.Second, byLogin["alice"].Duration)
	assert.Equal(t, "golang/go", byLogin["alice"].Origin)
	assert.Contains(t, byLogin["bob"].Error, "NOT_FOUND")
	assert.Equal(t, domain.OutcomeSkipped, byLogin["carol"].Status)
}

func TestSaveReportOverwrites(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("run-1", time.Now().Truncate(time.Second))
	require.NoError(t, store.SaveReport(ctx, report))

	report.Status = domain.RunCompleted
	report.Succeeded = 3
	report.Failed = 0
	report.Skipped = 0
	require.NoError(t, store.SaveReport(ctx, report))

	got, err := store.GetReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 3, got.Succeeded)
}

func TestGetReportNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetReport(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListReportsNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)

	require.NoError(t, store.SaveReport(ctx, sampleReport("run-old", base.Add(-time.Hour))))
	require.NoError(t, store.SaveReport(ctx, sampleReport("run-new", base)))

	reports, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "run-new", reports[0].ID)
	assert.Equal(t, "run-old", reports[1].ID)

	limited, err := store.ListReports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
