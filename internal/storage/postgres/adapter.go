package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
	"github.com/kurihiro0119/github-profile-miner/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(url string) (storage.Storage, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		output_prefix TEXT NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

	CREATE TABLE IF NOT EXISTS run_targets (
		run_id TEXT NOT NULL REFERENCES runs(id),
		login TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, login)
	);

	CREATE INDEX IF NOT EXISTS idx_run_targets_run ON run_targets(run_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveReport persists a run report and its per-target outcomes
func (s *postgresStorage) SaveReport(ctx context.Context, report *domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("begin report transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, status, mode, output_prefix, total, succeeded, failed, skipped, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`,
		report.ID, string(report.Status), report.Mode, report.OutputPrefix,
		report.Total, report.Succeeded, report.Failed, report.Skipped,
		report.Err, report.StartedAt, report.FinishedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("save run", err)
	}

	for _, outcome := range report.Outcomes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_targets
			(run_id, login, origin, status, error, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (run_id, login) DO UPDATE SET
				status = EXCLUDED.status,
				error = EXCLUDED.error,
				duration_ms = EXCLUDED.duration_ms`,
			report.ID, outcome.Login, outcome.Origin,
			string(outcome.Status), outcome.Error,
			outcome.Duration.Milliseconds(),
		)
		if err != nil {
			return apperrors.NewPersistenceError("save run target", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("commit report", err)
	}
	return nil
}

// GetReport retrieves one report with its outcomes
func (s *postgresStorage) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	report := &domain.Report{}
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, mode, output_prefix, total, succeeded, failed, skipped, error, started_at, finished_at
		FROM runs WHERE id = $1`, id,
	).Scan(&report.ID, &status, &report.Mode, &report.OutputPrefix,
		&report.Total, &report.Succeeded, &report.Failed, &report.Skipped,
		&report.Err, &report.StartedAt, &report.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("run " + id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get run", err)
	}
	report.Status = domain.RunStatus(status)

	rows, err := s.db.QueryContext(ctx, `
		SELECT login, origin, status, error, duration_ms
		FROM run_targets WHERE run_id = $1 ORDER BY login`, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get run targets", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome domain.TargetOutcome
		var outcomeStatus string
		var durationMs int64
		if err := rows.Scan(&outcome.Login, &outcome.Origin, &outcomeStatus, &outcome.Error, &durationMs); err != nil {
			return nil, apperrors.NewPersistenceError("scan run target", err)
		}
		outcome.Status = domain.OutcomeStatus(outcomeStatus)
		outcome.Duration = time.Duration(durationMs) * time.Millisecond
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, rows.Err()
}

// ListReports retrieves the most recent reports, newest first
func (s *postgresStorage) ListReports(ctx context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, mode, output_prefix, total, succeeded, failed, skipped, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list runs", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		report := &domain.Report{}
		var status string
		if err := rows.Scan(&report.ID, &status, &report.Mode, &report.OutputPrefix,
			&report.Total, &report.Succeeded, &report.Failed, &report.Skipped,
			&report.Err, &report.StartedAt, &report.FinishedAt); err != nil {
			return nil, apperrors.NewPersistenceError("scan run", err)
		}
		report.Status = domain.RunStatus(status)
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
