package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

// fakeStorage serves canned reports in tests
type fakeStorage struct {
	reports map[string]*domain.Report
}

func (f *fakeStorage) SaveReport(ctx context.Context, report *domain.Report) error {
	f.reports[report.ID] = report
	return nil
}

func (f *fakeStorage) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("run " + id)
	}
	return report, nil
}

func (f *fakeStorage) ListReports(ctx context.Context, limit int) ([]*domain.Report, error) {
	out := make([]*domain.Report, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStorage) Migrate(ctx context.Context) error { return nil }
func (f *fakeStorage) Close() error                      { return nil }

func testRouter(t *testing.T) (*gin.Engine, *fakeStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := &fakeStorage{reports: make(map[string]*domain.Report)}
	return SetupRouter(store), store
}

func sampleReport(id string) *domain.Report {
	now := time.Now()
	return &domain.Report{
		ID:           id,
		Status:       domain.RunCompleted,
		Mode:         "users",
		OutputPrefix: "run_20240101_120000",
		Total:        2,
		Succeeded:    1,
		Failed:       1,
		StartedAt:    now.Add(-time.Minute),
		FinishedAt:   now,
		Outcomes: []domain.TargetOutcome{
			{Login: "alice", Status: domain.OutcomeSucceeded, Duration: 2 * time.Second},
			{Login: "bob", Status: domain.OutcomeFailed, Error: "NOT_FOUND: user bob not found"},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListRuns(t *testing.T) {
	router, store := testRouter(t)
	store.reports["run-1"] = sampleReport("run-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []runResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, "run-1", response.Data[0].ID)
	assert.Equal(t, "completed", response.Data[0].Status)
	// List view omits per-target outcomes
	assert.Empty(t, response.Data[0].Targets)
}

func TestGetRun(t *testing.T) {
	router, store := testRouter(t)
	store.reports["run-1"] = sampleReport("run-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data runResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "run-1", response.Data.ID)
	require.Len(t, response.Data.Targets, 2)
	assert.Equal(t, "alice", response.Data.Targets[0].Login)
	assert.Equal(t, int64(2000), response.Data.Targets[0].DurationMS)
}

func TestGetRunNotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
