package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
	"github.com/kurihiro0119/github-profile-miner/internal/storage"
)

// Handler handles API requests
type Handler struct {
	store storage.Storage
}

// NewHandler creates a new API handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{store: store}
}

// runResponse is the JSON shape of one run
type runResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Mode         string            `json:"mode"`
	OutputPrefix string            `json:"output_prefix"`
	Total        int               `json:"total"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
	Skipped      int               `json:"skipped"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Targets      []outcomeResponse `json:"targets,omitempty"`
}

type outcomeResponse struct {
	Login      string `json:"login"`
	Origin     string `json:"origin,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func toRunResponse(report *domain.Report, withTargets bool) runResponse {
	resp := runResponse{
		ID:           report.ID,
		Status:       string(report.Status),
		Mode:         report.Mode,
		OutputPrefix: report.OutputPrefix,
		Total:        report.Total,
		Succeeded:    report.Succeeded,
		Failed:       report.Failed,
		Skipped:      report.Skipped,
		Error:        report.Err,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}
	if withTargets {
		for _, outcome := range report.Outcomes {
			resp.Targets = append(resp.Targets, outcomeResponse{
				Login:      outcome.Login,
				Origin:     outcome.Origin,
				Status:     string(outcome.Status),
				Error:      outcome.Error,
				DurationMS: outcome.Duration.Milliseconds(),
			})
		}
	}
	return resp
}

// ListRuns returns the most recent collection runs
// GET /api/v1/runs
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	reports, err := h.store.ListReports(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	runs := make([]runResponse, 0, len(reports))
	for _, report := range reports {
		runs = append(runs, toRunResponse(report, false))
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

// GetRun returns one collection run with its per-target outcomes
// GET /api/v1/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	report, err := h.store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toRunResponse(report, true)})
}

// HealthCheck returns the API health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps application errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsConfiguration(err):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
