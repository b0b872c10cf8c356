package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/repositories"
	"github.com/causify-ai/ascope/internal/services"
	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	router        *gin.Engine
	reportService *services.ReportService
	reportRepo    *repositories.ReportRepository
	jobRepo       *repositories.JobRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/001_create_tables.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	reportRepo := repositories.NewReportRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	reportService := services.NewReportService(reportRepo, services.NewAggregationService())
	jobService := services.NewJobService(jobRepo)

	handler := NewReportHandler(reportService, jobService)
	router := gin.New()
	router.POST("/reports", handler.CreateReport)
	router.GET("/reports", handler.ListReports)
	router.GET("/reports/:id", handler.GetReport)
	router.GET("/reports/:id/download", handler.DownloadReport)
	router.POST("/reports/:id/delete", handler.DeleteReport)

	return &handlerFixture{router: router, reportService: reportService, reportRepo: reportRepo, jobRepo: jobRepo}
}

func (f *handlerFixture) postJSON(t *testing.T, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"source":       "github",
		"scope":        []string{"acme/widgets"},
		"kind":         "pull_request",
		"window_start": "2024-01-01T00:00:00Z",
		"window_end":   "2024-02-01T00:00:00Z",
	}
}

func TestCreateReportEndpoint(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.postJSON(t, "/reports", validCreateBody())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ReportID string `json:"report_id"`
		JobID    string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ReportID)
	assert.NotEmpty(t, resp.JobID)

	report, err := fixture.reportService.GetReportByID(resp.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportSourceGitHub, report.Source)
	assert.Equal(t, models.GroupByActor, report.GroupBy)
	assert.Equal(t, models.ReportFormatMarkdown, report.Format)
	assert.Equal(t, models.WindowFieldCreated, report.WindowField)

	job, err := fixture.jobRepo.GetByID(resp.JobID)
	require.NoError(t, err)
	assert.True(t, job.IsPending())
}

func TestCreateReportEndpointRejectsBadInput(t *testing.T) {
	fixture := newHandlerFixture(t)

	testCases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing source", func(b map[string]interface{}) { delete(b, "source") }},
		{"unknown source", func(b map[string]interface{}) { b["source"] = "jira" }},
		{"unknown kind", func(b map[string]interface{}) { b["kind"] = "epic" }},
		{"bad window start", func(b map[string]interface{}) { b["window_start"] = "yesterday" }},
		{"inverted window", func(b map[string]interface{}) {
			b["window_start"] = "2024-03-01T00:00:00Z"
		}},
		{"unknown window field", func(b map[string]interface{}) { b["window_field"] = "touched" }},
		{"unknown group_by", func(b map[string]interface{}) { b["group_by"] = "by_team" }},
		{"unknown format", func(b map[string]interface{}) { b["format"] = "pdf" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body := validCreateBody()
			tc.mutate(body)
			rec := fixture.postJSON(t, "/reports", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetReportEndpoint(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.postJSON(t, "/reports", validCreateBody())
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created struct {
		ReportID string `json:"report_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = fixture.get(t, "/reports/"+created.ReportID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Report models.Report `json:"report"`
		Job    *models.Job   `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.ReportID, resp.Report.ID)
	require.NotNil(t, resp.Job)
	assert.Equal(t, models.JobStatusPending, resp.Job.Status)

	rec = fixture.get(t, "/reports/no-such-report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReportsEndpoint(t *testing.T) {
	fixture := newHandlerFixture(t)

	for i := 0; i < 3; i++ {
		rec := fixture.postJSON(t, "/reports", validCreateBody())
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := fixture.get(t, "/reports?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reports []models.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Reports, 2)

	rec = fixture.get(t, "/reports?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadReportEndpoint(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.postJSON(t, "/reports", validCreateBody())
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created struct {
		ReportID string `json:"report_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// The report has not run yet, so there is nothing to download.
	rec = fixture.get(t, "/reports/"+created.ReportID+"/download")
	assert.Equal(t, http.StatusConflict, rec.Code)

	report, err := fixture.reportService.GetReportByID(created.ReportID)
	require.NoError(t, err)
	summary := models.Summary{"alice": {Entities: 2, Relations: 1}}
	require.NoError(t, report.SetResult(summary, "| alice | 2 | 1 |", nil, 2, 1))
	require.NoError(t, fixture.reportRepo.Update(report))

	rec = fixture.get(t, "/reports/"+created.ReportID+"/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.ID)
	assert.NotZero(t, rec.Body.Len())
}

func TestDeleteReportEndpoint(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.postJSON(t, "/reports", validCreateBody())
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created struct {
		ReportID string `json:"report_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodPost, "/reports/"+created.ReportID+"/delete", nil)
	del := httptest.NewRecorder()
	fixture.router.ServeHTTP(del, req)
	assert.Equal(t, http.StatusNoContent, del.Code)

	rec = fixture.get(t, "/reports/"+created.ReportID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler().HealthCheck)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
