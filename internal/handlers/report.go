package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/presenter"
	"github.com/causify-ai/ascope/internal/services"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *services.ReportService
	jobService    *services.JobService
}

func NewReportHandler(reportService *services.ReportService, jobService *services.JobService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		jobService:    jobService,
	}
}

// CreateReportRequest is the JSON body for report creation
type CreateReportRequest struct {
	Source           string   `json:"source" binding:"required"`
	Scope            []string `json:"scope" binding:"required"`
	Kind             string   `json:"kind" binding:"required"`
	WindowStart      string   `json:"window_start" binding:"required"`
	WindowEnd        string   `json:"window_end" binding:"required"`
	WindowField      string   `json:"window_field"`
	GroupBy          string   `json:"group_by"`
	Format           string   `json:"format"`
	Actors           []string `json:"actors"`
	IncludeRelations bool     `json:"include_relations"`
}

// CreateReport stores a report request and queues a job for it
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := models.ParseTimeWindow(req.WindowStart, req.WindowEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := models.NewReport(
		models.ReportSource(req.Source),
		req.Scope,
		models.EntityKind(req.Kind),
		window,
		models.GroupBy(defaultString(req.GroupBy, string(models.GroupByActor))),
		models.ReportFormat(defaultString(req.Format, string(models.ReportFormatMarkdown))),
	)
	if req.WindowField != "" {
		report.WindowField = models.WindowField(req.WindowField)
		if !report.WindowField.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown window field " + req.WindowField})
			return
		}
	}
	report.SetActors(req.Actors)
	report.IncludeRelations = req.IncludeRelations

	if err := h.reportService.CreateReport(report); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create report"})
		return
	}

	job, err := h.jobService.CreateReportJob(report.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to queue report job: %s", err)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"report_id": report.ID,
		"job_id":    job.ID,
	})
}

// GetReport returns a report together with its latest job status
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	jobs, err := h.jobService.GetJobsByReport(report.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report jobs"})
		return
	}

	response := gin.H{"report": report}
	if len(jobs) > 0 {
		response["job"] = jobs[0]
	}
	c.JSON(http.StatusOK, response)
}

// ListReports returns the most recent reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	limit := 50
	if value := c.Query("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	reports, err := h.reportService.ListReports(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// DownloadReport streams a completed report's summary as an xlsx workbook
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}
	if report.SummaryJSON == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "report has not completed yet"})
		return
	}

	summary, err := report.ResultSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode report summary"})
		return
	}

	file, err := presenter.WriteExcel(summary)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.xlsx", report.ID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

// DeleteReport removes a report and its jobs
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	if err := h.reportService.DeleteReport(report.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete report"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReportHandler) loadReport(c *gin.Context) (*models.Report, bool) {
	report, err := h.reportService.GetReportByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return nil, false
	}
	return report, true
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
