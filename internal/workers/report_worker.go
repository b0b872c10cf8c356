package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/causify-ai/ascope/internal/clients"
	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/repositories"
	"github.com/causify-ai/ascope/internal/services"
	"github.com/causify-ai/ascope/pkg/config"
	"github.com/causify-ai/ascope/pkg/logger"
)

// ReportWorker claims report jobs and runs the aggregation pipeline for them
type ReportWorker struct {
	*BaseWorker
	jobRepo       *repositories.JobRepository
	reportService *services.ReportService
}

// NewReportWorker creates a new report worker
func NewReportWorker(workerID string, jobRepo *repositories.JobRepository, reportService *services.ReportService) *ReportWorker {
	return &ReportWorker{
		BaseWorker:    NewBaseWorker(workerID, models.JobTypeReport),
		jobRepo:       jobRepo,
		reportService: reportService,
	}
}

// Start begins the report worker process
func (w *ReportWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("Report worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Report worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("Report worker %s stopping", w.WorkerID)
			return nil
		default:
			job, err := w.jobRepo.GetNextPendingJob(models.JobTypeReport, w.WorkerID)
			if err != nil {
				logger.WithError(err).Errorf("Report worker %s error getting job", w.WorkerID)
				time.Sleep(5 * time.Second)
				continue
			}

			if job == nil {
				// No jobs available, sleep and try again
				time.Sleep(10 * time.Second)
				continue
			}

			w.processReportJob(ctx, job)
		}
	}
}

// processReportJob runs the pipeline for one claimed job and records the outcome
func (w *ReportWorker) processReportJob(ctx context.Context, job *models.Job) {
	logger.Infof("Report worker %s processing job %s", w.WorkerID, job.ID)

	if err := w.runPipeline(ctx, job); err != nil {
		logger.WithError(err).Errorf("Report worker %s failed job %s", w.WorkerID, job.ID)
		job.SetError(err.Error())
		job.MarkFailed()
		if err := w.jobRepo.Update(job); err != nil {
			logger.WithError(err).Errorf("Report worker %s error marking job %s as failed", w.WorkerID, job.ID)
		}
		return
	}

	job.MarkCompleted()
	if err := w.jobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("Report worker %s error completing job %s", w.WorkerID, job.ID)
		return
	}

	logger.Infof("Report worker %s completed job %s", w.WorkerID, job.ID)
}

func (w *ReportWorker) runPipeline(ctx context.Context, job *models.Job) error {
	report, err := w.reportService.GetReportByID(job.ReportID)
	if err != nil {
		return fmt.Errorf("failed to get report %s: %w", job.ReportID, err)
	}

	fetcher, closeFetcher, err := w.fetcherForReport(report)
	if err != nil {
		return err
	}
	defer closeFetcher()

	return w.reportService.Run(ctx, report, fetcher)
}

// fetcherForReport builds an authenticated fetcher for the report's source.
// The returned close func releases the client's network session.
func (w *ReportWorker) fetcherForReport(report *models.Report) (services.EntityFetcher, func(), error) {
	switch report.Source {
	case models.ReportSourceGitHub:
		client, err := clients.NewGitHubClient(config.AppConfig.GitHub.Token, config.AppConfig.GitHub.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return services.NewGitHubService(client), client.Close, nil
	case models.ReportSourceAsana:
		client, err := clients.NewAsanaClient(config.AppConfig.Asana.Token, config.AppConfig.Asana.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return services.NewAsanaService(client), client.Close, nil
	default:
		return nil, nil, &models.ValidationError{Stage: models.StageWindowFetch, Reason: "unknown source " + string(report.Source)}
	}
}
