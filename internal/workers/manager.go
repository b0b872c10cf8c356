package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/causify-ai/ascope/internal/repositories"
	"github.com/causify-ai/ascope/internal/services"
	"github.com/causify-ai/ascope/pkg/config"
	"github.com/causify-ai/ascope/pkg/logger"
)

// WorkerManager manages the report worker pool
type WorkerManager struct {
	workers       []Worker
	jobRepo       *repositories.JobRepository
	reportService *services.ReportService
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(jobRepo *repositories.JobRepository, reportService *services.ReportService) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		workers:       make([]Worker, 0),
		jobRepo:       jobRepo,
		reportService: reportService,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// StartAll starts the configured number of report workers
func (wm *WorkerManager) StartAll() error {
	reportWorkers := config.AppConfig.Workers.ReportWorkers
	logger.Infof("Starting %d report workers", reportWorkers)

	for i := 0; i < reportWorkers; i++ {
		worker := NewReportWorker(fmt.Sprintf("report-%d", i+1), wm.jobRepo, wm.reportService)
		wm.workers = append(wm.workers, worker)
		wm.startWorker(worker)
	}

	logger.Infof("Started %d total workers", len(wm.workers))
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	logger.Info("Stopping all workers...")

	wm.cancel()
	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("Error stopping worker %s", worker.GetWorkerID())
		}
	}
	wm.wg.Wait()

	logger.Info("All workers stopped")
	return nil
}

// GetWorkerStatus returns the running state of all workers
func (wm *WorkerManager) GetWorkerStatus() map[string]bool {
	status := make(map[string]bool)
	for _, worker := range wm.workers {
		if reportWorker, ok := worker.(*ReportWorker); ok {
			status[worker.GetWorkerID()] = reportWorker.IsRunning()
		} else {
			status[worker.GetWorkerID()] = false
		}
	}
	return status
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("Worker %s stopped with error", worker.GetWorkerID())
		}
	}()
}
