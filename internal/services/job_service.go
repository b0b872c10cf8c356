package services

import (
	"fmt"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/repositories"
)

// JobService handles job creation and management
type JobService struct {
	jobRepo *repositories.JobRepository
}

// NewJobService creates a new job service
func NewJobService(jobRepo *repositories.JobRepository) *JobService {
	return &JobService{jobRepo: jobRepo}
}

// CreateReportJob creates a new report job for a report request
func (s *JobService) CreateReportJob(reportID string) (*models.Job, error) {
	hasActive, err := s.HasActiveJob(reportID, models.JobTypeReport)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing jobs: %w", err)
	}
	if hasActive {
		return nil, fmt.Errorf("a report job is already in progress or pending for this report")
	}

	job := models.NewJob(reportID, models.JobTypeReport)
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}
	return job, nil
}

// HasActiveJob checks if there's already a pending or in-progress job of the
// specified type for a report
func (s *JobService) HasActiveJob(reportID string, jobType models.JobType) (bool, error) {
	existingJobs, err := s.jobRepo.GetByReportID(reportID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing jobs: %w", err)
	}

	for _, existingJob := range existingJobs {
		if existingJob.JobType == jobType &&
			(existingJob.Status == models.JobStatusPending || existingJob.Status == models.JobStatusInProgress) {
			return true, nil
		}
	}
	return false, nil
}

// GetJobByID retrieves a job by ID
func (s *JobService) GetJobByID(jobID string) (*models.Job, error) {
	return s.jobRepo.GetByID(jobID)
}

// GetJobsByReport retrieves all jobs for a report
func (s *JobService) GetJobsByReport(reportID string) ([]*models.Job, error) {
	return s.jobRepo.GetByReportID(reportID)
}
