package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/causify-ai/ascope/internal/models"
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job
func (r *JobRepository) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO jobs (id, report_id, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.ReportID,
		job.JobType,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.WorkerID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, report_id, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at
		FROM jobs WHERE id = ?
	`

	job := &models.Job{}
	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&job.ReportID,
		&job.JobType,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.WorkerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByReportID retrieves all jobs for a report, newest first
func (r *JobRepository) GetByReportID(reportID string) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, report_id, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at
		FROM jobs WHERE report_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job := &models.Job{}
		err := rows.Scan(
			&job.ID,
			&job.ReportID,
			&job.JobType,
			&job.Status,
			&job.ErrorMessage,
			&job.StartedAt,
			&job.CompletedAt,
			&job.WorkerID,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetNextPendingJob atomically claims the oldest pending job of the given
// type and marks it in-progress for the worker
func (r *JobRepository) GetNextPendingJob(jobType models.JobType, workerID string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT id, report_id, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at
		FROM jobs
		WHERE status = ? AND job_type = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	job := &models.Job{}
	err = tx.QueryRow(query, models.JobStatusPending, jobType).Scan(
		&job.ID,
		&job.ReportID,
		&job.JobType,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.WorkerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No pending jobs found
		}
		return nil, err
	}

	job.MarkStarted()
	job.WorkerID = &workerID

	updateQuery := `
		UPDATE jobs
		SET status = ?, started_at = ?, worker_id = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err = tx.Exec(updateQuery, job.Status, job.StartedAt, job.WorkerID, time.Now(), job.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

// Update updates a job
func (r *JobRepository) Update(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE jobs
		SET status = ?, error_message = ?, started_at = ?, completed_at = ?, worker_id = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.WorkerID,
		time.Now(),
		job.ID,
	)
	return err
}

// Delete deletes a job
func (r *JobRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec("DELETE FROM jobs WHERE id = ?", id)
	return err
}
