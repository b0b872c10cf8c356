package repositories

import (
	"database/sql"

	"github.com/causify-ai/ascope/internal/models"
)

// ReportRepository handles database operations for reports
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create creates a new report
func (r *ReportRepository) Create(report *models.Report) error {
	query := `
		INSERT INTO reports (
			id, source, scope, actors, kind, window_field, window_start, window_end,
			group_by, format, include_relations, output, summary_json, missing_ids,
			entity_count, relation_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		report.ID, report.Source, report.Scope, report.Actors, report.Kind,
		report.WindowField, report.WindowStart, report.WindowEnd, report.GroupBy,
		report.Format, report.IncludeRelations, report.Output, report.SummaryJSON,
		report.MissingIDs, report.EntityCount, report.RelationCount,
		report.CreatedAt, report.UpdatedAt,
	)
	return err
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(id string) (*models.Report, error) {
	query := `
		SELECT id, source, scope, actors, kind, window_field, window_start, window_end,
			   group_by, format, include_relations, output, summary_json, missing_ids,
			   entity_count, relation_count, created_at, updated_at
		FROM reports WHERE id = ?
	`

	report := &models.Report{}
	err := r.db.QueryRow(query, id).Scan(
		&report.ID, &report.Source, &report.Scope, &report.Actors, &report.Kind,
		&report.WindowField, &report.WindowStart, &report.WindowEnd, &report.GroupBy,
		&report.Format, &report.IncludeRelations, &report.Output, &report.SummaryJSON,
		&report.MissingIDs, &report.EntityCount, &report.RelationCount,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// List retrieves the most recent reports
func (r *ReportRepository) List(limit int) ([]*models.Report, error) {
	query := `
		SELECT id, source, scope, actors, kind, window_field, window_start, window_end,
			   group_by, format, include_relations, output, summary_json, missing_ids,
			   entity_count, relation_count, created_at, updated_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report := &models.Report{}
		err := rows.Scan(
			&report.ID, &report.Source, &report.Scope, &report.Actors, &report.Kind,
			&report.WindowField, &report.WindowStart, &report.WindowEnd, &report.GroupBy,
			&report.Format, &report.IncludeRelations, &report.Output, &report.SummaryJSON,
			&report.MissingIDs, &report.EntityCount, &report.RelationCount,
			&report.CreatedAt, &report.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Update updates a completed report with its result fields
func (r *ReportRepository) Update(report *models.Report) error {
	query := `
		UPDATE reports
		SET output = ?, summary_json = ?, missing_ids = ?, entity_count = ?, relation_count = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		report.Output, report.SummaryJSON, report.MissingIDs,
		report.EntityCount, report.RelationCount, report.UpdatedAt,
		report.ID,
	)
	return err
}

// Delete deletes a report and its jobs
func (r *ReportRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM jobs WHERE report_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM reports WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
