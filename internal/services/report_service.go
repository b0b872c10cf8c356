package services

import (
	"context"
	"fmt"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/presenter"
	"github.com/causify-ai/ascope/internal/repositories"
	"github.com/causify-ai/ascope/pkg/logger"
)

// ReportService runs the fetch, relation, aggregate, render pipeline for a
// single report request and records the result. Entities and relations exist
// only for the duration of one Run call; only the report row is persisted.
type ReportService struct {
	reportRepo         *repositories.ReportRepository
	aggregationService *AggregationService
}

// NewReportService creates a new report service
func NewReportService(reportRepo *repositories.ReportRepository, aggregationService *AggregationService) *ReportService {
	return &ReportService{
		reportRepo:         reportRepo,
		aggregationService: aggregationService,
	}
}

// CreateReport validates and stores a new report request
func (s *ReportService) CreateReport(report *models.Report) error {
	if !report.Source.IsValid() {
		return &models.ValidationError{Stage: models.StageWindowFetch, Reason: "unknown source " + string(report.Source)}
	}
	if !report.Kind.IsValid() {
		return &models.ValidationError{Stage: models.StageWindowFetch, Reason: "unknown entity kind " + string(report.Kind)}
	}
	if !report.GroupBy.IsValid() {
		return &models.ValidationError{Stage: models.StageAggregate, Reason: "unknown grouping " + string(report.GroupBy)}
	}
	if !report.Format.IsValid() {
		return &models.ValidationError{Stage: models.StagePresent, Reason: "unknown format " + string(report.Format)}
	}
	if len(report.ScopeList()) == 0 {
		return &models.ValidationError{Stage: models.StageWindowFetch, Reason: "scope must not be empty"}
	}
	if err := report.Window().Validate(); err != nil {
		return err
	}

	return s.reportRepo.Create(report)
}

// Run executes the report pipeline against the given fetcher and persists the
// rendered result. Each stage completes fully before the next begins.
func (s *ReportService) Run(ctx context.Context, report *models.Report, fetcher EntityFetcher) error {
	entities, err := fetcher.FetchEntities(ctx, report.ScopeList(), report.Window(), report.Kind, report.WindowField, report.ActorList())
	if err != nil {
		return fmt.Errorf("failed to fetch entities: %w", err)
	}

	var relations []*models.Relation
	var missing []string
	if report.IncludeRelations {
		entityIDs := make([]string, 0, len(entities))
		for _, entity := range entities {
			entityIDs = append(entityIDs, entity.ID)
		}

		relations, missing, err = fetcher.FetchRelations(ctx, entityIDs)
		if err != nil {
			return fmt.Errorf("failed to fetch relations: %w", err)
		}
		for _, entityID := range missing {
			logger.Warnf("Entity %s disappeared before its relations could be fetched", entityID)
		}
	}

	summary, err := s.aggregationService.Aggregate(entities, relations, report.GroupBy)
	if err != nil {
		return fmt.Errorf("failed to aggregate: %w", err)
	}

	output, err := presenter.Render(summary, presenter.Format(report.Format))
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	if err := report.SetResult(summary, output, missing, len(entities), len(relations)); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return s.reportRepo.Update(report)
}

// GetReportByID retrieves a report by ID
func (s *ReportService) GetReportByID(reportID string) (*models.Report, error) {
	return s.reportRepo.GetByID(reportID)
}

// ListReports retrieves the most recent reports
func (s *ReportService) ListReports(limit int) ([]*models.Report, error) {
	return s.reportRepo.List(limit)
}

// DeleteReport removes a report
func (s *ReportService) DeleteReport(reportID string) error {
	return s.reportRepo.Delete(reportID)
}
