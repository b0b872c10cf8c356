package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/causify-ai/ascope/internal/repositories"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory database with the real schema applied
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/001_create_tables.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

// fakeFetcher returns canned results so pipeline tests need no network
type fakeFetcher struct {
	entities  []*models.Entity
	relations []*models.Relation
	missing   []string
	fetchErr  error
}

func (f *fakeFetcher) FetchEntities(ctx context.Context, scope []string, window models.TimeWindow, kind models.EntityKind, field models.WindowField, actorFilter []string) ([]*models.Entity, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.entities, nil
}

func (f *fakeFetcher) FetchRelations(ctx context.Context, entityIDs []string) ([]*models.Relation, []string, error) {
	return f.relations, f.missing, nil
}

func validWindow() models.TimeWindow {
	return models.TimeWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateReportValidation(t *testing.T) {
	// Validation runs before any repository access, so no database is needed.
	service := NewReportService(nil, NewAggregationService())

	base := func() *models.Report {
		return models.NewReport(models.ReportSourceGitHub, []string{"acme/widgets"}, models.EntityKindPullRequest, validWindow(), models.GroupByActor, models.ReportFormatMarkdown)
	}

	testCases := []struct {
		name   string
		mutate func(*models.Report)
	}{
		{"unknown source", func(r *models.Report) { r.Source = "jira" }},
		{"unknown kind", func(r *models.Report) { r.Kind = "epic" }},
		{"unknown grouping", func(r *models.Report) { r.GroupBy = "by_team" }},
		{"unknown format", func(r *models.Report) { r.Format = "pdf" }},
		{"empty scope", func(r *models.Report) { r.Scope = "" }},
		{"window start after end", func(r *models.Report) {
			r.WindowStart = r.WindowEnd.Add(time.Hour)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := base()
			tc.mutate(report)
			err := service.CreateReport(report)
			var validationErr *models.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestReportServiceRun(t *testing.T) {
	db := newTestDB(t)
	reportRepo := repositories.NewReportRepository(db)
	service := NewReportService(reportRepo, NewAggregationService())

	report := models.NewReport(models.ReportSourceGitHub, []string{"acme/widgets"}, models.EntityKindPullRequest, validWindow(), models.GroupByActor, models.ReportFormatMarkdown)
	report.IncludeRelations = true
	require.NoError(t, service.CreateReport(report))

	alice := "alice"
	fetcher := &fakeFetcher{
		entities: []*models.Entity{
			models.NewEntity("acme/widgets#1", models.EntityKindPullRequest, &alice, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "acme/widgets"),
			models.NewEntity("acme/widgets#2", models.EntityKindPullRequest, nil, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "acme/widgets"),
		},
		relations: []*models.Relation{
			{ParentID: "acme/widgets#1", Author: "bob", CreatedAt: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Text: "nice"},
		},
		missing: []string{"acme/widgets#7"},
	}

	require.NoError(t, service.Run(context.Background(), report, fetcher))

	stored, err := service.GetReportByID(report.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, stored.EntityCount)
	assert.Equal(t, 1, stored.RelationCount)
	require.NotNil(t, stored.Output)
	assert.Contains(t, *stored.Output, "| alice | 1 | 1 |")
	assert.Contains(t, *stored.Output, "| unassigned | 1 | 0 |")
	require.NotNil(t, stored.MissingIDs)
	assert.Equal(t, "acme/widgets#7", *stored.MissingIDs)

	summary, err := stored.ResultSummary()
	require.NoError(t, err)
	assert.Equal(t, models.Summary{
		"alice":      {Entities: 1, Relations: 1},
		"unassigned": {Entities: 1, Relations: 0},
	}, summary)
}

func TestReportServiceRunFetchFailure(t *testing.T) {
	db := newTestDB(t)
	reportRepo := repositories.NewReportRepository(db)
	service := NewReportService(reportRepo, NewAggregationService())

	report := models.NewReport(models.ReportSourceGitHub, []string{"acme/widgets"}, models.EntityKindPullRequest, validWindow(), models.GroupByActor, models.ReportFormatMarkdown)
	require.NoError(t, service.CreateReport(report))

	fetcher := &fakeFetcher{fetchErr: &models.RateLimitError{Stage: models.StageWindowFetch, Scope: "acme/widgets"}}
	err := service.Run(context.Background(), report, fetcher)
	var rateErr *models.RateLimitError
	require.ErrorAs(t, err, &rateErr)

	// The stored report keeps its empty result when the run fails.
	stored, getErr := service.GetReportByID(report.ID)
	require.NoError(t, getErr)
	assert.Nil(t, stored.Output)
	assert.Zero(t, stored.EntityCount)
}

func TestReportServiceRunSkipsRelationsWhenNotRequested(t *testing.T) {
	db := newTestDB(t)
	reportRepo := repositories.NewReportRepository(db)
	service := NewReportService(reportRepo, NewAggregationService())

	report := models.NewReport(models.ReportSourceGitHub, []string{"acme/widgets"}, models.EntityKindPullRequest, validWindow(), models.GroupByActor, models.ReportFormatTable)
	require.NoError(t, service.CreateReport(report))

	alice := "alice"
	fetcher := &fakeFetcher{
		entities: []*models.Entity{
			models.NewEntity("acme/widgets#1", models.EntityKindPullRequest, &alice, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "acme/widgets"),
		},
		// Would be counted if relations were requested.
		relations: []*models.Relation{{ParentID: "acme/widgets#1", Author: "bob"}},
	}

	require.NoError(t, service.Run(context.Background(), report, fetcher))

	stored, err := service.GetReportByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EntityCount)
	assert.Zero(t, stored.RelationCount)
	assert.Nil(t, stored.MissingIDs)
}

func TestDeleteReport(t *testing.T) {
	db := newTestDB(t)
	reportRepo := repositories.NewReportRepository(db)
	service := NewReportService(reportRepo, NewAggregationService())

	report := models.NewReport(models.ReportSourceGitHub, []string{"acme/widgets"}, models.EntityKindCommit, validWindow(), models.GroupByActor, models.ReportFormatMarkdown)
	require.NoError(t, service.CreateReport(report))

	require.NoError(t, service.DeleteReport(report.ID))

	_, err := service.GetReportByID(report.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
