package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportSource identifies the upstream system a report is built from
type ReportSource string

const (
	ReportSourceGitHub ReportSource = "github"
	ReportSourceAsana  ReportSource = "asana"
)

// IsValid checks if the report source is one of the known sources
func (s ReportSource) IsValid() bool {
	return s == ReportSourceGitHub || s == ReportSourceAsana
}

// ReportFormat is the rendering requested for a report
type ReportFormat string

const (
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatTable    ReportFormat = "table"
)

// IsValid checks if the report format is one of the known formats
func (f ReportFormat) IsValid() bool {
	return f == ReportFormatMarkdown || f == ReportFormatTable
}

// Report is one requested aggregation run together with its rendered result.
// Only the request parameters and the derived summary are persisted; the
// entities and relations fetched during the run are discarded when it ends.
type Report struct {
	ID               string       `json:"id" db:"id"`
	Source           ReportSource `json:"source" db:"source"`
	Scope            string       `json:"scope" db:"scope"`     // comma-separated scope elements
	Actors           *string      `json:"actors" db:"actors"`   // comma-separated actor filter
	Kind             EntityKind   `json:"kind" db:"kind"`
	WindowField      WindowField  `json:"window_field" db:"window_field"`
	WindowStart      time.Time    `json:"window_start" db:"window_start"`
	WindowEnd        time.Time    `json:"window_end" db:"window_end"`
	GroupBy          GroupBy      `json:"group_by" db:"group_by"`
	Format           ReportFormat `json:"format" db:"format"`
	IncludeRelations bool         `json:"include_relations" db:"include_relations"`
	Output           *string      `json:"output" db:"output"`
	SummaryJSON      *string      `json:"summary_json" db:"summary_json"`
	MissingIDs       *string      `json:"missing_ids" db:"missing_ids"` // comma-separated warning markers
	EntityCount      int          `json:"entity_count" db:"entity_count"`
	RelationCount    int          `json:"relation_count" db:"relation_count"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// NewReport creates a new Report with a generated UUID
func NewReport(source ReportSource, scope []string, kind EntityKind, window TimeWindow, groupBy GroupBy, format ReportFormat) *Report {
	now := time.Now()
	return &Report{
		ID:          uuid.New().String(),
		Source:      source,
		Scope:       strings.Join(scope, ","),
		Kind:        kind,
		WindowField: WindowFieldCreated,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		GroupBy:     groupBy,
		Format:      format,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Window returns the report's time window
func (r *Report) Window() TimeWindow {
	return TimeWindow{Start: r.WindowStart, End: r.WindowEnd}
}

// ScopeList returns the scope elements of the report
func (r *Report) ScopeList() []string {
	return splitList(r.Scope)
}

// ActorList returns the actor filter of the report, nil when unset
func (r *Report) ActorList() []string {
	if r.Actors == nil {
		return nil
	}
	return splitList(*r.Actors)
}

// SetActors sets the actor filter from a list of actor names
func (r *Report) SetActors(actors []string) {
	if len(actors) == 0 {
		r.Actors = nil
		return
	}
	joined := strings.Join(actors, ",")
	r.Actors = &joined
}

// SetResult records the outcome of a completed pipeline run
func (r *Report) SetResult(summary Summary, output string, missingIDs []string, entityCount, relationCount int) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	summaryJSON := string(data)
	r.SummaryJSON = &summaryJSON
	r.Output = &output
	r.EntityCount = entityCount
	r.RelationCount = relationCount
	r.UpdatedAt = time.Now()

	if len(missingIDs) > 0 {
		missing := strings.Join(missingIDs, ",")
		r.MissingIDs = &missing
	}
	return nil
}

// ResultSummary decodes the persisted summary of a completed report
func (r *Report) ResultSummary() (Summary, error) {
	if r.SummaryJSON == nil {
		return Summary{}, nil
	}
	var summary Summary
	if err := json.Unmarshal([]byte(*r.SummaryJSON), &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
