package presenter

import (
	"fmt"

	"github.com/causify-ai/ascope/internal/models"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

// WriteExcel builds an xlsx workbook with one row per grouping key. The
// caller is responsible for writing the file to its destination.
func WriteExcel(summary models.Summary) (*excelize.File, error) {
	file := excelize.NewFile()

	index, err := file.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []interface{}{"Key", "Entities", "Relations"}
	if err := file.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	row := 2
	for _, key := range summary.Keys() {
		count := summary[key]
		cell := fmt.Sprintf("A%d", row)
		values := []interface{}{key, count.Entities, count.Relations}
		if err := file.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", key, err)
		}
		row++
	}

	totals := []interface{}{"total", summary.TotalEntities(), summary.TotalRelations()}
	if err := file.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &totals); err != nil {
		return nil, fmt.Errorf("failed to write totals row: %w", err)
	}

	return file, nil
}
