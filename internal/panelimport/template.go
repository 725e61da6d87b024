package panelimport

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Panel History"

var templateSamples = [][]any{
	{"P-101", "Issued For Production", "admin", "2024-01-10", "", "Released to factory"},
	{"P-101", "Produced", "", "01/15/2024", "", ""},
	{"P-101", "Proceed for Delivery", "admin", "20.01.2024", "https://example.com/p-101.jpg", "Loaded on truck 4"},
}

// BuildTemplate renders the downloadable import template: the fixed header
// row followed by a few sample rows.
func BuildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, name := range Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write template header: %w", err)
	}

	for i, sample := range templateSamples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := sample
		if err := f.SetSheetRow(templateSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write template row: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(templateSheet, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("failed to style template header: %w", err)
	}
	if err := f.SetColWidth(templateSheet, "A", "F", 24); err != nil {
		return nil, fmt.Errorf("failed to size template columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}
	return buf.Bytes(), nil
}
