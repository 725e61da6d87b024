package panelimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rpattn/paneltrack/internal/domain"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTooManyRows is returned when a file exceeds the configured row limit.
	ErrTooManyRows = errors.New("too many rows")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Columns is the fixed column order of an import file.
var Columns = []string{"panel_name", "status", "changed_by", "created_at", "image_url", "notes"}

const (
	colPanelName = iota
	colStatus
	colChangedBy
	colCreatedAt
	colImageURL
	colNotes
)

// ReadRows decodes an uploaded .xlsx, .xls or .csv file into import rows. The
// first non-empty row is the header. When the header names every expected
// column, columns are matched by name, otherwise by position. maxRows <= 0
// disables the row limit.
func ReadRows(fileName string, payload []byte, maxRows int) ([]domain.ImportRow, error) {
	records, err := parseRecords(fileName, payload)
	if err != nil {
		return nil, err
	}

	headerIndex := -1
	for idx, record := range records {
		if !isBlank(record) {
			headerIndex = idx
			break
		}
	}
	if headerIndex < 0 {
		return nil, errors.New("no header row detected")
	}

	positions := columnPositions(records[headerIndex])

	var rows []domain.ImportRow
	for idx := headerIndex + 1; idx < len(records); idx++ {
		record := records[idx]
		if isBlank(record) {
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}
		rows = append(rows, domain.ImportRow{
			RowNumber:  idx + 1,
			PanelName:  cell(record, positions[colPanelName]),
			StatusText: cell(record, positions[colStatus]),
			ChangedBy:  cell(record, positions[colChangedBy]),
			RawDate:    cell(record, positions[colCreatedAt]),
			ImageURL:   cell(record, positions[colImageURL]),
			Notes:      cell(record, positions[colNotes]),
		})
	}

	return rows, nil
}

func parseRecords(fileName string, payload []byte) ([][]string, error) {
	if len(payload) == 0 {
		return nil, errors.New("file is empty")
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	case ".xls":
		return parseLegacyExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	// Raw values keep date cells as serial numbers instead of locale text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// parseLegacyExcel reads the first sheet of a BIFF .xls workbook. Missing
// rows stay in the result as empty records so row numbers line up with the
// spreadsheet.
func parseLegacyExcel(payload []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(payload), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("xls file has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("failed to open first xls sheet")
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cols := row.LastCol()
		record := make([]string, cols)
		for i := 0; i < cols; i++ {
			record[i] = row.Col(i)
		}
		records = append(records, record)
	}
	return records, nil
}

func columnPositions(header []string) []int {
	positions := make([]int, len(Columns))
	byName := make(map[string]int, len(header))
	for idx, value := range header {
		byName[headerKey(value)] = idx
	}

	for i, name := range Columns {
		pos, ok := byName[name]
		if !ok {
			// Fall back to the fixed order for every column.
			for j := range positions {
				positions[j] = j
			}
			return positions
		}
		positions[i] = pos
	}
	return positions
}

func headerKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "_")
	return strings.ReplaceAll(value, "-", "_")
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
