package panelimport

import (
	"sort"
	"time"

	"github.com/rpattn/paneltrack/internal/domain"
)

// GroupedRow is a validated row with its status and date decoded.
type GroupedRow struct {
	domain.ImportRow
	Status  domain.PanelStatus
	Date    time.Time
	HasDate bool
}

// PanelGroup holds the ordered, deduplicated rows of one panel.
type PanelGroup struct {
	Panel domain.Panel
	Rows  []GroupedRow
}

// GroupRows partitions rows by panel, orders each partition by calendar
// date and drops rows that repeat the previous row's status. Groups are
// returned in order of first appearance. Rows whose panel is not in the
// directory are ignored.
func GroupRows(rows []domain.ImportRow, dir *Directory) []PanelGroup {
	var groups []PanelGroup
	index := make(map[string]int)

	for _, row := range rows {
		panel, ok := dir.Panel(row.PanelName)
		if !ok {
			continue
		}

		grouped := GroupedRow{
			ImportRow: row,
			Status:    domain.StatusFromText(row.StatusText),
		}
		if date, err := ParseDate(row.RawDate); err == nil {
			grouped.Date = date
			grouped.HasDate = true
		}

		key := nameKey(panel.Name)
		pos, exists := index[key]
		if !exists {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, PanelGroup{Panel: panel})
		}
		groups[pos].Rows = append(groups[pos].Rows, grouped)
	}

	for i := range groups {
		groups[i].Rows = collapseRepeats(sortByDate(groups[i].Rows))
	}
	return groups
}

// sortByDate orders rows by calendar date. Undated rows carry the zero time
// and sort first; ties keep spreadsheet order.
func sortByDate(rows []GroupedRow) []GroupedRow {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

func collapseRepeats(rows []GroupedRow) []GroupedRow {
	out := make([]GroupedRow, 0, len(rows))
	for i, row := range rows {
		if i > 0 && row.Status == out[len(out)-1].Status {
			continue
		}
		out = append(out, row)
	}
	return out
}
