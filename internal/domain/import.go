package domain

// ImportRow is one data row of a panel history spreadsheet.
type ImportRow struct {
	RowNumber  int    `json:"row_number"`
	PanelName  string `json:"panel_name"`
	StatusText string `json:"status"`
	ChangedBy  string `json:"changed_by,omitempty"`
	RawDate    string `json:"created_at,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ValidationVerdict is the validation outcome for one ImportRow.
type ValidationVerdict struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ImportMode selects between appending history and re-dating it.
type ImportMode string

const (
	ImportModeInsert ImportMode = "insert"
	ImportModeUpdate ImportMode = "update"
)

// PanelOutcome reports what happened to one panel group, or to a single
// row that was dropped while writing.
type PanelOutcome struct {
	PanelName string   `json:"panel_name"`
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Rows      int      `json:"rows"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
