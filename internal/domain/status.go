package domain

import (
	"fmt"
	"strings"
)

// PanelStatus is one of the twelve lifecycle stages a panel moves through.
type PanelStatus int

const (
	StatusIssuedForProduction PanelStatus = iota
	StatusProduced
	StatusProceedForDelivery
	StatusDelivered
	StatusApprovedMaterial
	StatusRejectedMaterial
	StatusInstalled
	StatusInspected
	StatusApprovedFinal
	StatusRejectedFinal
	StatusBrokenAtFactory
	StatusBrokenAtSite
)

var statusLabels = [...]string{
	StatusIssuedForProduction: "Issued For Production",
	StatusProduced:            "Produced",
	StatusProceedForDelivery:  "Proceed for Delivery",
	StatusDelivered:           "Delivered",
	StatusApprovedMaterial:    "Approved Material",
	StatusRejectedMaterial:    "Rejected Material",
	StatusInstalled:           "Installed",
	StatusInspected:           "Inspected",
	StatusApprovedFinal:       "Approved Final",
	StatusRejectedFinal:       "Rejected Final",
	StatusBrokenAtFactory:     "Broken at Factory",
	StatusBrokenAtSite:        "Broken at Site",
}

// statusAliases holds spellings seen in source spreadsheets that are not
// canonical labels. Keys are lowercased.
var statusAliases = map[string]PanelStatus{
	"procced for delivery": StatusProceedForDelivery,
}

var statusSynonyms = buildStatusSynonyms()

func buildStatusSynonyms() map[string]PanelStatus {
	synonyms := make(map[string]PanelStatus, len(statusLabels)+len(statusAliases))
	for code, label := range statusLabels {
		synonyms[normalizeStatusText(label)] = PanelStatus(code)
	}
	for alias, code := range statusAliases {
		synonyms[normalizeStatusText(alias)] = code
	}
	return synonyms
}

func normalizeStatusText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// AllStatuses returns every status in code order.
func AllStatuses() []PanelStatus {
	out := make([]PanelStatus, len(statusLabels))
	for i := range statusLabels {
		out[i] = PanelStatus(i)
	}
	return out
}

// Valid reports whether s is one of the twelve known codes.
func (s PanelStatus) Valid() bool {
	return s >= StatusIssuedForProduction && s <= StatusBrokenAtSite
}

// Label returns the canonical label for the status.
func (s PanelStatus) Label() string {
	if !s.Valid() {
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
	return statusLabels[s]
}

func (s PanelStatus) String() string {
	return s.Label()
}

// LookupStatus maps free text, including known typos, to a status code.
// The boolean is false when the text is empty or not recognized.
func LookupStatus(text string) (PanelStatus, bool) {
	key := normalizeStatusText(text)
	if key == "" {
		return StatusIssuedForProduction, false
	}
	status, ok := statusSynonyms[key]
	return status, ok
}

// StatusFromText maps free text to a status code, falling back to
// StatusIssuedForProduction for empty or unrecognized text.
func StatusFromText(text string) PanelStatus {
	status, _ := LookupStatus(text)
	return status
}
