package panelimport

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoDate is returned for an empty date cell. Callers place the row
	// relative to the other rows of its panel.
	ErrNoDate = errors.New("no date given")

	directLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02",
	}

	numericPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	slashPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:[ T]+(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	dotDayFirst    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})(?:[ T]+(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	dotYearFirst   = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})$`)
)

// ParseDate decodes a spreadsheet date cell into a calendar date. The cell
// may hold a serial day count (epoch 1899-12-30) or text in one of the
// supported layouts. The time of day is discarded.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrNoDate
	}

	if numericPattern.MatchString(raw) {
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date %q: %w", raw, err)
		}
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date %q: %w", raw, err)
		}
		return truncateToDay(ts), nil
	}

	for _, layout := range directLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return truncateToDay(ts), nil
		}
	}

	if m := slashPattern.FindStringSubmatch(raw); m != nil {
		first, second, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		month, day := first, second
		if first > 12 {
			// Only a day can exceed 12, so the value is DD/MM/YYYY.
			month, day = second, first
		}
		if ts, ok := buildDate(year, month, day, m[4], m[5], m[6]); ok {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}

	if m := dotDayFirst.FindStringSubmatch(raw); m != nil {
		if ts, ok := buildDate(atoi(m[3]), atoi(m[2]), atoi(m[1]), m[4], m[5], m[6]); ok {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}

	if m := dotYearFirst.FindStringSubmatch(raw); m != nil {
		if ts, ok := buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), "", "", ""); ok {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}

	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// StampDate puts the wall clock time of now onto date and adds offset
// milliseconds, so rows sharing a calendar date keep their order.
func StampDate(date time.Time, now time.Time, offset int) time.Time {
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		now.Hour(), now.Minute(), now.Second(), 0,
		now.Location(),
	).Add(time.Duration(offset) * time.Millisecond)
}

// NormalizeDate parses raw and stamps it. ok is false when raw is empty or
// cannot be parsed.
func NormalizeDate(raw string, now time.Time, offset int) (time.Time, bool) {
	date, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return StampDate(date, now, offset), true
}

// buildDate validates the fields so that 02/30/2024 is rejected instead of
// rolling over into March. Time fields only need to be in range.
func buildDate(year, month, day int, hh, mm, ss string) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if hh != "" {
		if atoi(hh) > 23 || atoi(mm) > 59 || (ss != "" && atoi(ss) > 59) {
			return time.Time{}, false
		}
	}
	ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if ts.Month() != time.Month(month) || ts.Day() != day {
		return time.Time{}, false
	}
	return ts, true
}

func truncateToDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func atoi(value string) int {
	n, _ := strconv.Atoi(value)
	return n
}
