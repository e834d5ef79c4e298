package models

import (
	"fmt"
	"strings"
	"time"
)

// periodDateLayout matches the portal's DD-MM-YYYY date rendering
const periodDateLayout = "02-01-2006"

// periodSeparators are the recognized separators between the two halves of
// a billing-period string: the Dutch rendering and the English fallback.
var periodSeparators = []string{"t/m", "until"}

// Period is an inclusive [Start, End] billing date range
type Period struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod parses a billing-period string of the form
// "DD-MM-YYYY <sep> DD-MM-YYYY" where <sep> is "t/m" or "until".
// Returns ParseError on unknown separators, malformed dates, or ranges
// where the end precedes the start.
func ParsePeriod(text string) (Period, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Period{}, &ParseError{Input: text, Err: fmt.Errorf("empty period text")}
	}

	var startStr, endStr string
	found := false
	for _, sep := range periodSeparators {
		if strings.Contains(trimmed, sep) {
			parts := strings.SplitN(trimmed, sep, 2)
			startStr = strings.TrimSpace(parts[0])
			endStr = strings.TrimSpace(parts[1])
			found = true
			break
		}
	}
	if !found {
		return Period{}, &ParseError{Input: text, Err: fmt.Errorf("unknown separator")}
	}

	start, err := time.Parse(periodDateLayout, startStr)
	if err != nil {
		return Period{}, &ParseError{Input: text, Err: err}
	}
	end, err := time.Parse(periodDateLayout, endStr)
	if err != nil {
		return Period{}, &ParseError{Input: text, Err: err}
	}
	if end.Before(start) {
		return Period{}, &ParseError{Input: text, Err: fmt.Errorf("end %s precedes start %s", endStr, startStr)}
	}

	return Period{Start: start, End: end}, nil
}

// PreviousMonth returns the full calendar month immediately before now.
// In January the previous month is December of the prior year.
func PreviousMonth(now time.Time) Period {
	year, month := now.Year(), now.Month()
	if month == time.January {
		year--
		month = time.December
	} else {
		month--
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Period{Start: first, End: last}
}

// Overlaps reports whether p and the window share at least one day.
// Bounds are inclusive on both sides: End == window.Start counts.
func (p Period) Overlaps(window Period) bool {
	return !p.End.Before(window.Start) && !p.Start.After(window.End)
}

// Label renders the period for filenames: "YYYY-MM-DD_to_YYYY-MM-DD"
func (p Period) Label() string {
	return fmt.Sprintf("%s_to_%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// MonthName renders "January 2006" style labels, used in email subjects
// and the REST variant's per-invoice month derivation.
func (p Period) MonthName() string {
	return p.Start.Format("January 2006")
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format(periodDateLayout), p.End.Format(periodDateLayout))
}
