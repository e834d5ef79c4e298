package models

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		// Dutch separator
		{"01-06-2025 t/m 30-06-2025", "2025-06-01", "2025-06-30", false},
		// English separator
		{"01-06-2025 until 30-06-2025", "2025-06-01", "2025-06-30", false},
		// Surrounding whitespace
		{"  01-05-2025 t/m 31-05-2025  ", "2025-05-01", "2025-05-31", false},
		// Year boundary
		{"01-12-2024 t/m 31-12-2024", "2024-12-01", "2024-12-31", false},
		// Single-day period
		{"15-06-2025 t/m 15-06-2025", "2025-06-15", "2025-06-15", false},

		// Unknown separator
		{"01-06-2025 to 30-06-2025", "", "", true},
		// Missing separator entirely
		{"01-06-2025", "", "", true},
		// Invalid calendar dates
		{"32-06-2025 t/m 30-06-2025", "", "", true},
		{"01-13-2025 t/m 30-13-2025", "", "", true},
		// End before start
		{"30-06-2025 t/m 01-06-2025", "", "", true},
		// Empty
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriod(%q) = %v, want error", tt.input, got)
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("ParsePeriod(%q) error type = %T, want *ParseError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) unexpected error: %v", tt.input, err)
			}
			if got.Start.Format("2006-01-02") != tt.wantStart {
				t.Errorf("Start = %s, want %s", got.Start.Format("2006-01-02"), tt.wantStart)
			}
			if got.End.Format("2006-01-02") != tt.wantEnd {
				t.Errorf("End = %s, want %s", got.End.Format("2006-01-02"), tt.wantEnd)
			}
			if got.End.Before(got.Start) {
				t.Errorf("End %v precedes Start %v", got.End, got.Start)
			}
		})
	}
}

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		now       string
		wantStart string
		wantEnd   string
	}{
		{"2025-07-15", "2025-06-01", "2025-06-30"},
		// January rolls back to December of the prior year
		{"2025-01-10", "2024-12-01", "2024-12-31"},
		// February length after a leap year
		{"2024-03-01", "2024-02-01", "2024-02-29"},
		{"2025-03-31", "2025-02-01", "2025-02-28"},
		// 31-day month
		{"2025-08-28", "2025-07-01", "2025-07-31"},
	}

	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			now, err := time.Parse("2006-01-02", tt.now)
			if err != nil {
				t.Fatal(err)
			}
			got := PreviousMonth(now)
			if got.Start.Format("2006-01-02") != tt.wantStart {
				t.Errorf("Start = %s, want %s", got.Start.Format("2006-01-02"), tt.wantStart)
			}
			if got.End.Format("2006-01-02") != tt.wantEnd {
				t.Errorf("End = %s, want %s", got.End.Format("2006-01-02"), tt.wantEnd)
			}
		})
	}
}

func TestPeriodOverlaps(t *testing.T) {
	window := mustParsePeriod(t, "01-06-2025 t/m 30-06-2025")

	tests := []struct {
		name string
		row  string
		want bool
	}{
		{"entirely inside", "05-06-2025 t/m 20-06-2025", true},
		{"exact match", "01-06-2025 t/m 30-06-2025", true},
		{"row end touches window start", "15-05-2025 t/m 01-06-2025", true},
		{"row start touches window end", "30-06-2025 t/m 10-07-2025", true},
		{"straddles whole window", "01-05-2025 t/m 31-07-2025", true},
		{"entirely before", "01-05-2025 t/m 31-05-2025", false},
		{"entirely after", "01-07-2025 t/m 31-07-2025", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := mustParsePeriod(t, tt.row)
			if got := row.Overlaps(window); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.row, window, got, tt.want)
			}
		})
	}
}

func TestPeriodLabels(t *testing.T) {
	p := mustParsePeriod(t, "01-06-2025 t/m 30-06-2025")
	if got := p.Label(); got != "2025-06-01_to_2025-06-30" {
		t.Errorf("Label() = %q", got)
	}
	if got := p.MonthName(); got != "June 2025" {
		t.Errorf("MonthName() = %q", got)
	}
}

func mustParsePeriod(t *testing.T, s string) Period {
	t.Helper()
	p, err := ParsePeriod(s)
	if err != nil {
		t.Fatalf("ParsePeriod(%q): %v", s, err)
	}
	return p
}
