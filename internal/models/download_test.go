package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadFilename(t *testing.T) {
	got := DownloadFilename(SiteAmazon, "Belgium", "", "2025Jun-transactions.csv")
	assert.Equal(t, "Amazon - Belgium - 2025Jun-transactions.csv", got)

	got = DownloadFilename(SiteBol, "TCF NL", "2025-06-01_to_2025-06-30", "factuur.xlsx")
	assert.Equal(t, "Bol.com - TCF NL - 2025-06-01_to_2025-06-30 - factuur.xlsx", got)
}

func TestDownloadFilenameInjective(t *testing.T) {
	// No two distinct (site, account, period, original) tuples may collide
	inputs := []struct {
		site     Site
		account  string
		period   string
		original string
	}{
		{SiteAmazon, "Belgium", "", "report.csv"},
		{SiteAmazon, "Netherlands", "", "report.csv"},
		{SiteAmazon, "Belgium", "", "report2.csv"},
		{SiteBol, "Belgium", "", "report.csv"},
		{SiteBol, "TCF NL", "2025-06-01_to_2025-06-30", "factuur.xlsx"},
		{SiteBol, "TCF NL", "2025-05-01_to_2025-05-31", "factuur.xlsx"},
		{SiteBol, "TCF BE", "2025-06-01_to_2025-06-30", "factuur.xlsx"},
	}

	seen := make(map[string]int)
	for i, in := range inputs {
		name := DownloadFilename(in.site, in.account, in.period, in.original)
		if prev, dup := seen[name]; dup {
			t.Errorf("inputs %d and %d collide on %q", prev, i, name)
		}
		seen[name] = i
	}
}

func TestSanitizeFilenamePart(t *testing.T) {
	// Path separators in a suggested filename must not escape the
	// downloads directory
	got := DownloadFilename(SiteBol, "acct", "", "../../etc/passwd")
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "\\")

	// Empty original still yields a usable name
	got = DownloadFilename(SiteAmazon, "Belgium", "", "   ")
	assert.Equal(t, "Amazon - Belgium - unnamed", got)
}
