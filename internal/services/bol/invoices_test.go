package bol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcftrading/reportfetch/internal/models"
)

const invoiceListHTML = `
<html><body>
<puik-list-row>
  <span data-test="span-invoice-with-period">01-06-2025 t/m 30-06-2025</span>
</puik-list-row>
<puik-list-row>
  <span data-test="span-invoice-with-period">01-05-2025 t/m 31-05-2025</span>
</puik-list-row>
<puik-list-row>
  <span data-test="span-invoice-with-period">Openstaande posten</span>
</puik-list-row>
</body></html>`

func TestParseInvoiceRows(t *testing.T) {
	rows, err := parseInvoiceRows(invoiceListHTML)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.True(t, rows[0].Parsed)
	assert.Equal(t, "2025-06-01_to_2025-06-30", rows[0].Period.Label())

	require.True(t, rows[1].Parsed)
	assert.Equal(t, "2025-05-01_to_2025-05-31", rows[1].Period.Label())

	// No period in the text: kept, flagged unparsed, caller skips it
	assert.False(t, rows[2].Parsed)
	assert.Equal(t, "Openstaande posten", rows[2].PeriodText)
}

func TestParseInvoiceRowsEmptyList(t *testing.T) {
	rows, err := parseInvoiceRows(`<html><body></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// Mid-July run: the June invoice is in scope, the May one is not.
func TestLastMonthSelection(t *testing.T) {
	now := time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC)
	window := models.PreviousMonth(now)

	rows, err := parseInvoiceRows(invoiceListHTML)
	require.NoError(t, err)

	var included []string
	for _, row := range rows {
		if row.Parsed && row.Period.Overlaps(window) {
			included = append(included, row.Period.Label())
		}
	}

	assert.Equal(t, []string{"2025-06-01_to_2025-06-30"}, included)
}
