package bolapi

import (
	"time"

	"github.com/tcftrading/reportfetch/internal/models"
)

const invoiceDateLayout = "2006-01-02"

// Invoice is one entry in the retailer invoice listing.
type Invoice struct {
	ID          string `json:"invoiceId"`
	PeriodStart string `json:"periodStartDate"`
	PeriodEnd   string `json:"periodEndDate"`
	IssueDate   string `json:"issueDate"`
}

type invoiceListResponse struct {
	Invoices []Invoice `json:"invoiceListItems"`
}

// MonthLabel derives the human month name for an invoice, preferring the
// invoice's own period start over the requested window.
func (i Invoice) MonthLabel(requested models.Period) string {
	if start, err := time.Parse(invoiceDateLayout, i.PeriodStart); err == nil {
		return start.Format("January 2006")
	}
	return requested.MonthName()
}

// PeriodLabel renders the invoice's own billing range for filenames,
// falling back to the requested window when the listing omits dates.
func (i Invoice) PeriodLabel(requested models.Period) string {
	start, err1 := time.Parse(invoiceDateLayout, i.PeriodStart)
	end, err2 := time.Parse(invoiceDateLayout, i.PeriodEnd)
	if err1 != nil || err2 != nil {
		return requested.Label()
	}
	return models.Period{Start: start, End: end}.Label()
}
