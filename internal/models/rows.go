package models

// ReportRow is an ephemeral view over one row of the marketplace results
// table. It exists only long enough to decide whether to download,
// refresh, or skip.
type ReportRow struct {
	Index       int
	ReportType  string
	ActionLabel string
}

// InvoiceRow is an ephemeral view over one row of the partner portal's
// invoice list. PeriodText is the raw localized string; Period is only
// valid when Parsed is true.
type InvoiceRow struct {
	Index      int
	PeriodText string
	Period     Period
	Parsed     bool
}
