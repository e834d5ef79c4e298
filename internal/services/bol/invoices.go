package bol

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/models"
)

// downloadCurrentSpecification grabs the standing "Specificatie" link at
// the top of the finances page, when present.
func (w *Workflow) downloadCurrentSpecification(s *browser.Session, accountName string) (string, error) {
	linkSel := browser.Lookup(models.SiteBol, browser.ElementSpecificationLink).Query
	if err := s.WaitVisibleWithin(linkSel, sessionProbeTimeout); err != nil {
		return "", fmt.Errorf("specification link not present: %w", err)
	}

	dl, err := s.ExpectDownload(func() error {
		return s.Click(linkSel)
	})
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteBol), Account: accountName, Err: err}
	}

	name := models.DownloadFilename(models.SiteBol, accountName, "", dl.SuggestedFilename)
	path, err := s.SaveAs(dl, name)
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteBol), Account: accountName, Err: err}
	}
	w.logger.Info().Str("file", path).Msg("📥 Saved Specificatie")
	return path, nil
}

// downloadLastMonthInvoices walks the invoice list and downloads the
// specification spreadsheet of every row whose billing period overlaps
// the previous calendar month. Row failures are isolated: a bad period
// string or a dead menu skips that row and the loop continues.
func (w *Workflow) downloadLastMonthInvoices(s *browser.Session, accountName string) ([]string, error) {
	window := models.PreviousMonth(w.now())
	w.logger.Info().
		Str("period", window.String()).
		Msg("📆 Checking for invoices in period")

	html, err := s.PageHTML()
	if err != nil {
		return nil, &models.NavigationError{Site: string(models.SiteBol), Element: "invoice list", Err: err}
	}

	rows, err := parseInvoiceRows(html)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		w.logger.Warn().Msg("⚠️ No invoice rows found!")
		return nil, nil
	}

	var files []string
	for _, row := range rows {
		if !row.Parsed {
			w.logger.Info().
				Int("row", row.Index+1).
				Str("text", row.PeriodText).
				Msg("ℹ️ Row has no parseable period, skipping")
			continue
		}

		if !row.Period.Overlaps(window) {
			w.logger.Info().
				Int("row", row.Index+1).
				Str("period", row.Period.String()).
				Msg("⏭ Outside last month")
			continue
		}

		w.logger.Info().
			Int("row", row.Index+1).
			Str("period", row.Period.String()).
			Msg("✅ Downloading XLSX")

		path, err := w.downloadInvoiceRow(s, accountName, row)
		if err != nil {
			w.logger.Error().Err(err).Int("row", row.Index+1).Msg("❌ Failed to download XLSX")
			continue
		}
		files = append(files, path)
	}

	w.logger.Info().Msg("🎉 Done checking all rows")
	return files, nil
}

// downloadInvoiceRow opens the row's three-dot menu and clicks its
// "Download specificatie" option.
func (w *Workflow) downloadInvoiceRow(s *browser.Session, accountName string, row models.InvoiceRow) (string, error) {
	if err := w.openRowMenu(s, row.Index); err != nil {
		return "", &models.NavigationError{Site: string(models.SiteBol), Element: "row options menu", Err: err}
	}

	option := browser.Lookup(models.SiteBol, browser.ElementDownloadSpec)
	dl, err := s.ExpectDownload(func() error {
		clicked, err := w.clickRowOption(s, row.Index, option)
		if err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("menu option %q not found", option.Text)
		}
		return nil
	})
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteBol), Account: accountName, Err: err}
	}

	name := models.DownloadFilename(models.SiteBol, accountName, row.Period.Label(), dl.SuggestedFilename)
	path, err := s.SaveAs(dl, name)
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteBol), Account: accountName, Err: err}
	}
	return path, nil
}

func (w *Workflow) openRowMenu(s *browser.Session, rowIndex int) error {
	rowSel := browser.Lookup(models.SiteBol, browser.ElementInvoiceRow).Query
	menuSel := browser.Lookup(models.SiteBol, browser.ElementRowMenuButton).Query
	js := fmt.Sprintf(`(() => {
		const rows = document.querySelectorAll(%q);
		if (rows.length <= %d) return false;
		const btn = rows[%d].querySelector(%q);
		if (!btn) return false;
		btn.scrollIntoView({block: 'center'});
		btn.click();
		return true;
	})()`, rowSel, rowIndex, rowIndex, menuSel)
	var ok bool
	if err := s.Evaluate(js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("row %d has no options menu", rowIndex)
	}
	return nil
}

func (w *Workflow) clickRowOption(s *browser.Session, rowIndex int, option browser.Locator) (bool, error) {
	rowSel := browser.Lookup(models.SiteBol, browser.ElementInvoiceRow).Query
	optSel := browser.Lookup(models.SiteBol, browser.ElementRowMenuOption).Query
	js := fmt.Sprintf(`(() => {
		const rows = document.querySelectorAll(%q);
		if (rows.length <= %d) return false;
		for (const opt of rows[%d].querySelectorAll(%q)) {
			if ((opt.innerText || '').trim().toLowerCase().includes(%q)) {
				opt.click();
				return true;
			}
		}
		return false;
	})()`, rowSel, rowIndex, rowIndex, optSel, strings.ToLower(option.Text))
	var clicked bool
	if err := s.Evaluate(js, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

// parseInvoiceRows reads every invoice row and its billing-period text
// out of the rendered page. Unparseable periods are kept with Parsed set
// to false so the caller can log the skip reason.
func parseInvoiceRows(html string) ([]models.InvoiceRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice list HTML: %w", err)
	}

	rowSel := browser.Lookup(models.SiteBol, browser.ElementInvoiceRow).Query
	periodSel := browser.Lookup(models.SiteBol, browser.ElementInvoicePeriod).Query

	var rows []models.InvoiceRow
	doc.Find(rowSel).Each(func(i int, sel *goquery.Selection) {
		row := models.InvoiceRow{
			Index:      i,
			PeriodText: strings.TrimSpace(sel.Find(periodSel).First().Text()),
		}
		if period, err := models.ParsePeriod(row.PeriodText); err == nil {
			row.Period = period
			row.Parsed = true
		}
		rows = append(rows, row)
	})

	return rows, nil
}
