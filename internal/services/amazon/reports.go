package amazon

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/models"
)

// requestReport configures the report filters and submits the request.
// The type dropdown has no stable identity, so every dropdown on the page
// is opened and scanned for a "transaction" option; the period radio does
// have a fixed id and is only clicked when not already selected.
func (w *Workflow) requestReport(s *browser.Session) error {
	w.logger.Info().Msg("🎛 Setting filters")

	dropdownSel := browser.Lookup(models.SiteAmazon, browser.ElementFilterDropdown).Query
	headerSel := browser.Lookup(models.SiteAmazon, browser.ElementDropdownHeader).Query
	optionSel := browser.Lookup(models.SiteAmazon, browser.ElementDropdownOption).Query
	option := browser.Lookup(models.SiteAmazon, browser.ElementTransactionOption)

	var count int
	if err := s.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, dropdownSel), &count); err != nil {
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: fmt.Sprintf("cannot enumerate dropdowns: %v", err)}
	}

	selected := false
	for i := 0; i < count && !selected; i++ {
		if err := w.clickNth(s, dropdownSel+" "+headerSel, i); err != nil {
			return &models.FilterError{Site: string(models.SiteAmazon), Detail: fmt.Sprintf("cannot open dropdown %d: %v", i, err)}
		}
		s.Sleep(500 * time.Millisecond)

		clicked, err := w.clickOptionInDropdown(s, dropdownSel, optionSel, i, option)
		if err != nil {
			return &models.FilterError{Site: string(models.SiteAmazon), Detail: err.Error()}
		}
		if clicked {
			w.logger.Info().Msg("✅ Selected 'Transaction'")
			selected = true
			break
		}

		// Close this dropdown again before trying the next one
		if err := w.clickNth(s, dropdownSel+" "+headerSel, i); err != nil {
			w.logger.Warn().Err(err).Int("dropdown", i).Msg("⚠️ Could not close dropdown")
		}
	}
	if !selected {
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: "no dropdown offers a 'transaction' option"}
	}

	if err := w.selectMonthlyRadio(s); err != nil {
		return err
	}

	request := browser.Lookup(models.SiteAmazon, browser.ElementRequestReport)
	clicked, err := s.ClickByText(request)
	if err != nil || !clicked {
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: "request report button not found"}
	}
	w.logger.Info().Msg("📄 Clicked 'Request Report'")
	return nil
}

// clickNth clicks the i-th element matching sel
func (w *Workflow) clickNth(s *browser.Session, sel string, i int) error {
	js := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%q);
		if (els.length <= %d) return false;
		els[%d].click();
		return true;
	})()`, sel, i, i)
	var ok bool
	if err := s.Evaluate(js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element %d of %q no longer present", i, sel)
	}
	return nil
}

// clickOptionInDropdown scans the i-th dropdown's rendered options for one
// matching the locator's text rule and clicks it.
func (w *Workflow) clickOptionInDropdown(s *browser.Session, dropdownSel, optionSel string, i int, option browser.Locator) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const dropdowns = document.querySelectorAll(%q);
		if (dropdowns.length <= %d) return false;
		for (const opt of dropdowns[%d].querySelectorAll(%q)) {
			if ((opt.innerText || '').trim().toLowerCase() === %q) {
				opt.click();
				return true;
			}
		}
		return false;
	})()`, dropdownSel, i, i, optionSel, strings.ToLower(option.Text))
	var clicked bool
	if err := s.Evaluate(js, &clicked); err != nil {
		return false, fmt.Errorf("cannot scan dropdown %d options: %w", i, err)
	}
	return clicked, nil
}

// selectMonthlyRadio checks the fixed-id monthly radio, only when it is
// not already checked. The control swallows native clicks, so the click
// is dispatched from script exactly as the original did.
func (w *Workflow) selectMonthlyRadio(s *browser.Session) error {
	radioSel := browser.Lookup(models.SiteAmazon, browser.ElementMonthlyRadio).Query
	if err := s.WaitVisible(radioSel); err != nil {
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: fmt.Sprintf("monthly radio not visible: %v", err)}
	}

	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return "missing";
		if (el.checked) return "already";
		el.click();
		return "clicked";
	})()`, radioSel)
	var state string
	if err := s.Evaluate(js, &state); err != nil {
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: fmt.Sprintf("monthly radio: %v", err)}
	}
	switch state {
	case "clicked":
		w.logger.Info().Msg("✅ Selected 'Monthly'")
	case "already":
		w.logger.Info().Msg("ℹ️ 'Monthly' already selected")
	default:
		return &models.FilterError{Site: string(models.SiteAmazon), Detail: "monthly radio missing"}
	}
	return nil
}

// awaitAndDownload polls the results table until a transaction row offers
// a CSV download, clicking refresh controls along the way. The original
// polled forever; here the scan is bounded by poll_max_attempts.
func (w *Workflow) awaitAndDownload(s *browser.Session, accountName string) (string, error) {
	w.logger.Info().Str("account", accountName).Msg("📊 Waiting for report")

	tableSel := browser.Lookup(models.SiteAmazon, browser.ElementReportTable).Query
	if err := s.WaitVisible(tableSel); err != nil {
		return "", &models.NavigationError{Site: string(models.SiteAmazon), Element: "results table", Err: err}
	}

	typeLoc := browser.Lookup(models.SiteAmazon, browser.ElementTransactionOption)
	downloadLoc := browser.Lookup(models.SiteAmazon, browser.ElementDownloadAction)
	refreshLoc := browser.Lookup(models.SiteAmazon, browser.ElementRefreshAction)

	for attempt := 1; attempt <= w.browser.PollMaxAttempts; attempt++ {
		html, err := s.PageHTML()
		if err != nil {
			return "", &models.DownloadError{Site: string(models.SiteAmazon), Account: accountName, Err: err}
		}

		rows, err := parseReportRows(html)
		if err != nil {
			return "", &models.DownloadError{Site: string(models.SiteAmazon), Account: accountName, Err: err}
		}

		for _, row := range rows {
			if !typeLoc.MatchesText(row.ReportType) {
				continue
			}

			if downloadLoc.MatchesText(row.ActionLabel) {
				w.logger.Info().Int("row", row.Index).Msg("📥 Downloading")
				return w.downloadRow(s, accountName, row.Index)
			}

			if refreshLoc.MatchesText(row.ActionLabel) {
				w.logger.Info().Int("row", row.Index).Msg("🔄 Refreshing")
				if err := w.clickRowAction(s, row.Index); err != nil {
					w.logger.Warn().Err(err).Int("row", row.Index).Msg("⚠️ Refresh click failed")
				}
				break
			}
			// Any other action label is ignored for this row
		}

		s.Sleep(w.browser.GetPollInterval())
	}

	return "", &models.DownloadError{
		Site:    string(models.SiteAmazon),
		Account: accountName,
		Err:     fmt.Errorf("report not downloadable after %d scans", w.browser.PollMaxAttempts),
	}
}

// downloadRow clicks the row's action control and saves the resulting
// browser download under the filename convention.
func (w *Workflow) downloadRow(s *browser.Session, accountName string, rowIndex int) (string, error) {
	dl, err := s.ExpectDownload(func() error {
		return w.clickRowAction(s, rowIndex)
	})
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteAmazon), Account: accountName, Err: err}
	}

	name := models.DownloadFilename(models.SiteAmazon, accountName, "", dl.SuggestedFilename)
	path, err := s.SaveAs(dl, name)
	if err != nil {
		return "", &models.DownloadError{Site: string(models.SiteAmazon), Account: accountName, Err: err}
	}
	return path, nil
}

func (w *Workflow) clickRowAction(s *browser.Session, rowIndex int) error {
	rowSel := browser.Lookup(models.SiteAmazon, browser.ElementReportRow).Query
	actionSel := browser.Lookup(models.SiteAmazon, browser.ElementReportActionCell).Query
	js := fmt.Sprintf(`(() => {
		const rows = document.querySelectorAll(%q);
		if (rows.length <= %d) return false;
		const action = rows[%d].querySelector(%q);
		if (!action) return false;
		action.click();
		return true;
	})()`, rowSel, rowIndex, rowIndex, actionSel)
	var ok bool
	if err := s.Evaluate(js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("row %d has no action control", rowIndex)
	}
	return nil
}

// parseReportRows reads the results table rows out of the page HTML.
// The action control's label lives in its "label" attribute.
func parseReportRows(html string) ([]models.ReportRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results table HTML: %w", err)
	}

	rowSel := browser.Lookup(models.SiteAmazon, browser.ElementReportRow).Query
	typeSel := browser.Lookup(models.SiteAmazon, browser.ElementReportTypeCell).Query
	actionSel := browser.Lookup(models.SiteAmazon, browser.ElementReportActionCell).Query

	var rows []models.ReportRow
	doc.Find(rowSel).Each(func(i int, sel *goquery.Selection) {
		row := models.ReportRow{
			Index:      i,
			ReportType: strings.TrimSpace(sel.Find(typeSel).First().Text()),
		}
		if action := sel.Find(actionSel).First(); action.Length() > 0 {
			label, _ := action.Attr("label")
			row.ActionLabel = strings.TrimSpace(label)
		}
		rows = append(rows, row)
	})

	return rows, nil
}
