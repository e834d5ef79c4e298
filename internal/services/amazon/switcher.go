package amazon

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/models"
)

// currentSuffix marks the already-active sub-account in the switcher
const currentSuffix = "(current)"

// switcherPage is the slice of the browser session the switcher needs.
// *browser.Session satisfies it; tests substitute a scripted page.
type switcherPage interface {
	PageHTML() (string, error)
	ClickByText(loc browser.Locator) (bool, error)
	WaitVisible(sel string) error
	Exists(sel string, timeout time.Duration) bool
	Click(sel string) error
	PressEscape() error
	Sleep(d time.Duration)
	CaptureFailure(name string) []string
}

// listSubAccounts expands the parent group in the account switcher and
// reads its nested account buttons.
func (w *Workflow) listSubAccounts(s switcherPage) ([]models.AccountHandle, error) {
	accountsSel := browser.Lookup(models.SiteAmazon, browser.ElementSwitcherAccounts).Query
	if err := s.WaitVisible(accountsSel); err != nil {
		return nil, &models.NavigationError{Site: string(models.SiteAmazon), Element: "account switcher list", Err: err}
	}
	return w.ensureExpanded(s)
}

// ensureExpanded makes sure the parent group's sub-accounts are rendered.
// The switcher sometimes shows the group collapsed and empty, both on
// first load and every time a workflow navigates back to it; the
// original re-clicked forever, here the re-expansion is bounded by the
// configured attempt budget.
func (w *Workflow) ensureExpanded(s switcherPage) ([]models.AccountHandle, error) {
	for attempt := 1; attempt <= w.browser.SwitcherMaxAttempts; attempt++ {
		html, err := s.PageHTML()
		if err != nil {
			return nil, &models.NavigationError{Site: string(models.SiteAmazon), Element: "account switcher page", Err: err}
		}

		handles, err := parseSubAccounts(html, w.cfg.ParentGroup)
		if err != nil {
			return nil, err
		}
		if len(handles) > 0 {
			return handles, nil
		}

		w.logger.Warn().
			Int("attempt", attempt).
			Str("group", w.cfg.ParentGroup).
			Msg("⚠️ No sub-accounts rendered, re-expanding parent group")

		if _, err := s.ClickByText(browser.Locator{
			Site:  models.SiteAmazon,
			Query: browser.Lookup(models.SiteAmazon, browser.ElementSwitcherLabel).Query,
			Text:  w.cfg.ParentGroup,
		}); err != nil {
			return nil, &models.NavigationError{Site: string(models.SiteAmazon), Element: "parent group header", Err: err}
		}
		s.Sleep(w.browser.GetSwitcherDelay())
	}

	return nil, &models.NavigationError{
		Site:    string(models.SiteAmazon),
		Element: "sub-account list",
		Err:     fmt.Errorf("still empty after %d expansion attempts", w.browser.SwitcherMaxAttempts),
	}
}

// parseSubAccounts extracts the sub-account handles nested under the
// named parent group from the switcher page HTML.
func parseSubAccounts(html, parentGroup string) ([]models.AccountHandle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse switcher HTML: %w", err)
	}

	labelSel := browser.Lookup(models.SiteAmazon, browser.ElementSwitcherLabel).Query

	var container *goquery.Selection
	doc.Find(labelSel).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(sel.Text()), parentGroup) {
			// The group's own accounts list lives three levels up from
			// its label, mirroring the switcher's nesting.
			container = sel.Parent().Parent().Parent()
			return false
		}
		return true
	})
	if container == nil {
		return nil, &models.NavigationError{
			Site:    string(models.SiteAmazon),
			Element: "parent group",
			Err:     fmt.Errorf("group %q not found in switcher", parentGroup),
		}
	}

	var handles []models.AccountHandle
	container.Find(browser.Lookup(models.SiteAmazon, browser.ElementSwitcherAccounts).Query).
		Find(browser.Lookup(models.SiteAmazon, browser.ElementSwitcherAccount).Query).
		Each(func(i int, btn *goquery.Selection) {
			label := strings.TrimSpace(btn.Find(labelSel).First().Text())
			if label == "" {
				return
			}
			current := strings.HasSuffix(label, currentSuffix)
			name := strings.TrimSpace(strings.TrimSuffix(label, currentSuffix))
			handles = append(handles, models.AccountHandle{Index: i, Name: name, Current: current})
		})

	return handles, nil
}

// selectAccount clicks the sub-account button and, unless it is already
// the active one, confirms via the "Select account" button, found by
// exact visible text since the page offers no stable selector for it.
// The group renders collapsed again after each return to the switcher,
// so it is re-expanded before every click.
func (w *Workflow) selectAccount(s switcherPage, handle models.AccountHandle) error {
	if _, err := w.ensureExpanded(s); err != nil {
		return err
	}

	account := browser.Lookup(models.SiteAmazon, browser.ElementSwitcherAccount)
	account.Text = handle.Name
	clicked, err := s.ClickByText(account)
	if err != nil {
		return &models.NavigationError{Site: string(models.SiteAmazon), Element: "sub-account button", Err: err}
	}
	if !clicked {
		return &models.NavigationError{
			Site:    string(models.SiteAmazon),
			Element: "sub-account button",
			Err:     fmt.Errorf("no button labeled %q", handle.Name),
		}
	}
	s.Sleep(w.browser.GetSwitcherDelay())

	if !handle.Current {
		confirm := browser.Lookup(models.SiteAmazon, browser.ElementConfirmAccount)
		clicked, err := s.ClickByText(confirm)
		if err != nil {
			return &models.NavigationError{Site: string(models.SiteAmazon), Element: "confirm button", Err: err}
		}
		if !clicked {
			s.CaptureFailure("confirm_button_not_found")
			return &models.NavigationError{
				Site:    string(models.SiteAmazon),
				Element: "confirm button",
				Err:     fmt.Errorf("no button with exact text %q", confirm.Text),
			}
		}
		s.Sleep(w.browser.GetSwitcherDelay())
	}

	w.dismissTutorial(s)
	w.logger.Info().Str("account", handle.Name).Msg("🎉 Sub-account selected")
	return nil
}

// dismissTutorial closes the first-run walkthrough overlay if it is up.
// Absence is success; so is a failed Escape, this is purely cosmetic.
func (w *Workflow) dismissTutorial(s switcherPage) {
	overlay := browser.Lookup(models.SiteAmazon, browser.ElementTutorialOverlay).Query
	if !s.Exists(overlay, 2*time.Second) {
		w.logger.Debug().Msg("ℹ️ No tutorial popup detected")
		return
	}

	skip := browser.Lookup(models.SiteAmazon, browser.ElementTutorialSkip).Query
	closeBtn := browser.Lookup(models.SiteAmazon, browser.ElementTutorialClose).Query
	switch {
	case s.Click(skip) == nil:
	case s.Click(closeBtn) == nil:
	default:
		if err := s.PressEscape(); err != nil {
			w.logger.Warn().Err(err).Msg("⚠️ Could not dismiss tutorial overlay")
			return
		}
	}
	w.logger.Info().Msg("✅ Tutorial dismissed")
	s.Sleep(w.browser.GetSwitcherDelay())
}
