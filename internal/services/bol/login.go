package bol

import (
	"fmt"
	"time"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// sessionProbeTimeout is how long the already-logged-in check waits for
// the finance table before concluding credentials are needed.
const sessionProbeTimeout = 3 * time.Second

// loginPage is the slice of the browser session the login flow needs.
// *browser.Session satisfies it; tests substitute a scripted page.
type loginPage interface {
	Navigate(url string) error
	Exists(sel string, timeout time.Duration) bool
	Fill(sel, value string) error
	Click(sel string) error
	CaptureFailure(name string) []string
}

// loginIfNeeded authenticates unless a session is still live. The check
// makes login idempotent: when the finance table is already rendered the
// credential fields are never touched.
func (w *Workflow) loginIfNeeded(s loginPage, account common.BolAccount) error {
	w.logger.Info().Str("account", account.Name).Msg("🌐 Navigating to finances page")

	if err := s.Navigate(w.cfg.FinancesURL); err != nil {
		return &models.AuthError{Site: string(models.SiteBol), Account: account.Name, Err: err}
	}

	tableSel := browser.Lookup(models.SiteBol, browser.ElementFinanceTable).Query
	if s.Exists(tableSel, sessionProbeTimeout) {
		w.logger.Info().Str("account", account.Name).Msg("✅ Already logged in")
		return nil
	}
	w.logger.Info().Str("account", account.Name).Msg("🔑 Not logged in, logging in")

	if err := s.Fill(browser.Lookup(models.SiteBol, browser.ElementLoginUsername).Query, account.Email); err != nil {
		return w.authFailed(s, account.Name, err)
	}
	if err := s.Fill(browser.Lookup(models.SiteBol, browser.ElementLoginPassword).Query, account.Password); err != nil {
		return w.authFailed(s, account.Name, err)
	}
	if err := s.Click(browser.Lookup(models.SiteBol, browser.ElementLoginSubmit).Query); err != nil {
		return w.authFailed(s, account.Name, err)
	}

	if !s.Exists(tableSel, w.browser.GetSelectorTimeout()) {
		return w.authFailed(s, account.Name, fmt.Errorf("finance table did not appear after login"))
	}

	w.logger.Info().Str("account", account.Name).Msg("🎉 Logged in")
	return nil
}

func (w *Workflow) authFailed(s loginPage, account string, err error) error {
	s.CaptureFailure("login_failed_" + account)
	return &models.AuthError{Site: string(models.SiteBol), Account: account, Err: err}
}

// logoutIfNeeded ends the portal session so the next account starts from
// the login form. The user menu has no stable selector; its trigger is
// recognized by an SVG path fragment embedded in the icon. Best-effort:
// every failure here is logged and swallowed.
func (w *Workflow) logoutIfNeeded(s *browser.Session) {
	w.logger.Info().Msg("🔒 Logging out")

	trigger := browser.Lookup(models.SiteBol, browser.ElementMenuTrigger)
	clicked, err := s.ClickByText(trigger)
	if err != nil || !clicked {
		w.logger.Warn().Err(err).Msg("⚠️ Could not find the user menu trigger")
		return
	}

	menuSel := browser.Lookup(models.SiteBol, browser.ElementMenuContent).Query
	if err := s.WaitVisible(menuSel); err != nil {
		w.logger.Warn().Err(err).Msg("⚠️ User menu did not open")
		return
	}

	logout := browser.Lookup(models.SiteBol, browser.ElementLogoutLink)
	clicked, err = s.ClickByText(logout)
	if err != nil || !clicked {
		w.logger.Warn().Err(err).Msg("⚠️ Logout link not found")
		return
	}

	// Verify the session is really gone: the login form must reappear
	if err := s.Navigate(w.cfg.FinancesURL); err != nil {
		w.logger.Warn().Err(err).Msg("⚠️ Could not reload finances page after logout")
		return
	}
	loginSel := browser.Lookup(models.SiteBol, browser.ElementLoginUsername).Query
	if s.Exists(loginSel, 10*time.Second) {
		w.logger.Info().Msg("✅ Successfully logged out")
	} else {
		w.logger.Warn().Msg("⚠️ Logout might have failed, login form not detected")
	}
}
