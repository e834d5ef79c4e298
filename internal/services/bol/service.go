// -----------------------------------------------------------------------
// Bol Workflow - partner-portal invoice retrieval for every configured
// account: login, current specification, last month's invoices, logout.
// -----------------------------------------------------------------------

package bol

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// Workflow drives the partner-portal automation for one run
type Workflow struct {
	cfg     common.BolConfig
	browser common.BrowserConfig
	dir     string
	logger  arbor.ILogger
	now     func() time.Time
}

// New creates the Bol workflow from application configuration
func New(cfg *common.Config, logger arbor.ILogger) *Workflow {
	return &Workflow{
		cfg:     cfg.Bol,
		browser: cfg.Browser,
		dir:     cfg.DownloadsDir,
		logger:  logger,
		now:     time.Now,
	}
}

// Site identifies this workflow in orchestrator output
func (w *Workflow) Site() models.Site {
	return models.SiteBol
}

// Run processes every configured account on a single shared page:
// login (skipped when a session is still live), download the current
// specification, download last month's invoices, then log out so the
// next account starts clean. Per-account failures are logged and do not
// stop the remaining accounts.
func (w *Workflow) Run(ctx context.Context) ([]string, error) {
	session, err := browser.NewSession(ctx, browser.Config{
		Headless:        w.browser.Headless,
		// The portal must render Dutch labels ("Uitloggen", "Download
		// specificatie") for the text locators to match, so the
		// configured locale is not used here.
		Locale:          "nl-NL",
		UserAgent:       w.browser.UserAgent,
		DownloadDir:     w.dir,
		DebugDir:        w.browser.DebugDir,
		NavTimeout:      w.browser.GetNavTimeout(),
		SelectorTimeout: w.browser.GetSelectorTimeout(),
		DownloadTimeout: w.browser.GetDownloadTimeout(),
	}, w.logger)
	if err != nil {
		return nil, fmt.Errorf("bol: %w", err)
	}
	defer session.Close()

	var files []string
	for _, account := range w.cfg.Accounts {
		if account.Name == "" || account.Email == "" || account.Password == "" {
			w.logger.Warn().Str("account", account.Name).Msg("⚠️ Missing credentials, skipping")
			continue
		}

		w.logger.Info().Str("account", account.Name).Msg("🚀 Processing account")

		accountFiles, err := w.processAccount(session, account)
		files = append(files, accountFiles...)
		if err != nil {
			w.logger.Error().Err(err).Str("account", account.Name).Msg("❌ Account failed")
			continue
		}
		w.logger.Info().
			Str("account", account.Name).
			Int("files", len(accountFiles)).
			Msg("✅ Account done")
	}

	w.logger.Info().Int("files", len(files)).Msg("✅ All accounts processed")
	return files, nil
}

func (w *Workflow) processAccount(s *browser.Session, account common.BolAccount) ([]string, error) {
	if err := w.loginIfNeeded(s, account); err != nil {
		return nil, err
	}
	// Logout is best-effort cleanup regardless of how the account went
	defer w.logoutIfNeeded(s)

	if err := s.Navigate(w.cfg.FinancesURL); err != nil {
		return nil, &models.NavigationError{Site: string(models.SiteBol), Element: "finances page", Err: err}
	}

	rowSel := browser.Lookup(models.SiteBol, browser.ElementInvoiceRow).Query
	if err := s.WaitVisible(rowSel); err != nil {
		return nil, &models.NavigationError{Site: string(models.SiteBol), Element: "invoice rows", Err: err}
	}

	var files []string

	w.logger.Info().Msg("🔍 Checking for current specification")
	if path, err := w.downloadCurrentSpecification(s, account.Name); err != nil {
		w.logger.Warn().Err(err).Str("account", account.Name).Msg("⚠️ Could not download current specification")
	} else if path != "" {
		files = append(files, path)
	}

	invoiceFiles, err := w.downloadLastMonthInvoices(s, account.Name)
	files = append(files, invoiceFiles...)
	return files, err
}
