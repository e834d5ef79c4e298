// -----------------------------------------------------------------------
// Amazon Workflow - seller-central report retrieval across every
// sub-account of the configured parent organization.
// -----------------------------------------------------------------------

package amazon

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// Workflow drives the seller-central automation for one run
type Workflow struct {
	cfg     common.AmazonConfig
	browser common.BrowserConfig
	dir     string
	logger  arbor.ILogger
}

// New creates the Amazon workflow from application configuration
func New(cfg *common.Config, logger arbor.ILogger) *Workflow {
	return &Workflow{
		cfg:     cfg.Amazon,
		browser: cfg.Browser,
		dir:     cfg.DownloadsDir,
		logger:  logger,
	}
}

// Site identifies this workflow in orchestrator output
func (w *Workflow) Site() models.Site {
	return models.SiteAmazon
}

// Run authenticates, then iterates every sub-account under the parent
// group: switch, configure filters, request the transaction report, poll
// until downloadable, save. Per-account failures are logged and the loop
// continues; login failure is fatal for the whole site.
func (w *Workflow) Run(ctx context.Context) ([]string, error) {
	session, err := browser.NewSession(ctx, browser.Config{
		Headless:        w.browser.Headless,
		Locale:          w.browser.Locale,
		UserAgent:       w.browser.UserAgent,
		DownloadDir:     w.dir,
		DebugDir:        w.browser.DebugDir,
		NavTimeout:      w.browser.GetNavTimeout(),
		SelectorTimeout: w.browser.GetSelectorTimeout(),
		DownloadTimeout: w.browser.GetDownloadTimeout(),
	}, w.logger)
	if err != nil {
		return nil, fmt.Errorf("amazon: %w", err)
	}
	defer session.Close()

	if err := w.login(session); err != nil {
		return nil, err
	}

	if err := session.Navigate(w.cfg.SwitcherURL); err != nil {
		session.CaptureFailure("account_switcher_nav_failed")
		return nil, &models.NavigationError{Site: string(models.SiteAmazon), Element: "account switcher", Err: err}
	}

	handles, err := w.listSubAccounts(session)
	if err != nil {
		session.CaptureFailure("countries_processing_failed")
		return nil, err
	}
	w.logger.Info().Int("count", len(handles)).Msg("✅ Found sub-accounts to process")

	var files []string
	for _, handle := range handles {
		w.logger.Info().
			Int("index", handle.Index+1).
			Int("total", len(handles)).
			Str("account", handle.Name).
			Msg("🔄 Processing sub-account")

		path, err := w.processAccount(session, handle)
		if err != nil {
			w.logger.Error().Err(err).Str("account", handle.Name).Msg("❌ Failed to process sub-account")
			session.CaptureFailure("country_" + safeName(handle.Name) + "_failed")
			// Continue with the next sub-account
			continue
		}
		files = append(files, path)
		w.logger.Info().Str("account", handle.Name).Msg("✅ Completed sub-account")
	}

	w.logger.Info().Int("files", len(files)).Msg("✅ All sub-accounts processed")
	return files, nil
}

// processAccount switches the session to one sub-account and pulls its
// monthly transaction report.
func (w *Workflow) processAccount(s *browser.Session, handle models.AccountHandle) (string, error) {
	if err := w.selectAccount(s, handle); err != nil {
		return "", err
	}

	if err := s.Navigate(w.cfg.ReportsURL); err != nil {
		return "", &models.NavigationError{Site: string(models.SiteAmazon), Element: "reports repository", Err: err}
	}
	w.dismissTutorial(s)

	if err := w.requestReport(s); err != nil {
		return "", err
	}

	path, err := w.awaitAndDownload(s, handle.Name)
	if err != nil {
		return "", err
	}

	// Back to the switcher for the next sub-account
	if err := s.Navigate(w.cfg.SwitcherURL); err != nil {
		return path, &models.NavigationError{Site: string(models.SiteAmazon), Element: "account switcher", Err: err}
	}

	return path, nil
}

func safeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == ' ' || r == '/' || r == '\\' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
