package bolapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// Workflow is the REST-based invoice retrieval, run instead of the
// browser workflow when the partner API is enabled.
type Workflow struct {
	cfg    common.BolAPIConfig
	dir    string
	logger arbor.ILogger
	now    func() time.Time
}

// New creates the REST workflow from application configuration
func New(cfg *common.Config, logger arbor.ILogger) *Workflow {
	return &Workflow{
		cfg:    cfg.BolAPI,
		dir:    cfg.DownloadsDir,
		logger: logger,
		now:    time.Now,
	}
}

// Site identifies this workflow in orchestrator output
func (w *Workflow) Site() models.Site {
	return models.SiteBol
}

// Run fetches last month's invoices for every configured account. Each
// account gets its own token; per-account failures are logged and do not
// stop the remaining accounts.
func (w *Workflow) Run(ctx context.Context) ([]string, error) {
	var files []string
	for _, account := range w.cfg.Accounts {
		if account.Name == "" || account.ClientID == "" || account.ClientSecret == "" {
			w.logger.Warn().Str("account", account.Name).Msg("⚠️ Missing API credentials, skipping")
			continue
		}

		w.logger.Info().Str("account", account.Name).Msg("🚀 Processing account via API")

		client := NewClient(ctx, account.ClientID, account.ClientSecret, w.cfg.TokenURL,
			WithBaseURL(w.cfg.BaseURL),
			WithLogger(w.logger),
		)

		accountFiles, err := w.FetchAndDownloadInvoices(ctx, client, account.Name)
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

// FetchAndDownloadInvoices lists last month's invoices and saves each
// specification spreadsheet to the downloads directory. Per-invoice
// failures are logged and skipped, not fatal to the batch.
func (w *Workflow) FetchAndDownloadInvoices(ctx context.Context, client *Client, accountName string) ([]string, error) {
	window := models.PreviousMonth(w.now())
	w.logger.Info().
		Str("period", window.String()).
		Msg("📆 Listing invoices for period")

	invoices, err := client.ListInvoices(ctx, window)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		w.logger.Warn().Msg("⚠️ No invoices found for period")
		return nil, nil
	}

	var files []string
	for _, inv := range invoices {
		w.logger.Info().
			Str("invoice", inv.ID).
			Str("month", inv.MonthLabel(window)).
			Msg("✅ Downloading specification")

		data, suggested, err := client.DownloadSpecification(ctx, inv.ID)
		if err != nil {
			w.logger.Error().Err(err).Str("invoice", inv.ID).Msg("❌ Failed to download specification")
			continue
		}

		name := models.DownloadFilename(models.SiteBol, accountName, inv.PeriodLabel(window), suggested)
		path := filepath.Join(w.dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			w.logger.Error().Err(err).Str("invoice", inv.ID).Msg("❌ Failed to write specification")
			continue
		}

		w.logger.Info().Str("file", path).Msg("📥 Saved specification")
		files = append(files, path)
	}

	if len(files) == 0 && len(invoices) > 0 {
		return nil, fmt.Errorf("all %d specification downloads failed", len(invoices))
	}
	return files, nil
}
