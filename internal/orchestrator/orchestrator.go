// -----------------------------------------------------------------------
// Orchestrator - drives one full run: clean downloads dir, run every
// enabled site workflow sequentially, collect the files they produced,
// email them, and record the run in the ledger. A failed site does not
// stop the other sites or the email step; it switches the email to
// failure mode with debug artifacts attached.
// -----------------------------------------------------------------------

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/models"
	"github.com/tcftrading/reportfetch/internal/storage"
)

// SiteWorkflow is one site's report acquisition, run start to finish
type SiteWorkflow interface {
	Site() models.Site
	Run(ctx context.Context) ([]string, error)
}

// Mailer delivers the collected reports
type Mailer interface {
	IsConfigured() bool
	SendMonthlyReports(files []string) error
	SendFailureReport(files, debugArtifacts []string, siteErrors []error) error
}

// Orchestrator runs the site workflows and aggregates their output
type Orchestrator struct {
	downloadsDir string
	debugDir     string
	workflows    []SiteWorkflow
	mailer       Mailer
	runlog       *storage.RunLog
	logger       arbor.ILogger
	now          func() time.Time
}

// New creates an orchestrator. The run ledger is optional; pass nil to
// skip persistence.
func New(downloadsDir, debugDir string, workflows []SiteWorkflow, mailer Mailer, runlog *storage.RunLog, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		downloadsDir: downloadsDir,
		debugDir:     debugDir,
		workflows:    workflows,
		mailer:       mailer,
		runlog:       runlog,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes one full report-fetching cycle
func (o *Orchestrator) Run(ctx context.Context) error {
	record := &storage.RunRecord{StartedAt: o.now()}
	if o.runlog != nil {
		o.logPreviousRun()
		record = o.runlog.Begin(o.now())
	}

	if err := o.clearDownloads(); err != nil {
		return err
	}

	var siteErrors []error
	for _, wf := range o.workflows {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		o.logger.Info().Str("site", string(wf.Site())).Msg("🚀 Running site workflow")

		files, err := wf.Run(ctx)
		outcome := storage.SiteOutcome{
			Site:      wf.Site(),
			Files:     len(files),
			Succeeded: err == nil,
		}
		if err != nil {
			outcome.Error = err.Error()
			siteErrors = append(siteErrors, fmt.Errorf("%s: %w", wf.Site(), err))
			o.logger.Error().Err(err).Str("site", string(wf.Site())).Msg("❌ Site workflow failed")
		} else {
			o.logger.Info().Str("site", string(wf.Site())).Int("files", len(files)).Msg("✅ Site workflow finished")
		}
		record.Sites = append(record.Sites, outcome)
	}

	// Attribution relies solely on the filename convention: everything in
	// the downloads dir is what this run produced.
	files, err := o.collectFiles()
	if err != nil {
		return err
	}
	record.Files = files

	if err := o.sendEmail(record, files, siteErrors); err != nil {
		o.logger.Error().Err(err).Msg("❌ Failed to send report email")
		siteErrors = append(siteErrors, err)
	}

	record.EndedAt = o.now()
	if o.runlog != nil {
		if err := o.runlog.Save(record); err != nil {
			o.logger.Warn().Err(err).Msg("⚠️ Failed to save run record")
		}
	}

	o.logger.Info().Msg("🎉 All tasks completed")

	if len(siteErrors) > 0 {
		return fmt.Errorf("run finished with %d failure(s): %v", len(siteErrors), siteErrors[0])
	}
	return nil
}

// logPreviousRun surfaces the outcome of the last recorded run, so a
// scheduled deployment's logs show at a glance whether the previous
// cycle delivered.
func (o *Orchestrator) logPreviousRun() {
	records, err := o.runlog.Recent(1)
	if err != nil {
		o.logger.Warn().Err(err).Msg("⚠️ Could not read run ledger")
		return
	}
	if len(records) == 0 {
		o.logger.Info().Msg("ℹ️ First recorded run")
		return
	}

	prev := records[0]
	files := len(prev.Files)
	o.logger.Info().
		Str("started", prev.StartedAt.Format(time.RFC3339)).
		Int("files", files).
		Bool("email_sent", prev.EmailSent).
		Msg("📒 Previous run")
}

func (o *Orchestrator) clearDownloads() error {
	o.logger.Info().Str("dir", o.downloadsDir).Msg("🧹 Clearing downloads folder")
	if err := os.RemoveAll(o.downloadsDir); err != nil {
		return fmt.Errorf("failed to clear downloads dir: %w", err)
	}
	if err := os.MkdirAll(o.downloadsDir, 0755); err != nil {
		return fmt.Errorf("failed to create downloads dir: %w", err)
	}
	o.logger.Info().Msg("✅ Downloads folder is clean")
	return nil
}

// collectFiles lists every regular file in the downloads directory,
// sorted by name for stable attachment order.
func (o *Orchestrator) collectFiles() ([]string, error) {
	entries, err := os.ReadDir(o.downloadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(o.downloadsDir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (o *Orchestrator) sendEmail(record *storage.RunRecord, files []string, siteErrors []error) error {
	if o.mailer == nil || !o.mailer.IsConfigured() {
		o.logger.Warn().Msg("⚠️ SMTP not configured, skipping email")
		return nil
	}

	if len(siteErrors) > 0 {
		record.EmailMode = "failure"
		artifacts := o.collectDebugArtifacts()
		if err := o.mailer.SendFailureReport(files, artifacts, siteErrors); err != nil {
			return err
		}
		record.EmailSent = true
		return nil
	}

	if len(files) == 0 {
		o.logger.Warn().Msg("⚠️ No report files found to attach")
		return nil
	}

	record.EmailMode = "reports"
	if err := o.mailer.SendMonthlyReports(files); err != nil {
		return err
	}
	record.EmailSent = true
	return nil
}

func (o *Orchestrator) collectDebugArtifacts() []string {
	if o.debugDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(o.debugDir, "debug_*"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}
