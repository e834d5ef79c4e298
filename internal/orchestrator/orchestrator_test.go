package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
	"github.com/tcftrading/reportfetch/internal/storage"
)

// fakeWorkflow drops files into the downloads dir the way a real site
// workflow would, or fails.
type fakeWorkflow struct {
	site  models.Site
	dir   string
	names []string
	err   error
	runs  int
}

func (f *fakeWorkflow) Site() models.Site { return f.site }

func (f *fakeWorkflow) Run(ctx context.Context) ([]string, error) {
	f.runs++
	var files []string
	for _, name := range f.names {
		path := filepath.Join(f.dir, name)
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, f.err
}

type fakeMailer struct {
	configured bool
	reports    [][]string
	failures   int
	artifacts  []string
	siteErrors []error
	err        error
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) SendMonthlyReports(files []string) error {
	m.reports = append(m.reports, files)
	return m.err
}

func (m *fakeMailer) SendFailureReport(files, debugArtifacts []string, siteErrors []error) error {
	m.failures++
	m.reports = append(m.reports, files)
	m.artifacts = debugArtifacts
	m.siteErrors = siteErrors
	return m.err
}

func TestRunHappyPath(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "downloads")

	// Stale file from a previous run must be cleared before workflows run
	require.NoError(t, os.MkdirAll(downloads, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "stale.csv"), []byte("old"), 0o644))

	amazon := &fakeWorkflow{site: models.SiteAmazon, dir: downloads, names: []string{"Amazon - Belgium - report.csv"}}
	bol := &fakeWorkflow{site: models.SiteBol, dir: downloads, names: []string{"Bol.com - Account1 - spec.xlsx"}}
	mailer := &fakeMailer{configured: true}

	o := New(downloads, "", []SiteWorkflow{amazon, bol}, mailer, nil, common.GetLogger())
	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, 1, amazon.runs)
	assert.Equal(t, 1, bol.runs)

	require.Len(t, mailer.reports, 1)
	assert.Equal(t, []string{
		filepath.Join(downloads, "Amazon - Belgium - report.csv"),
		filepath.Join(downloads, "Bol.com - Account1 - spec.xlsx"),
	}, mailer.reports[0])
	assert.Zero(t, mailer.failures)
}

// One site failing must not stop the other site or the email step; the
// email switches to failure mode with debug artifacts attached.
func TestRunSiteFailureIsNonFatalToEmail(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "downloads")
	debug := filepath.Join(dir, "debug")
	require.NoError(t, os.MkdirAll(debug, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(debug, "debug_login_failed.png"), []byte{0x89}, 0o644))

	amazon := &fakeWorkflow{site: models.SiteAmazon, dir: downloads, err: errors.New("login failed")}
	bol := &fakeWorkflow{site: models.SiteBol, dir: downloads, names: []string{"Bol.com - Account1 - spec.xlsx"}}
	mailer := &fakeMailer{configured: true}

	o := New(downloads, debug, []SiteWorkflow{amazon, bol}, mailer, nil, common.GetLogger())
	err := o.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, bol.runs, "second site must still run")
	assert.Equal(t, 1, mailer.failures, "failure-mode email must be sent")
	assert.Equal(t, []string{filepath.Join(debug, "debug_login_failed.png")}, mailer.artifacts)
	require.Len(t, mailer.siteErrors, 1)
	assert.Contains(t, mailer.siteErrors[0].Error(), "login failed")
}

// Repeated runs against a real ledger: each run consults the previous
// record and persists its own, so the ledger grows by one per cycle.
func TestRunPersistsLedgerAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "downloads")

	runlog, err := storage.NewRunLog(common.GetLogger(), common.BadgerConfig{
		Path: filepath.Join(dir, "ledger"),
	})
	require.NoError(t, err)
	defer runlog.Close()

	amazon := &fakeWorkflow{site: models.SiteAmazon, dir: downloads, names: []string{"Amazon - Belgium - report.csv"}}
	mailer := &fakeMailer{configured: true}

	o := New(downloads, "", []SiteWorkflow{amazon}, mailer, runlog, common.GetLogger())
	require.NoError(t, o.Run(context.Background()))
	require.NoError(t, o.Run(context.Background()))

	records, err := runlog.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, record := range records {
		assert.NotEmpty(t, record.ID)
		assert.True(t, record.EmailSent)
		assert.Equal(t, "reports", record.EmailMode)
		require.Len(t, record.Sites, 1)
		assert.True(t, record.Sites[0].Succeeded)
	}
}

func TestRunSkipsEmailWithoutFiles(t *testing.T) {
	downloads := filepath.Join(t.TempDir(), "downloads")
	amazon := &fakeWorkflow{site: models.SiteAmazon, dir: downloads}
	mailer := &fakeMailer{configured: true}

	o := New(downloads, "", []SiteWorkflow{amazon}, mailer, nil, common.GetLogger())
	require.NoError(t, o.Run(context.Background()))
	assert.Empty(t, mailer.reports)
}

func TestRunSkipsEmailWhenUnconfigured(t *testing.T) {
	downloads := filepath.Join(t.TempDir(), "downloads")
	amazon := &fakeWorkflow{site: models.SiteAmazon, dir: downloads, names: []string{"Amazon - Belgium - report.csv"}}
	mailer := &fakeMailer{configured: false}

	o := New(downloads, "", []SiteWorkflow{amazon}, mailer, nil, common.GetLogger())
	require.NoError(t, o.Run(context.Background()))
	assert.Empty(t, mailer.reports)
}
