package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

func newTestRunLog(t *testing.T) *RunLog {
	t.Helper()
	runlog, err := NewRunLog(common.GetLogger(), common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "runlog"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { runlog.Close() })
	return runlog
}

func TestRunLogSaveAndRecent(t *testing.T) {
	runlog := newTestRunLog(t)

	base := time.Date(2025, time.July, 15, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		record := runlog.Begin(base.Add(time.Duration(i) * time.Hour))
		record.EndedAt = record.StartedAt.Add(10 * time.Minute)
		record.Sites = []SiteOutcome{
			{Site: models.SiteAmazon, Files: i, Succeeded: true},
		}
		record.EmailSent = true
		record.EmailMode = "reports"
		require.NoError(t, runlog.Save(record))
	}

	records, err := runlog.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
	assert.Equal(t, 2, records[0].Sites[0].Files)
}

func TestRunLogRecordsFailureMode(t *testing.T) {
	runlog := newTestRunLog(t)

	record := runlog.Begin(time.Now())
	record.Sites = []SiteOutcome{
		{Site: models.SiteBol, Succeeded: false, Error: "authentication failed"},
	}
	record.EmailMode = "failure"
	require.NoError(t, runlog.Save(record))

	records, err := runlog.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "failure", records[0].EmailMode)
	assert.Equal(t, "authentication failed", records[0].Sites[0].Error)
}
