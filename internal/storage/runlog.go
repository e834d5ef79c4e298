// Package storage persists a per-run ledger in BadgerDB so operators can
// see which sites succeeded, which files were collected and whether the
// email went out, across past runs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// SiteOutcome records one site workflow's result within a run
type SiteOutcome struct {
	Site      models.Site
	Files     int
	Succeeded bool
	Error     string
}

// RunRecord is one orchestrator run
type RunRecord struct {
	ID        string `badgerhold:"key"`
	StartedAt time.Time
	EndedAt   time.Time
	Sites     []SiteOutcome
	Files     []string
	EmailSent bool
	EmailMode string // "reports" or "failure"
}

// RunLog manages the Badger-backed run ledger
type RunLog struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewRunLog opens the run ledger database
func NewRunLog(logger arbor.ILogger, config common.BadgerConfig) (*RunLog, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing run ledger (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete run ledger directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run ledger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Run ledger initialized")

	return &RunLog{store: store, logger: logger}, nil
}

// Begin creates a record for a run that is starting now
func (r *RunLog) Begin(startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:        uuid.New().String(),
		StartedAt: startedAt,
	}
}

// Save persists a finished run record
func (r *RunLog) Save(record *RunRecord) error {
	if err := r.store.Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	r.logger.Debug().Str("run_id", record.ID).Msg("Run record saved")
	return nil
}

// Recent returns the most recent runs, newest first
func (r *RunLog) Recent(limit int) ([]RunRecord, error) {
	var records []RunRecord
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := r.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}
	return records, nil
}

// Close closes the ledger database
func (r *RunLog) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
