// -----------------------------------------------------------------------
// App - wires configuration, logging, the run ledger, the site workflows
// and the mailer together, and runs them once or on a cron schedule.
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/orchestrator"
	"github.com/tcftrading/reportfetch/internal/services/amazon"
	"github.com/tcftrading/reportfetch/internal/services/bol"
	"github.com/tcftrading/reportfetch/internal/services/bolapi"
	"github.com/tcftrading/reportfetch/internal/services/mailer"
	"github.com/tcftrading/reportfetch/internal/storage"
)

// App holds the wired application
type App struct {
	Config       *common.Config
	Logger       arbor.ILogger
	Orchestrator *orchestrator.Orchestrator

	runlog *storage.RunLog
	cron   *cron.Cron
}

// New wires the application from configuration
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	runlog, err := storage.NewRunLog(logger, cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	var workflows []orchestrator.SiteWorkflow
	if cfg.Amazon.Enabled {
		workflows = append(workflows, amazon.New(cfg, logger))
	}
	if cfg.BolAPI.Enabled {
		// Token-based variant replaces the browser workflow when enabled
		workflows = append(workflows, bolapi.New(cfg, logger))
	} else if cfg.Bol.Enabled {
		workflows = append(workflows, bol.New(cfg, logger))
	}
	if len(workflows) == 0 {
		runlog.Close()
		return nil, fmt.Errorf("no site workflows enabled")
	}

	mailSvc := mailer.NewService(cfg.SMTP, logger)

	orch := orchestrator.New(
		cfg.DownloadsDir,
		cfg.Browser.DebugDir,
		workflows,
		mailSvc,
		runlog,
		logger,
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Orchestrator: orch,
		runlog:       runlog,
	}, nil
}

// RunOnce executes a single report-fetching cycle
func (a *App) RunOnce(ctx context.Context) error {
	return a.Orchestrator.Run(ctx)
}

// StartSchedule runs the orchestrator on the configured cron schedule
// until the context is cancelled. Overlapping runs are prevented by
// cron's SkipIfStillRunning wrapper.
func (a *App) StartSchedule(ctx context.Context) error {
	if a.Config.Schedule == "" {
		return fmt.Errorf("no schedule configured")
	}

	a.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := a.cron.AddFunc(a.Config.Schedule, func() {
		if err := a.Orchestrator.Run(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("❌ Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.Config.Schedule, err)
	}

	a.Logger.Info().Str("schedule", a.Config.Schedule).Msg("⏰ Scheduler started")
	a.cron.Start()

	<-ctx.Done()

	stopCtx := a.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Close releases held resources
func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.runlog != nil {
		return a.runlog.Close()
	}
	return nil
}
