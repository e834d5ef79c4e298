// -----------------------------------------------------------------------
// Browser Session - single headless Chrome page shared by the site
// workflows. One session, one tab, strictly sequential operations.
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"
)

// Config holds the session options and the per-operation wait budgets.
// Every wait in the workflows is bounded by one of these budgets; the
// original's unbounded loops are not reproduced.
type Config struct {
	Headless        bool
	Locale          string
	UserAgent       string
	DownloadDir     string
	DebugDir        string
	NavTimeout      time.Duration
	SelectorTimeout time.Duration
	DownloadTimeout time.Duration
}

// Session owns one browser context with a single page
type Session struct {
	cfg           Config
	logger        arbor.ILogger
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	downloads     *downloadTracker
}

// NewSession launches the browser and prepares download capture.
// The session inherits cancellation from parent.
func NewSession(parent context.Context, cfg Config, logger arbor.ILogger) (*Session, error) {
	opts := buildAllocatorOptions(cfg)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			logger.Debug().Msgf("chromedp: "+s, i...)
		}))

	s := &Session{
		cfg:           cfg,
		logger:        logger,
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		downloads:     newDownloadTracker(logger),
	}

	s.downloads.listen(browserCtx)

	// Start the browser, route downloads into the downloads directory and
	// pin the Accept-Language header the way the original scripts did.
	startCtx, cancel := context.WithTimeout(browserCtx, cfg.NavTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": acceptLanguage(cfg.Locale),
		}),
		s.downloads.configureBehavior(cfg.DownloadDir),
	); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	logger.Info().
		Bool("headless", cfg.Headless).
		Str("locale", cfg.Locale).
		Str("download_dir", cfg.DownloadDir).
		Msg("🌐 Browser session started")

	return s, nil
}

func buildAllocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.WindowSize(1920, 1080),
	}

	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

func acceptLanguage(locale string) string {
	if locale == "" {
		return "en-US,en;q=0.9"
	}
	if len(locale) >= 2 {
		return fmt.Sprintf("%s,%s;q=0.9", locale, locale[:2])
	}
	return locale
}

// Close tears down the browser and allocator contexts
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
	s.logger.Debug().Msg("Browser session closed")
}

// run executes chromedp actions against the page under the given budget
func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the document body to be ready.
// There is no network-idle signal here; callers that need rendered
// content follow up with WaitVisible on a concrete selector.
func (s *Session) Navigate(url string) error {
	if err := s.run(s.cfg.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until sel is visible, within the selector budget
func (s *Session) WaitVisible(sel string) error {
	return s.run(s.cfg.SelectorTimeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// WaitVisibleWithin is WaitVisible with an explicit budget, for probes
// that want to fail faster or slower than the default.
func (s *Session) WaitVisibleWithin(sel string, timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// Exists reports whether sel becomes visible within timeout. Used for
// idempotent session probes where absence is an answer, not an error.
func (s *Session) Exists(sel string, timeout time.Duration) bool {
	return s.run(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)) == nil
}

// Fill clears sel and types value into it
func (s *Session) Fill(sel, value string) error {
	return s.run(s.cfg.SelectorTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

// Click clicks the first element matching sel
func (s *Session) Click(sel string) error {
	return s.run(s.cfg.SelectorTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
}

// PressEscape sends an Escape key event to the page
func (s *Session) PressEscape() error {
	return s.run(s.cfg.SelectorTimeout, chromedp.KeyEvent(kb.Escape))
}

// PageHTML returns the current document's outer HTML. The workflows
// render with the browser and parse with goquery on this snapshot.
func (s *Session) PageHTML() (string, error) {
	var html string
	if err := s.run(s.cfg.NavTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture page html: %w", err)
	}
	return html, nil
}

// Evaluate runs a JavaScript expression on the page, decoding the result
// into out (pass nil to discard).
func (s *Session) Evaluate(js string, out interface{}) error {
	return s.run(s.cfg.SelectorTimeout, chromedp.Evaluate(js, out))
}

// Sleep pauses between interactions, honoring session cancellation
func (s *Session) Sleep(d time.Duration) {
	select {
	case <-s.ctx.Done():
	case <-time.After(d):
	}
}

// Done exposes the session's cancellation signal
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}
