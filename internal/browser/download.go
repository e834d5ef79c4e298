package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// CompletedDownload describes one finished browser download. The file
// sits under the downloads directory named by its GUID until the caller
// renames it with SaveAs.
type CompletedDownload struct {
	GUID              string
	SuggestedFilename string
	Path              string
}

// downloadTracker correlates CDP download events with the single
// in-flight download. The workflows never overlap downloads, so one
// pending slot is enough; a second arm while armed is a programming error.
type downloadTracker struct {
	mu        sync.Mutex
	logger    arbor.ILogger
	dir       string
	armed     bool
	guid      string
	suggested string
	done      chan error
}

func newDownloadTracker(logger arbor.ILogger) *downloadTracker {
	return &downloadTracker{logger: logger}
}

// configureBehavior routes downloads to dir with GUID naming and enables
// download progress events.
func (t *downloadTracker) configureBehavior(dir string) chromedp.Action {
	t.dir = dir
	return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(dir).
		WithEventsEnabled(true)
}

// listen installs the CDP event handler on the browser context
func (t *downloadTracker) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadWillBegin:
			t.mu.Lock()
			if t.armed && t.guid == "" {
				t.guid = e.GUID
				t.suggested = e.SuggestedFilename
				t.logger.Debug().
					Str("guid", e.GUID).
					Str("suggested", e.SuggestedFilename).
					Msg("📥 Download started")
			}
			t.mu.Unlock()
		case *browser.EventDownloadProgress:
			t.mu.Lock()
			if t.armed && t.guid == e.GUID {
				switch e.State {
				case browser.DownloadProgressStateCompleted:
					t.finish(nil)
				case browser.DownloadProgressStateCanceled:
					t.finish(fmt.Errorf("download canceled by browser"))
				}
			}
			t.mu.Unlock()
		}
	})
}

// finish delivers the outcome at most once; callers hold t.mu
func (t *downloadTracker) finish(err error) {
	select {
	case t.done <- err:
	default:
	}
}

func (t *downloadTracker) arm() (<-chan error, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return nil, fmt.Errorf("a download is already pending")
	}
	t.armed = true
	t.guid = ""
	t.suggested = ""
	t.done = make(chan error, 1)
	return t.done, nil
}

func (t *downloadTracker) disarm() (guid, suggested string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	guid, suggested = t.guid, t.suggested
	t.armed = false
	t.guid = ""
	t.suggested = ""
	t.done = nil
	return guid, suggested
}

// ExpectDownload arms the tracker, runs trigger (typically a click on a
// download control) and blocks until the browser reports the download
// complete or the download budget expires.
func (s *Session) ExpectDownload(trigger func() error) (*CompletedDownload, error) {
	done, err := s.downloads.arm()
	if err != nil {
		return nil, err
	}

	if err := trigger(); err != nil {
		s.downloads.disarm()
		return nil, fmt.Errorf("download trigger failed: %w", err)
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-time.After(s.cfg.DownloadTimeout):
		waitErr = fmt.Errorf("no completed download event within %s", s.cfg.DownloadTimeout)
	case <-s.ctx.Done():
		waitErr = s.ctx.Err()
	}

	guid, suggested := s.downloads.disarm()
	if waitErr != nil {
		return nil, waitErr
	}
	if guid == "" {
		return nil, fmt.Errorf("download completed but no begin event was observed")
	}

	return &CompletedDownload{
		GUID:              guid,
		SuggestedFilename: suggested,
		Path:              filepath.Join(s.cfg.DownloadDir, guid),
	}, nil
}

// SaveAs renames a completed download to name inside the downloads
// directory and returns the final path.
func (s *Session) SaveAs(dl *CompletedDownload, name string) (string, error) {
	target := filepath.Join(s.cfg.DownloadDir, name)
	if err := os.Rename(dl.Path, target); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	s.logger.Info().Str("file", target).Msg("✅ Download saved")
	return target, nil
}
