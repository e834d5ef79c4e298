package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/chromedp/chromedp"
)

// CaptureFailure writes a full-page screenshot and an HTML dump for the
// named failure into the debug directory. Best-effort: its own failures
// are logged and swallowed, never propagated.
func (s *Session) CaptureFailure(name string) []string {
	var artifacts []string

	if err := os.MkdirAll(s.cfg.DebugDir, 0755); err != nil {
		s.logger.Warn().Err(err).Msg("⚠️ Could not create debug directory")
		return nil
	}

	var shot []byte
	if err := s.run(s.cfg.NavTimeout, chromedp.FullScreenshot(&shot, 90)); err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("⚠️ Could not capture screenshot")
	} else {
		path := filepath.Join(s.cfg.DebugDir, fmt.Sprintf("debug_%s.png", name))
		if err := os.WriteFile(path, shot, 0644); err != nil {
			s.logger.Warn().Err(err).Msg("⚠️ Could not save screenshot")
		} else {
			s.logger.Info().Str("file", path).Msg("📷 Screenshot saved")
			artifacts = append(artifacts, path)
		}
	}

	html, err := s.PageHTML()
	if err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("⚠️ Could not capture page HTML")
		return artifacts
	}
	path := filepath.Join(s.cfg.DebugDir, fmt.Sprintf("debug_%s.html", name))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		s.logger.Warn().Err(err).Msg("⚠️ Could not save page HTML")
		return artifacts
	}
	s.logger.Info().Str("file", path).Msg("📄 Page HTML saved")
	artifacts = append(artifacts, path)

	return artifacts
}

// maxSummaryLength bounds the markdown rendering of a captured page so a
// failure email stays readable.
const maxSummaryLength = 2000

// SummarizeHTML converts captured page HTML into a short markdown excerpt
// for the failure-mode email body.
func SummarizeHTML(html string) string {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	markdown = strings.TrimSpace(markdown)
	if len(markdown) > maxSummaryLength {
		markdown = markdown[:maxSummaryLength] + "\n…(truncated)"
	}
	return markdown
}
