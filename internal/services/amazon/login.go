package amazon

import (
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/models"
)

// login walks the three-step seller-central sign-in: email, password,
// then a time-based one-time code derived from the shared secret. Any
// selector timeout captures diagnostics and aborts the site's run.
func (w *Workflow) login(s *browser.Session) error {
	w.logger.Info().Msg("🔐 Starting login process")

	if err := s.Navigate(w.cfg.ReportsURL); err != nil {
		return w.authFailed(s, err)
	}

	if err := s.Fill(browser.Lookup(models.SiteAmazon, browser.ElementEmailInput).Query, w.cfg.Email); err != nil {
		return w.authFailed(s, err)
	}
	w.logger.Debug().Msg("✅ Email filled")

	if err := s.Click(browser.Lookup(models.SiteAmazon, browser.ElementContinueButton).Query); err != nil {
		return w.authFailed(s, err)
	}

	if err := s.Fill(browser.Lookup(models.SiteAmazon, browser.ElementPasswordInput).Query, w.cfg.Password); err != nil {
		return w.authFailed(s, err)
	}
	w.logger.Debug().Msg("✅ Password filled")

	if err := s.Click(browser.Lookup(models.SiteAmazon, browser.ElementSignInButton).Query); err != nil {
		return w.authFailed(s, err)
	}

	code, err := totp.GenerateCode(w.cfg.TOTPSecret, time.Now())
	if err != nil {
		return &models.AuthError{Site: string(models.SiteAmazon), Err: err}
	}

	if err := s.Fill(browser.Lookup(models.SiteAmazon, browser.ElementOTPInput).Query, code); err != nil {
		return w.authFailed(s, err)
	}
	w.logger.Debug().Msg("✅ TOTP code filled")

	if err := s.Click(browser.Lookup(models.SiteAmazon, browser.ElementOTPSubmit).Query); err != nil {
		return w.authFailed(s, err)
	}

	w.logger.Info().Msg("✅ Logged in successfully")
	return nil
}

func (w *Workflow) authFailed(s *browser.Session, err error) error {
	s.CaptureFailure("login_failed")
	return &models.AuthError{Site: string(models.SiteAmazon), Err: err}
}
