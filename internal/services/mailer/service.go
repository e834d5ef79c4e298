// -----------------------------------------------------------------------
// Mailer Service - sends the monthly report email over STARTTLS SMTP,
// one attachment per collected file. Failure mode attaches debug
// artifacts and summarizes captured page HTML in the body.
// -----------------------------------------------------------------------

package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// Attachment represents one file carried by the report email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Service sends report emails using the configured SMTP account
type Service struct {
	cfg    common.SMTPConfig
	logger arbor.ILogger
	now    func() time.Time

	// send delivers a fully built message; swapped out in tests
	send func(addr string, auth smtp.Auth, from, to string, msg []byte) error
}

// NewService creates a mailer from application configuration
func NewService(cfg common.SMTPConfig, logger arbor.ILogger) *Service {
	s := &Service{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.send = s.sendWithSTARTTLS
	return s
}

// IsConfigured checks the minimum settings needed to send
func (s *Service) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.To != ""
}

// SendMonthlyReports emails every collected file as an attachment. The
// subject names the previous calendar month, matching the billing window
// the files cover.
func (s *Service) SendMonthlyReports(files []string) error {
	month := models.PreviousMonth(s.now()).MonthName()
	subject := fmt.Sprintf("Monthly Reports - %s", month)

	body := fmt.Sprintf(
		"Hi,\n\n"+
			"Please find attached the monthly reports from %s.\n\n"+
			"Reports retrieved on %s.\n\n"+
			"Best regards,\n"+
			"ReportFetch",
		month, s.now().Format("2006-01-02 15:04"))

	attachments, err := s.loadAttachments(files)
	if err != nil {
		return err
	}

	return s.sendMessage(subject, body, attachments)
}

// SendFailureReport emails whatever files were collected plus debug
// artifacts, with each captured HTML dump summarized to markdown in the
// body so the failure can be triaged without opening attachments.
func (s *Service) SendFailureReport(files, debugArtifacts []string, siteErrors []error) error {
	month := models.PreviousMonth(s.now()).MonthName()
	subject := fmt.Sprintf("Monthly Reports - %s - FAILURES", month)

	var body strings.Builder
	body.WriteString("Hi,\n\n")
	fmt.Fprintf(&body, "The report run for %s finished with failures.\n\n", month)

	for _, err := range siteErrors {
		fmt.Fprintf(&body, "- %v\n", err)
	}

	fmt.Fprintf(&body, "\n%d report file(s) were still retrieved and are attached.\n", len(files))

	for _, artifact := range debugArtifacts {
		if !strings.HasSuffix(artifact, ".html") {
			continue
		}
		html, err := os.ReadFile(artifact)
		if err != nil {
			continue
		}
		summary := browser.SummarizeHTML(string(html))
		if summary == "" {
			continue
		}
		fmt.Fprintf(&body, "\n--- %s ---\n%s\n", filepath.Base(artifact), summary)
	}

	body.WriteString("\nBest regards,\nReportFetch")

	attachments, err := s.loadAttachments(append(append([]string{}, files...), debugArtifacts...))
	if err != nil {
		return err
	}

	return s.sendMessage(subject, body.String(), attachments)
}

func (s *Service) loadAttachments(files []string) ([]Attachment, error) {
	var attachments []Attachment
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		attachments = append(attachments, Attachment{
			Filename:    filepath.Base(path),
			ContentType: "application/octet-stream",
			Content:     data,
		})
		s.logger.Info().Str("file", filepath.Base(path)).Msg("📎 Attached")
	}
	return attachments, nil
}

func (s *Service) sendMessage(subject, body string, attachments []Attachment) error {
	if !s.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	msg, err := BuildMessage(s.cfg, subject, body, attachments)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	s.logger.Info().
		Str("to", s.cfg.To).
		Str("subject", subject).
		Int("attachments", len(attachments)).
		Msg("✉️ Sending email")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := s.send(addr, auth, fromAddress(s.cfg), s.cfg.To, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().Str("to", s.cfg.To).Msg("✅ Email sent")
	return nil
}

// BuildMessage assembles the MIME multipart message: one inline text
// part followed by one attachment part per file.
func BuildMessage(cfg common.SMTPConfig, subject, body string, attachments []Attachment) ([]byte, error) {
	var buf bytes.Buffer

	from := []*mail.Address{{Name: cfg.FromName, Address: fromAddress(cfg)}}
	to := []*mail.Address{{Address: cfg.To}}

	var header mail.Header
	header.SetDate(time.Now())
	header.SetAddressList("From", from)
	header.SetAddressList("To", to)
	header.SetSubject(subject)

	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, err
	}

	var textHeader mail.InlineHeader
	textHeader.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(tw, body); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		var attHeader mail.AttachmentHeader
		attHeader.SetContentType(att.ContentType, nil)
		attHeader.SetFilename(att.Filename)
		aw, err := mw.CreateAttachment(attHeader)
		if err != nil {
			return nil, err
		}
		if _, err := aw.Write(att.Content); err != nil {
			return nil, err
		}
		if err := aw.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fromAddress falls back to the SMTP username when no explicit From
// address is configured, matching how most providers expect it.
func fromAddress(cfg common.SMTPConfig) string {
	if cfg.From != "" {
		return cfg.From
	}
	return cfg.Username
}

// sendWithSTARTTLS delivers via plain SMTP upgraded with STARTTLS
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if s.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: host,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
