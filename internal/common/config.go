package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment  string        `toml:"environment"`   // "development" or "production"
	DownloadsDir string        `toml:"downloads_dir"` // Cleared and recreated at the start of every run
	Schedule     string        `toml:"schedule"`      // Cron schedule for recurring runs (empty = run once and exit)
	Logging      LoggingConfig `toml:"logging"`
	Browser      BrowserConfig `toml:"browser"`
	Storage      StorageConfig `toml:"storage"`
	Amazon       AmazonConfig  `toml:"amazon"`
	Bol          BolConfig     `toml:"bol"`
	BolAPI       BolAPIConfig  `toml:"bol_api"`
	SMTP         SMTPConfig    `toml:"smtp"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// BrowserConfig controls the shared chromedp session and the patience
// budgets that replace the original's unbounded wait loops.
type BrowserConfig struct {
	Headless            bool   `toml:"headless"`
	Locale              string `toml:"locale"`                // Accept-Language sent with every request
	UserAgent           string `toml:"user_agent"`            // Empty = chromedp default
	NavTimeout          string `toml:"nav_timeout"`           // Per-navigation budget, e.g. "30s"
	SelectorTimeout     string `toml:"selector_timeout"`      // Per-selector wait budget, e.g. "5s"
	DownloadTimeout     string `toml:"download_timeout"`      // Wait budget for a completed download event
	PollInterval        string `toml:"poll_interval"`         // Delay between report-table scans
	PollMaxAttempts     int    `toml:"poll_max_attempts"`     // Report-table scans before giving up
	SwitcherDelay       string `toml:"switcher_delay"`        // Delay between account-list re-expansions
	SwitcherMaxAttempts int    `toml:"switcher_max_attempts"` // Re-expansions before giving up
	DebugDir            string `toml:"debug_dir"`             // Where failure screenshots/HTML dumps land
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the run ledger
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// AmazonConfig holds the seller-central workflow configuration.
// One credential set covers the parent organization; sub-accounts are
// discovered live from the account switcher.
type AmazonConfig struct {
	Enabled     bool   `toml:"enabled"`
	ReportsURL  string `toml:"reports_url"`
	SwitcherURL string `toml:"switcher_url"`
	Email       string `toml:"email"`
	Password    string `toml:"password"`
	TOTPSecret  string `toml:"totp_secret"`
	ParentGroup string `toml:"parent_group"` // Display name of the organization in the switcher
}

// BolConfig holds the partner-portal workflow configuration.
type BolConfig struct {
	Enabled     bool         `toml:"enabled"`
	FinancesURL string       `toml:"finances_url"`
	Accounts    []BolAccount `toml:"accounts"`
}

// BolAccount is one partner-portal login. The original script read up to
// four indexed credential triples from the environment; indexed env
// overrides are still honored (see applyEnvOverrides).
type BolAccount struct {
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// BolAPIConfig holds the token-based alternative to the browser workflow.
type BolAPIConfig struct {
	Enabled  bool            `toml:"enabled"`
	BaseURL  string          `toml:"base_url"`
	TokenURL string          `toml:"token_url"`
	Accounts []BolAPIAccount `toml:"accounts"`
}

type BolAPIAccount struct {
	Name         string `toml:"name"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	To       string `toml:"to"`
	UseTLS   bool   `toml:"use_tls"`
}

// NewDefaultConfig returns a Config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "production",
		DownloadsDir: "downloads",
		Schedule:     "",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Browser: BrowserConfig{
			Headless:            true,
			Locale:              "en-US",
			NavTimeout:          "30s",
			SelectorTimeout:     "5s",
			DownloadTimeout:     "60s",
			PollInterval:        "3s",
			PollMaxAttempts:     100,
			SwitcherDelay:       "1s",
			SwitcherMaxAttempts: 10,
			DebugDir:            ".",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "data/runlog",
				ResetOnStartup: false,
			},
		},
		Amazon: AmazonConfig{
			Enabled:     true,
			ReportsURL:  "https://sellercentral.amazon.com.be/payments/reports-repository",
			SwitcherURL: "https://sellercentral.amazon.com.be/account-switcher/default/merchantMarketplace",
			ParentGroup: "TCF Trading",
		},
		Bol: BolConfig{
			Enabled:     true,
			FinancesURL: "https://partner.bol.com/sdd/cashboard/finances",
		},
		BolAPI: BolAPIConfig{
			Enabled:  false,
			BaseURL:  "https://api.bol.com",
			TokenURL: "https://login.bol.com/token",
		},
		SMTP: SMTPConfig{
			Port:     587,
			FromName: "ReportFetch",
			UseTLS:   true,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Secrets are the usual reason to prefer the environment over the file.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REPORTFETCH_ENV"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("REPORTFETCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dir := os.Getenv("REPORTFETCH_DOWNLOADS_DIR"); dir != "" {
		config.DownloadsDir = dir
	}
	if schedule := os.Getenv("REPORTFETCH_SCHEDULE"); schedule != "" {
		config.Schedule = schedule
	}

	if email := os.Getenv("AMAZON_SELLER_EMAIL"); email != "" {
		config.Amazon.Email = email
	}
	if password := os.Getenv("AMAZON_SELLER_PASSWORD"); password != "" {
		config.Amazon.Password = password
	}
	if secret := os.Getenv("AMAZON_SELLER_TOTP_SECRET"); secret != "" {
		config.Amazon.TOTPSecret = secret
	}

	// Indexed partner-portal credentials, matching the original
	// BOL_USERNAME{i}/BOL_EMAIL_{i}/BOL_PASSWORD_{i} variables (i = 1..4).
	// A complete triple appends or overrides the account at that position.
	for i := 1; i <= 4; i++ {
		name := os.Getenv(fmt.Sprintf("BOL_USERNAME%d", i))
		email := os.Getenv(fmt.Sprintf("BOL_EMAIL_%d", i))
		password := os.Getenv(fmt.Sprintf("BOL_PASSWORD_%d", i))
		if name == "" || email == "" || password == "" {
			continue
		}
		account := BolAccount{Name: name, Email: email, Password: password}
		if idx := i - 1; idx < len(config.Bol.Accounts) {
			config.Bol.Accounts[idx] = account
		} else {
			config.Bol.Accounts = append(config.Bol.Accounts, account)
		}
	}

	if host := os.Getenv("SMTP_SERVER"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		config.SMTP.Username = user
		if config.SMTP.From == "" {
			config.SMTP.From = user
		}
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}
	if to := os.Getenv("MAIL_TO"); to != "" {
		config.SMTP.To = to
	}
}

// Validate checks the configuration for values the run cannot proceed without
func (c *Config) Validate() error {
	validate := validator.New()

	type runtimeChecks struct {
		DownloadsDir    string `validate:"required"`
		PollInterval    string `validate:"required"`
		PollMaxAttempts int    `validate:"gt=0"`
		SwitcherMax     int    `validate:"gt=0"`
	}
	checks := runtimeChecks{
		DownloadsDir:    c.DownloadsDir,
		PollInterval:    c.Browser.PollInterval,
		PollMaxAttempts: c.Browser.PollMaxAttempts,
		SwitcherMax:     c.Browser.SwitcherMaxAttempts,
	}
	if err := validate.Struct(checks); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Amazon.Enabled {
		if c.Amazon.Email == "" || c.Amazon.Password == "" || c.Amazon.TOTPSecret == "" {
			return fmt.Errorf("amazon workflow enabled but credentials are incomplete")
		}
	}
	if c.Bol.Enabled && len(c.Bol.Accounts) == 0 {
		return fmt.Errorf("bol workflow enabled but no accounts configured")
	}
	if c.BolAPI.Enabled && len(c.BolAPI.Accounts) == 0 {
		return fmt.Errorf("bol api workflow enabled but no accounts configured")
	}
	if c.SMTP.Host == "" || c.SMTP.Username == "" || c.SMTP.To == "" {
		return fmt.Errorf("smtp configuration incomplete: host, username and recipient are required")
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"nav_timeout", c.Browser.NavTimeout},
		{"selector_timeout", c.Browser.SelectorTimeout},
		{"download_timeout", c.Browser.DownloadTimeout},
		{"poll_interval", c.Browser.PollInterval},
		{"switcher_delay", c.Browser.SwitcherDelay},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}

	return nil
}

// Duration helpers. Validate guarantees these parse; the fallback covers
// callers that skipped validation (tests constructing partial configs).

func (b *BrowserConfig) GetNavTimeout() time.Duration {
	return parseDurationOr(b.NavTimeout, 30*time.Second)
}

func (b *BrowserConfig) GetSelectorTimeout() time.Duration {
	return parseDurationOr(b.SelectorTimeout, 5*time.Second)
}

func (b *BrowserConfig) GetDownloadTimeout() time.Duration {
	return parseDurationOr(b.DownloadTimeout, 60*time.Second)
}

func (b *BrowserConfig) GetPollInterval() time.Duration {
	return parseDurationOr(b.PollInterval, 3*time.Second)
}

func (b *BrowserConfig) GetSwitcherDelay() time.Duration {
	return parseDurationOr(b.SwitcherDelay, time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}
