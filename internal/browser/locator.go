// -----------------------------------------------------------------------
// Locator table - every UI element both portals expose without a stable
// selector is matched here, by rendered text or embedded markup, so an
// upstream UI change means editing one table instead of scattered
// string literals in the workflows.
// -----------------------------------------------------------------------

package browser

import (
	"fmt"
	"strings"

	"github.com/tcftrading/reportfetch/internal/models"
)

// Element names a UI control a workflow needs to find
type Element string

const (
	// Amazon seller central
	ElementEmailInput        Element = "email_input"
	ElementContinueButton    Element = "continue_button"
	ElementPasswordInput     Element = "password_input"
	ElementSignInButton      Element = "sign_in_button"
	ElementOTPInput          Element = "otp_input"
	ElementOTPSubmit         Element = "otp_submit"
	ElementSwitcherAccounts  Element = "switcher_accounts"
	ElementSwitcherAccount   Element = "switcher_account"
	ElementSwitcherLabel     Element = "switcher_label"
	ElementConfirmAccount    Element = "confirm_account"
	ElementTutorialOverlay   Element = "tutorial_overlay"
	ElementTutorialSkip      Element = "tutorial_skip"
	ElementTutorialClose     Element = "tutorial_close"
	ElementFilterDropdown    Element = "filter_dropdown"
	ElementDropdownHeader    Element = "dropdown_header"
	ElementDropdownOption    Element = "dropdown_option"
	ElementMonthlyRadio      Element = "monthly_radio"
	ElementRequestReport     Element = "request_report"
	ElementReportTable       Element = "report_table"
	ElementReportRow         Element = "report_row"
	ElementReportTypeCell    Element = "report_type_cell"
	ElementReportActionCell  Element = "report_action_cell"
	ElementTransactionOption Element = "transaction_option"
	ElementDownloadAction    Element = "download_action"
	ElementRefreshAction     Element = "refresh_action"

	// Bol partner portal
	ElementLoginUsername     Element = "login_username"
	ElementLoginPassword     Element = "login_password"
	ElementLoginSubmit       Element = "login_submit"
	ElementFinanceTable      Element = "finance_table"
	ElementInvoiceRow        Element = "invoice_row"
	ElementInvoicePeriod     Element = "invoice_period"
	ElementSpecificationLink Element = "specification_link"
	ElementRowMenuButton     Element = "row_menu_button"
	ElementRowMenuOption     Element = "row_menu_option"
	ElementDownloadSpec      Element = "download_spec_option"
	ElementMenuTrigger       Element = "user_menu_trigger"
	ElementMenuContent       Element = "user_menu_content"
	ElementLogoutLink        Element = "logout_link"
)

// Locator describes how to find one element: a CSS query, optionally
// narrowed by a text or markup match. Exact selects whole-string equality
// instead of substring containment; matching is always case-insensitive
// and whitespace-trimmed, the way the portals render labels.
type Locator struct {
	Site  models.Site
	Query string
	Text  string
	Exact bool
}

var locatorTable = map[models.Site]map[Element]Locator{
	models.SiteAmazon: {
		ElementEmailInput:        {Query: `input[name="email"]`},
		ElementContinueButton:    {Query: `input#continue`},
		ElementPasswordInput:     {Query: `input[name="password"]`},
		ElementSignInButton:      {Query: `input#signInSubmit`},
		ElementOTPInput:          {Query: `input[name="otpCode"]`},
		ElementOTPSubmit:         {Query: `input#auth-signin-button`},
		ElementSwitcherAccounts:  {Query: `.full-page-account-switcher-accounts`},
		ElementSwitcherAccount:   {Query: `.full-page-account-switcher-account > button`},
		ElementSwitcherLabel:     {Query: `.full-page-account-switcher-account-label`},
		ElementConfirmAccount:    {Query: `button`, Text: "Select account", Exact: true},
		ElementTutorialOverlay:   {Query: `.react-joyride__tooltip`},
		ElementTutorialSkip:      {Query: `button[data-action="skip"]`},
		ElementTutorialClose:     {Query: `button[data-action="close"]`},
		ElementFilterDropdown:    {Query: `.kat-select-container`},
		ElementDropdownHeader:    {Query: `.select-header`},
		ElementDropdownOption:    {Query: `.standard-option-name`},
		ElementMonthlyRadio:      {Query: `input#katal-id-9`},
		ElementRequestReport:     {Query: `button`, Text: "Request Report"},
		ElementReportTable:       {Query: `kat-table`},
		ElementReportRow:         {Query: `kat-table-row`},
		ElementReportTypeCell:    {Query: `.header-cell-report-type`},
		ElementReportActionCell:  {Query: `.header-cell-report-action kat-button`},
		ElementTransactionOption: {Text: "transaction", Exact: true},
		ElementDownloadAction:    {Text: "download csv", Exact: true},
		ElementRefreshAction:     {Text: "refresh", Exact: true},
	},
	models.SiteBol: {
		ElementLoginUsername:     {Query: `input[name="j_username"]`},
		ElementLoginPassword:     {Query: `input[name="j_password"]`},
		ElementLoginSubmit:       {Query: `button[type="submit"]`},
		ElementFinanceTable:      {Query: `table`},
		ElementInvoiceRow:        {Query: `puik-list-row`},
		ElementInvoicePeriod:     {Query: `[data-test="span-invoice-with-period"]`},
		ElementSpecificationLink: {Query: `a[data-test="specification-link"]`},
		ElementRowMenuButton:     {Query: `.puik-more-options__button[data-test="puik-more-options__button"]`},
		ElementRowMenuOption:     {Query: `.puik-more-options__dropdown-option`},
		ElementDownloadSpec:      {Query: `.puik-more-options__dropdown-option`, Text: "Download specificatie"},
		ElementMenuTrigger:       {Query: `button[data-slot="navigation-menu-trigger"]`, Text: "M12 3C10.3431 3 9 4.34315"},
		ElementMenuContent:       {Query: `div[data-slot="navigation-menu-content"]`},
		ElementLogoutLink:        {Query: `a`, Text: "Uitloggen"},
	},
}

// Lookup returns the locator for an element on a site. A missing entry is
// a programming error, surfaced loudly rather than silently matching
// nothing.
func Lookup(site models.Site, element Element) Locator {
	if loc, ok := locatorTable[site][element]; ok {
		loc.Site = site
		return loc
	}
	panic(fmt.Sprintf("no locator registered for %s/%s", site, element))
}

// MatchesText applies a locator's text rule to a rendered candidate
func (l Locator) MatchesText(candidate string) bool {
	if l.Text == "" {
		return true
	}
	got := strings.ToLower(strings.TrimSpace(candidate))
	want := strings.ToLower(l.Text)
	if l.Exact {
		return got == want
	}
	return strings.Contains(got, want)
}

// ClickByText scans every element matching the locator's query and clicks
// the first whose rendered text (or inner markup, for icon matches)
// satisfies the text rule. Returns false when nothing matched.
func (s *Session) ClickByText(loc Locator) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const want = %q;
		const exact = %t;
		for (const el of document.querySelectorAll(%q)) {
			const text = (el.innerText || el.textContent || '').trim().toLowerCase();
			const markup = (el.innerHTML || '');
			const hit = exact ? text === want : (text.includes(want) || markup.includes(%q));
			if (hit) { el.click(); return true; }
		}
		return false;
	})()`, strings.ToLower(loc.Text), loc.Exact, loc.Query, loc.Text)

	var clicked bool
	if err := s.Evaluate(js, &clicked); err != nil {
		return false, fmt.Errorf("click by text %q on %q: %w", loc.Text, loc.Query, err)
	}
	return clicked, nil
}
