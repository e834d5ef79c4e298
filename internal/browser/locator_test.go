package browser

import (
	"testing"

	"github.com/tcftrading/reportfetch/internal/models"
)

func TestLocatorMatchesText(t *testing.T) {
	tests := []struct {
		name      string
		loc       Locator
		candidate string
		want      bool
	}{
		{"exact match", Locator{Text: "Select account", Exact: true}, "Select account", true},
		{"exact is case-insensitive", Locator{Text: "Select account", Exact: true}, "SELECT ACCOUNT", true},
		{"exact trims whitespace", Locator{Text: "Select account", Exact: true}, "  Select account \n", true},
		{"exact rejects superstring", Locator{Text: "Select account", Exact: true}, "Select account now", false},
		{"contains match", Locator{Text: "Request Report", Exact: false}, "  Request Report  ", true},
		{"contains inside longer label", Locator{Text: "Request Report", Exact: false}, "Request Report (monthly)", true},
		{"contains rejects different label", Locator{Text: "Request Report", Exact: false}, "Cancel Request", false},
		{"transaction option", Locator{Text: "transaction", Exact: true}, "Transaction", true},
		{"transaction rejects variant", Locator{Text: "transaction", Exact: true}, "Transactions", false},
		{"empty rule matches anything", Locator{}, "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.MatchesText(tt.candidate); got != tt.want {
				t.Errorf("MatchesText(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestLookupKnownElements(t *testing.T) {
	// Every element the workflows reference must be present in the table
	amazonElements := []Element{
		ElementEmailInput, ElementContinueButton, ElementPasswordInput,
		ElementSignInButton, ElementOTPInput, ElementOTPSubmit,
		ElementSwitcherAccounts, ElementSwitcherAccount, ElementSwitcherLabel,
		ElementConfirmAccount,
		ElementTutorialOverlay, ElementTutorialSkip, ElementTutorialClose,
		ElementFilterDropdown, ElementDropdownHeader, ElementDropdownOption,
		ElementMonthlyRadio, ElementRequestReport, ElementReportTable,
		ElementReportRow, ElementReportTypeCell, ElementReportActionCell,
		ElementTransactionOption, ElementDownloadAction, ElementRefreshAction,
	}
	for _, el := range amazonElements {
		loc := Lookup(models.SiteAmazon, el)
		if loc.Query == "" && loc.Text == "" {
			t.Errorf("amazon locator %s is empty", el)
		}
	}

	bolElements := []Element{
		ElementLoginUsername, ElementLoginPassword, ElementLoginSubmit,
		ElementFinanceTable, ElementInvoiceRow, ElementInvoicePeriod,
		ElementSpecificationLink, ElementRowMenuButton, ElementRowMenuOption,
		ElementDownloadSpec, ElementMenuTrigger, ElementMenuContent,
		ElementLogoutLink,
	}
	for _, el := range bolElements {
		loc := Lookup(models.SiteBol, el)
		if loc.Query == "" && loc.Text == "" {
			t.Errorf("bol locator %s is empty", el)
		}
	}
}

func TestLookupUnknownElementPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Lookup with unregistered element should panic")
		}
	}()
	Lookup(models.SiteAmazon, Element("no_such_element"))
}
