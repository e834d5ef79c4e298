package bol

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcftrading/reportfetch/internal/browser"
	"github.com/tcftrading/reportfetch/internal/common"
	"github.com/tcftrading/reportfetch/internal/models"
)

// scriptedLoginPage simulates the portal around the login flow. When
// loggedIn is set the finance table is rendered from the start, as it
// is when a previous account's session is still live.
type scriptedLoginPage struct {
	loggedIn bool
	navs     []string
	fills    map[string]string
	clicks   []string
	captures []string
}

func (p *scriptedLoginPage) Navigate(url string) error {
	p.navs = append(p.navs, url)
	return nil
}

func (p *scriptedLoginPage) Exists(sel string, _ time.Duration) bool {
	tableSel := browser.Lookup(models.SiteBol, browser.ElementFinanceTable).Query
	return sel == tableSel && p.loggedIn
}

func (p *scriptedLoginPage) Fill(sel, value string) error {
	if p.fills == nil {
		p.fills = map[string]string{}
	}
	p.fills[sel] = value
	return nil
}

func (p *scriptedLoginPage) Click(sel string) error {
	p.clicks = append(p.clicks, sel)
	// Submitting the credentials establishes the session
	if sel == browser.Lookup(models.SiteBol, browser.ElementLoginSubmit).Query {
		p.loggedIn = true
	}
	return nil
}

func (p *scriptedLoginPage) CaptureFailure(name string) []string {
	p.captures = append(p.captures, name)
	return nil
}

func testLoginWorkflow() (*Workflow, common.BolAccount) {
	w := &Workflow{
		cfg:     common.BolConfig{FinancesURL: "https://portal.example/finances"},
		browser: common.BrowserConfig{SelectorTimeout: "10ms"},
		logger:  common.GetLogger(),
	}
	account := common.BolAccount{
		Name:     "Account1",
		Email:    "seller@example.com",
		Password: "secret",
	}
	return w, account
}

func TestLoginSkipsCredentialsWhenSessionLive(t *testing.T) {
	w, account := testLoginWorkflow()
	page := &scriptedLoginPage{loggedIn: true}

	err := w.loginIfNeeded(page, account)
	require.NoError(t, err)

	assert.Equal(t, []string{w.cfg.FinancesURL}, page.navs)
	assert.Empty(t, page.fills, "credential fields must not be touched on a live session")
	assert.Empty(t, page.clicks)
}

func TestLoginSubmitsCredentialsWhenLoggedOut(t *testing.T) {
	w, account := testLoginWorkflow()
	page := &scriptedLoginPage{}

	err := w.loginIfNeeded(page, account)
	require.NoError(t, err)

	userSel := browser.Lookup(models.SiteBol, browser.ElementLoginUsername).Query
	passSel := browser.Lookup(models.SiteBol, browser.ElementLoginPassword).Query
	assert.Equal(t, account.Email, page.fills[userSel])
	assert.Equal(t, account.Password, page.fills[passSel])
	assert.Equal(t, []string{browser.Lookup(models.SiteBol, browser.ElementLoginSubmit).Query}, page.clicks)
}

// failingLoginPage accepts credentials but never renders the finance
// table, the observable shape of a rejected login.
type failingLoginPage struct {
	scriptedLoginPage
}

func (p *failingLoginPage) Click(sel string) error {
	p.clicks = append(p.clicks, sel)
	return nil
}

func TestLoginFailureIsAuthError(t *testing.T) {
	w, account := testLoginWorkflow()
	page := &failingLoginPage{}

	err := w.loginIfNeeded(page, account)
	require.Error(t, err)

	var authErr *models.AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, []string{"login_failed_Account1"}, page.captures)
}
