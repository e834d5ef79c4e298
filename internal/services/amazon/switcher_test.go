package amazon

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

const switcherHTML = `
<html><body>
<div class="full-page-account-switcher-accounts">
  <div class="group">
    <div class="header"><button><span class="full-page-account-switcher-account-label">TCF Trading</span></button></div>
    <div class="full-page-account-switcher-accounts">
      <div class="full-page-account-switcher-account">
        <button><span class="full-page-account-switcher-account-label">Belgium (current)</span></button>
      </div>
      <div class="full-page-account-switcher-account">
        <button><span class="full-page-account-switcher-account-label">Netherlands</span></button>
      </div>
      <div class="full-page-account-switcher-account">
        <button><span class="full-page-account-switcher-account-label">France</span></button>
      </div>
    </div>
  </div>
</div>
</body></html>`

func TestParseSubAccounts(t *testing.T) {
	handles, err := parseSubAccounts(switcherHTML, "TCF Trading")
	require.NoError(t, err)
	require.Len(t, handles, 3)

	assert.Equal(t, models.AccountHandle{Index: 0, Name: "Belgium", Current: true}, handles[0])
	assert.Equal(t, models.AccountHandle{Index: 1, Name: "Netherlands", Current: false}, handles[1])
	assert.Equal(t, models.AccountHandle{Index: 2, Name: "France", Current: false}, handles[2])
}

func TestParseSubAccountsMissingGroup(t *testing.T) {
	_, err := parseSubAccounts(switcherHTML, "Other Org")
	require.Error(t, err)

	var navErr *models.NavigationError
	assert.True(t, errors.As(err, &navErr))
}

// collapsedSwitcherHTML shows the parent group header with its account
// list not yet rendered, the state the switcher comes back in after a
// workflow navigates away and returns.
const collapsedSwitcherHTML = `<html><body>
<div><div><div>
  <button><span class="full-page-account-switcher-account-label">TCF Trading</span></button>
</div></div></div>
</body></html>`

func TestParseSubAccountsCollapsedGroup(t *testing.T) {
	// The caller retries on an empty list, so this must return zero
	// handles without an error.
	handles, err := parseSubAccounts(collapsedSwitcherHTML, "TCF Trading")
	require.NoError(t, err)
	assert.Empty(t, handles)
}

// scriptedSwitcherPage renders the group collapsed until its header is
// clicked, the way the live switcher behaves.
type scriptedSwitcherPage struct {
	expanded      bool
	stuck         bool // never expand, regardless of clicks
	groupClicks   int
	accountClicks []string
}

func (p *scriptedSwitcherPage) PageHTML() (string, error) {
	if p.expanded {
		return switcherHTML, nil
	}
	return collapsedSwitcherHTML, nil
}

func (p *scriptedSwitcherPage) ClickByText(loc browser.Locator) (bool, error) {
	switch loc.Query {
	case browser.Lookup(models.SiteAmazon, browser.ElementSwitcherLabel).Query:
		p.groupClicks++
		if !p.stuck {
			p.expanded = true
		}
		return true, nil
	case browser.Lookup(models.SiteAmazon, browser.ElementSwitcherAccount).Query:
		if !p.expanded {
			return false, nil
		}
		p.accountClicks = append(p.accountClicks, loc.Text)
		return true, nil
	default:
		return true, nil
	}
}

func (p *scriptedSwitcherPage) WaitVisible(string) error          { return nil }
func (p *scriptedSwitcherPage) Exists(string, time.Duration) bool { return false }
func (p *scriptedSwitcherPage) Click(string) error                { return nil }
func (p *scriptedSwitcherPage) PressEscape() error                { return nil }
func (p *scriptedSwitcherPage) Sleep(time.Duration)               {}
func (p *scriptedSwitcherPage) CaptureFailure(string) []string    { return nil }

func testSwitcherWorkflow() *Workflow {
	return &Workflow{
		cfg: common.AmazonConfig{ParentGroup: "TCF Trading"},
		browser: common.BrowserConfig{
			SwitcherMaxAttempts: 3,
			SwitcherDelay:       "1ms",
		},
		logger: common.GetLogger(),
	}
}

func TestSelectAccountReExpandsCollapsedGroup(t *testing.T) {
	w := testSwitcherWorkflow()
	page := &scriptedSwitcherPage{}

	err := w.selectAccount(page, models.AccountHandle{Index: 1, Name: "Netherlands"})
	require.NoError(t, err)

	assert.Equal(t, 1, page.groupClicks, "collapsed group must be re-expanded before clicking")
	assert.Equal(t, []string{"Netherlands"}, page.accountClicks)
}

func TestSelectAccountGivesUpAfterExpansionBudget(t *testing.T) {
	w := testSwitcherWorkflow()
	page := &scriptedSwitcherPage{stuck: true}

	err := w.selectAccount(page, models.AccountHandle{Index: 0, Name: "Belgium"})
	require.Error(t, err)

	var navErr *models.NavigationError
	assert.True(t, errors.As(err, &navErr))
	assert.Equal(t, w.browser.SwitcherMaxAttempts, page.groupClicks)
	assert.Empty(t, page.accountClicks)
}

func TestListSubAccountsReturnsHandlesOnceExpanded(t *testing.T) {
	w := testSwitcherWorkflow()
	page := &scriptedSwitcherPage{}

	handles, err := w.listSubAccounts(page)
	require.NoError(t, err)
	require.Len(t, handles, 3)
	assert.Equal(t, 1, page.groupClicks)
}
