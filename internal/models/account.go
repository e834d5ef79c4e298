package models

// Site identifies one of the report sources. The value doubles as the
// first component of the download filename convention.
type Site string

const (
	SiteAmazon Site = "Amazon"
	SiteBol    Site = "Bol.com"
)

// Account is one credential set for one site. Accounts are read from
// configuration at startup and passed explicitly into each workflow; no
// workflow reads credentials from the ambient environment.
type Account struct {
	Site       Site
	Name       string // Display name, also used in download filenames
	Email      string
	Password   string
	TOTPSecret string // Shared secret for time-based one-time codes (Amazon)

	// REST variant credentials (client-credentials grant)
	ClientID     string
	ClientSecret string
}

// AccountHandle is an entry discovered in the marketplace account switcher.
// Index is the position among the parent group's sub-account buttons;
// Current marks the entry labeled as the already-active account.
type AccountHandle struct {
	Index   int
	Name    string
	Current bool
}
