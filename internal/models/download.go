package models

import (
	"fmt"
	"strings"
)

// DownloadedFile is one artifact saved under the downloads directory.
// Attribution of a file to its account and period relies entirely on the
// filename convention; no separate manifest exists.
type DownloadedFile struct {
	Path    string
	Site    Site
	Account string
	Period  string // Optional period label, empty for period-less reports
}

// DownloadFilename builds the conventional filename
// "<Site> - <Account> - [<Period> -] <original filename>".
// Embedding site, account and period keeps names collision-free across
// accounts and periods within a run.
func DownloadFilename(site Site, account, period, original string) string {
	parts := []string{string(site), sanitizeFilenamePart(account)}
	if period != "" {
		parts = append(parts, sanitizeFilenamePart(period))
	}
	parts = append(parts, sanitizeFilenamePart(original))
	return strings.Join(parts, " - ")
}

// sanitizeFilenamePart strips path separators and the component separator
// so a hostile suggested filename cannot escape the downloads directory or
// forge another account's name.
func sanitizeFilenamePart(part string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " - ", " – ")
	cleaned := strings.TrimSpace(replacer.Replace(part))
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}

func (f DownloadedFile) String() string {
	return fmt.Sprintf("%s (%s/%s)", f.Path, f.Site, f.Account)
}
