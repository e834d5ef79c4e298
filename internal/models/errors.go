package models

import (
	"fmt"
)

// The workflow error taxonomy. Row-level and account-level occurrences are
// logged and swallowed by the loops that produce them; only top-level
// occurrences abort a site's run.

// AuthError indicates login, logout or session-detection failure
type AuthError struct {
	Site    string
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("%s: authentication failed for %s: %v", e.Site, e.Account, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Site, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NavigationError indicates an expected page or element never appeared
type NavigationError struct {
	Site    string
	Element string
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: %s did not appear: %v", e.Site, e.Element, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// FilterError indicates the report-configuration controls were not recognized
type FilterError struct {
	Site   string
	Detail string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: report filter configuration failed: %s", e.Site, e.Detail)
}

// DownloadError indicates no completed download event arrived within budget
type DownloadError struct {
	Site    string
	Account string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: download failed for %s: %v", e.Site, e.Account, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ParseError indicates an unrecognized period-text format
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot parse period %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("cannot parse period %q", e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError indicates an HTTP-layer failure in the REST variant
type TransportError struct {
	StatusCode int
	Endpoint   string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
