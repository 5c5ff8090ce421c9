// Package apikey implements the gateway's credential registry: it holds
// the secrets used to call upstream Korean public-data endpoints, tracks
// their expiry, and masks them wherever they might otherwise leak into
// logs (spec.md §4.C).
package apikey

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is a KeyRecord's lifecycle state. Transitions are monotonic:
// Active may move to Expired or Suspended, never back.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// farFutureExpiry is the sentinel used when no expiry is configured.
var farFutureExpiry = time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)

// secretFormat is the format every configured secret must match.
var secretFormat = regexp.MustCompile(`^[A-Za-z0-9%+/=]{20,}$`)

// Record is a single credential's lifecycle record. The secret is never
// mutated after construction; only Status and LastUsed change.
type Record struct {
	Secret    string
	Provider  string
	ExpiresAt time.Time
	Status    Status
	CreatedAt time.Time
	LastUsed  time.Time
}

// Stats summarizes the registry's current population.
type Stats struct {
	TotalKeys     int `json:"totalKeys"`
	ActiveKeys    int `json:"activeKeys"`
	ExpiredKeys   int `json:"expiredKeys"`
	ExpiringSoon  int `json:"expiringSoon"`
}

// daysUntil returns the whole number of days between now and t, negative
// if t is in the past.
func daysUntil(now, t time.Time) int {
	return int(t.Sub(now).Hours() / 24)
}

// ValidateFormat reports whether a raw secret conforms to the required
// shape (spec.md §4.C loading rules).
func ValidateFormat(secret string) bool {
	return secretFormat.MatchString(secret)
}

// Mask keeps the first four characters of a secret and replaces the rest
// with asterisks up to a bounded display length. Every log call site
// that might otherwise print a credential goes through this.
func Mask(secret string) string {
	const shown = 4
	const maxLen = 24

	if len(secret) <= shown {
		return strings.Repeat("*", len(secret))
	}

	visible := secret[:shown]
	maskedLen := len(secret) - shown
	if maskedLen > maxLen-shown {
		maskedLen = maxLen - shown
	}
	return visible + strings.Repeat("*", maskedLen)
}

// parseExpiry parses an ISO-8601 date, falling back to the far-future
// sentinel when the input is empty.
func parseExpiry(iso string) (time.Time, error) {
	if iso == "" {
		return farFutureExpiry, nil
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid expiry date %q: want ISO-8601", iso)
}
