package apikey

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/telemetry"
)

// primaryProvider is the provider name used when the caller doesn't ask
// for a specific one.
const primaryProvider = "primary"

// Config names every per-provider secret the registry can be loaded
// with. Empty fields are simply not registered.
type Config struct {
	Primary          string
	PrimaryExpiryISO string
	Providers        map[string]string // provider name -> secret
}

// Registry holds the credential records for this process's lifetime. It
// is read-mostly after construction: only LastUsed and Status mutate.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *slog.Logger
}

// Load constructs a Registry from configuration, validating the primary
// secret's format and defaulting its expiry to a far-future sentinel.
// A missing or malformed primary secret is a fatal ConfigurationError.
func Load(cfg Config, logger *slog.Logger) (*Registry, error) {
	if cfg.Primary == "" {
		return nil, apperrors.NewConfigurationError("no primary API key configured (PUBLIC_DATA_API_KEY)")
	}
	if !ValidateFormat(cfg.Primary) {
		return nil, apperrors.NewConfigurationError("primary API key does not match the required format")
	}

	expiry, err := parseExpiry(cfg.PrimaryExpiryISO)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigurationError, "parsing primary key expiry", err)
	}

	now := time.Now()
	r := &Registry{
		records: make(map[string]*Record),
		logger:  logger,
	}
	r.records[primaryProvider] = &Record{
		Secret:    cfg.Primary,
		Provider:  primaryProvider,
		ExpiresAt: expiry,
		Status:    StatusActive,
		CreatedAt: now,
		LastUsed:  time.Time{},
	}

	for provider, secret := range cfg.Providers {
		if secret == "" {
			continue
		}
		if !ValidateFormat(secret) {
			logger.Warn("skipping malformed provider API key", "provider", provider)
			continue
		}
		r.records[provider] = &Record{
			Secret:    secret,
			Provider:  provider,
			ExpiresAt: farFutureExpiry,
			Status:    StatusActive,
			CreatedAt: now,
		}
	}

	return r, nil
}

// Get returns the secret for provider, falling back to the primary
// secret when provider is unknown. Fails when the selected record is
// not active or has expired.
func (r *Registry) Get(provider string) (string, error) {
	if provider == "" {
		provider = primaryProvider
	}

	r.mu.RLock()
	rec, ok := r.records[provider]
	if !ok {
		rec, ok = r.records[primaryProvider]
	}
	r.mu.RUnlock()

	if !ok {
		return "", apperrors.NewAPIKeyError("no primary API key configured")
	}

	r.mu.Lock()
	if rec.Status != StatusActive {
		r.mu.Unlock()
		return "", apperrors.NewAPIKeyError(fmt.Sprintf("API key for provider %q is %s", rec.Provider, rec.Status))
	}
	if rec.ExpiresAt.Before(time.Now()) {
		rec.Status = StatusExpired
		r.mu.Unlock()
		return "", apperrors.NewAPIKeyError(fmt.Sprintf("API key for provider %q expired at %s", rec.Provider, rec.ExpiresAt))
	}
	rec.LastUsed = time.Now()
	secret := rec.Secret
	r.mu.Unlock()

	return secret, nil
}

// KeyInfo returns a copy of the record for provider, for inspection.
func (r *Registry) KeyInfo(provider string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[provider]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Stats summarizes the registry's population, classifying expiry bands.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var s Stats
	for _, rec := range r.records {
		s.TotalKeys++
		switch {
		case rec.Status == StatusExpired || rec.ExpiresAt.Before(now):
			s.ExpiredKeys++
		default:
			s.ActiveKeys++
		}
		days := daysUntil(now, rec.ExpiresAt)
		if days > 0 && days <= 30 {
			s.ExpiringSoon++
		}
	}
	telemetry.APIKeysExpiringSoon.Set(float64(s.ExpiringSoon))
	return s
}

// severityBand classifies a record's expiry urgency for CheckExpiry.
type severityBand string

const (
	bandExpired severityBand = "EXPIRED"
	bandUrgent  severityBand = "URGENT"
	bandWarning severityBand = "WARNING"
)

// CheckExpiry emits log records at three severity bands. It is purely
// advisory and never mutates registry state.
func (r *Registry) CheckExpiry() []ExpiryEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var events []ExpiryEvent
	for _, rec := range r.records {
		days := daysUntil(now, rec.ExpiresAt)

		var band severityBand
		switch {
		case days < 0:
			band = bandExpired
		case days <= 7:
			band = bandUrgent
		case days <= 30:
			band = bandWarning
		default:
			continue
		}

		ev := ExpiryEvent{
			Provider:  rec.Provider,
			Band:      band,
			DaysLeft:  days,
			ExpiresAt: rec.ExpiresAt,
		}
		events = append(events, ev)

		masked := Mask(rec.Secret)
		switch band {
		case bandExpired:
			r.logger.Error("api key expired", "provider", rec.Provider, "key", masked, "expiresAt", rec.ExpiresAt)
		case bandUrgent:
			r.logger.Warn("api key expiring urgently", "provider", rec.Provider, "key", masked, "daysLeft", days)
		case bandWarning:
			r.logger.Warn("api key expiring soon", "provider", rec.Provider, "key", masked, "daysLeft", days)
		}
	}
	return events
}

// ExpiryEvent describes one record's expiry classification, used by
// CheckExpiry's callers (the health aggregator and the Slack notifier).
type ExpiryEvent struct {
	Provider  string
	Band      severityBand
	DaysLeft  int
	ExpiresAt time.Time
}

// IsExpiredOrUrgent reports whether an event warrants operator paging.
func (e ExpiryEvent) IsExpiredOrUrgent() bool {
	return e.Band == bandExpired || e.Band == bandUrgent
}

func (e ExpiryEvent) String() string {
	return fmt.Sprintf("%s: provider=%s daysLeft=%d", e.Band, e.Provider, e.DaysLeft)
}
