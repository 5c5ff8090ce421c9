// Package notify posts best-effort Slack alerts when an API key's
// expiry crosses the URGENT or EXPIRED band. It is a noop when no bot
// token is configured, matching the teacher's optional-integration
// pattern.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/joonake9644/koreagate/internal/apikey"
)

// Notifier posts API-key expiry alerts to one Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// New creates a Notifier. If botToken is empty, the notifier is a
// noop: every call logs at Debug and returns nil.
func New(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether this notifier has a live Slack client and
// a destination channel.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// NotifyExpiry posts one alert per urgent-or-expired event from a
// apikey.Registry.CheckExpiry() call. Events below the urgent band are
// not posted — they are already captured in the structured log.
func (n *Notifier) NotifyExpiry(ctx context.Context, events []apikey.ExpiryEvent) {
	for _, ev := range events {
		if !ev.IsExpiredOrUrgent() {
			continue
		}
		if err := n.postExpiryAlert(ctx, ev); err != nil {
			n.logger.Warn("failed to post expiry alert to slack", "provider", ev.Provider, "error", err)
		}
	}
}

func (n *Notifier) postExpiryAlert(ctx context.Context, ev apikey.ExpiryEvent) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping expiry alert", "provider", ev.Provider)
		return nil
	}

	text := fmt.Sprintf(":rotating_light: API key for provider *%s* %s", ev.Provider, expiryPhrase(ev))
	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting expiry alert: %w", err)
	}
	return nil
}

func expiryPhrase(ev apikey.ExpiryEvent) string {
	if ev.DaysLeft < 0 {
		return "has already expired"
	}
	return fmt.Sprintf("expires in %d day(s)", ev.DaysLeft)
}
