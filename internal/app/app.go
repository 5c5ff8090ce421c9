package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joonake9644/koreagate/internal/apikey"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/config"
	"github.com/joonake9644/koreagate/internal/httpserver"
	"github.com/joonake9644/koreagate/internal/notify"
	"github.com/joonake9644/koreagate/internal/ratelimit"
	"github.com/joonake9644/koreagate/internal/telemetry"
	"github.com/joonake9644/koreagate/internal/upstream"
)

// Run reads configuration, wires every collaborator, and serves the
// gateway's HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting koreagate", "listen", cfg.ListenAddr())

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	keys, err := apikey.Load(apikey.Config{
		Primary:          cfg.PrimaryAPIKey,
		PrimaryExpiryISO: cfg.PrimaryKeyExpiry,
		Providers: map[string]string{
			"address":    cfg.AddressAPIKey,
			"business":   cfg.BusinessAPIKey,
			"apartment":  cfg.ApartmentAPIKey,
			"realestate": cfg.RealEstateAPIKey,
			"building":   cfg.BuildingAPIKey,
			"subway":     cfg.SubwayAPIKey,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("loading API key registry: %w", err)
	}

	limiter := ratelimit.New()
	c := cache.New(logger)

	upstreamTimeout, err := time.ParseDuration(cfg.UpstreamTimeout)
	if err != nil {
		return fmt.Errorf("parsing UPSTREAM_TIMEOUT %q: %w", cfg.UpstreamTimeout, err)
	}
	retryDelay, err := time.ParseDuration(cfg.UpstreamRetryDelay)
	if err != nil {
		return fmt.Errorf("parsing UPSTREAM_RETRY_DELAY %q: %w", cfg.UpstreamRetryDelay, err)
	}

	var addressClient *upstream.Client
	if cfg.AddressAPIKey != "" {
		addressClient = upstream.New(upstream.Config{
			BaseURL:         cfg.UpstreamBaseURL,
			Timeout:         upstreamTimeout,
			MaxRetries:      cfg.UpstreamMaxRetries,
			RetryBaseDelay:  retryDelay,
			EnableCache:     cfg.UpstreamEnableCache,
			EnableRateLimit: cfg.UpstreamEnableRateLimit,
			APIKeyProvider:  "address",
		}, keys, limiter, c, logger)
	} else {
		logger.Info("address search disabled (PUBLIC_DATA_ADDRESS_API_KEY not set)")
	}

	notifier := notify.New(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if notifier.IsEnabled() {
		logger.Info("key-expiry slack alerts enabled", "channel", cfg.SlackAlertChannel)
	} else {
		logger.Info("key-expiry slack alerts disabled (SLACK_BOT_TOKEN not set)")
	}

	stop := make(chan struct{})
	limiter.RunHousekeeping(stop)
	go runExpiryWatch(ctx, keys, notifier, logger)

	srv := httpserver.NewServer(cfg, logger, metricsReg, keys, limiter, c, addressClient)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		close(stop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		close(stop)
		return err
	}
}

// runExpiryWatch checks API key expiry every six hours and forwards
// urgent-or-expired events to the Slack notifier.
func runExpiryWatch(ctx context.Context, keys *apikey.Registry, notifier *notify.Notifier, logger *slog.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	check := func() {
		events := keys.CheckExpiry()
		notifier.NotifyExpiry(ctx, events)
	}
	check()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}
