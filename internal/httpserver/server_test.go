package httpserver

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joonake9644/koreagate/internal/apikey"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/config"
	"github.com/joonake9644/koreagate/internal/ratelimit"
)

const testPrimaryKey = "ABCDEFGHIJ0123456789abcd"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	keys, err := apikey.Load(apikey.Config{Primary: testPrimaryKey}, testLogger())
	if err != nil {
		t.Fatalf("apikey.Load: %v", err)
	}

	cfg := &config.Config{
		NodeEnv:                       "development",
		StrictKoreaBounds:             "true",
		HealthMemoryPctThreshold:      90,
		HealthBlockRatePctThreshold:   50,
		HealthSuccessRatePctThreshold: 70,
		MetricsPath:                   "/metrics",
	}

	reg := prometheus.NewRegistry()

	s := NewServer(cfg, testLogger(), reg, keys, ratelimit.New(), cache.New(testLogger()), nil)
	return s
}
