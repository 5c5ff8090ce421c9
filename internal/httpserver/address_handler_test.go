package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joonake9644/koreagate/internal/apikey"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/ratelimit"
	"github.com/joonake9644/koreagate/internal/upstream"
)

func TestHandleAddressSearch_NotConfigured(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/address?keyword=teheran", nil)
	w := httptest.NewRecorder()
	s.handleAddressSearch(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleAddressSearch_KeywordTooShort(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/address?keyword=a", nil)
	w := httptest.NewRecorder()
	s.handleAddressSearch(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleAddressSearch_Success(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"roadAddress": "서울 강남구 테헤란로 1", "jibunAddress": "서울 강남구 역삼동 1", "zipCode": "06234", "longitude": 127.03, "latitude": 37.50},
			},
			"totalCount": 1,
		})
	}))
	defer upstreamSrv.Close()

	keys, err := apikey.Load(apikey.Config{
		Primary:   testPrimaryKey,
		Providers: map[string]string{"address": testPrimaryKey},
	}, testLogger())
	if err != nil {
		t.Fatalf("apikey.Load: %v", err)
	}

	limiter := ratelimit.New()
	c := cache.New(testLogger())
	addressClient := upstream.New(upstream.Config{
		BaseURL:        upstreamSrv.URL,
		Timeout:        5 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
		EnableCache:    true,
		APIKeyProvider: "address",
	}, keys, limiter, c, testLogger())

	s := newTestServer(t)
	s.Address = addressClient

	r := httptest.NewRequest(http.MethodGet, "/api/address?keyword=teheran&pageNo=1&numOfRows=10", nil)
	w := httptest.NewRecorder()
	s.handleAddressSearch(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var env APIEnvelope[OffsetPage[addressItem]]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data == nil || len(env.Data.Items) != 1 {
		t.Fatalf("Items = %v, want 1", env.Data)
	}
	if env.Data.Pagination.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", env.Data.Pagination.TotalCount)
	}
}
