package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joonake9644/koreagate/internal/apperrors"
)

// Metadata is the `metadata` block of every APIEnvelope.
type Metadata struct {
	Timestamp      time.Time `json:"timestamp"`
	Cached         *bool     `json:"cached,omitempty"`
	ProcessingTime *int64    `json:"processingTime,omitempty"`
}

// ErrorInfo is the `error` block of a failed APIEnvelope.
type ErrorInfo struct {
	Code      apperrors.Code `json:"code"`
	Message   string         `json:"message"`
	Details   any            `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
}

// APIEnvelope is the uniform response container for every gateway
// endpoint. Exactly one of Data/Error is non-nil, and Success agrees
// with Data != nil.
type APIEnvelope[T any] struct {
	Success  bool       `json:"success"`
	Data     *T         `json:"data"`
	Error    *ErrorInfo `json:"error"`
	Metadata Metadata   `json:"metadata"`
}

// EnvelopeOption customises a successful envelope's metadata before it
// is written.
type EnvelopeOption func(*Metadata)

// WithCached marks the response as served from cache (or not).
func WithCached(cached bool) EnvelopeOption {
	return func(m *Metadata) { m.Cached = &cached }
}

// WithProcessingTime records how long the handler took to build the
// response, in milliseconds.
func WithProcessingTime(d time.Duration) EnvelopeOption {
	return func(m *Metadata) {
		ms := d.Milliseconds()
		m.ProcessingTime = &ms
	}
}

// Respond writes a successful APIEnvelope for data at the given HTTP
// status.
func Respond[T any](w http.ResponseWriter, logger *slog.Logger, status int, data T, opts ...EnvelopeOption) {
	meta := Metadata{Timestamp: time.Now().UTC()}
	for _, opt := range opts {
		opt(&meta)
	}

	env := APIEnvelope[T]{
		Success:  true,
		Data:     &data,
		Error:    nil,
		Metadata: meta,
	}

	writeJSON(w, logger, status, env)
}

// RespondError writes a failed APIEnvelope, classifying err into its
// taxonomy code and default HTTP status. Unrecognised errors become
// INTERNAL_SERVER_ERROR without leaking their message. Callers that
// deny admission must set Retry-After themselves (via SetRetryAfter)
// before calling RespondError, since only the caller knows the actual
// bucket reset time.
//
// When production is true and the classified code is INTERNAL_SERVER_ERROR
// (including any unrecognised error), details are elided and the message
// replaced with a generic phrase, per the gateway's NODE_ENV=production rule.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error, production bool) {
	appErr, ok := apperrors.As(err)
	if !ok {
		logger.Error("unclassified error reached the response layer", "error", err)
		appErr = apperrors.NewInternalServerError("an unexpected error occurred")
	}

	message := appErr.Message
	details := appErr.Details
	if production && appErr.Code == apperrors.InternalServerError {
		message = "an internal error occurred"
		details = nil
	}

	env := APIEnvelope[any]{
		Success: false,
		Data:    nil,
		Error: &ErrorInfo{
			Code:      appErr.Code,
			Message:   message,
			Details:   details,
			Retryable: appErr.Retryable,
		},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	}

	writeJSON(w, logger, appErr.HTTPStatus, env)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response envelope", "error", err)
	}
}

// SetRateLimitHeaders writes the X-RateLimit-* headers per the
// admission decision.
func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

// SetRetryAfter writes the Retry-After header, in seconds, for a denied
// admission or a retryable upstream failure.
func SetRetryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// SetCacheableHeader marks a successful response as publicly cacheable
// for ttl.
func SetCacheableHeader(w http.ResponseWriter, ttl time.Duration) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(ttl.Seconds())))
}

// SetNoCacheHeader marks a response as not to be cached by the client,
// used for cache misses the handler chose not to make cacheable and for
// the health endpoint.
func SetNoCacheHeader(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache")
}

// SetNoStoreHeader marks a response as never to be cached or stored,
// used by the health endpoint per its always-fresh requirement.
func SetNoStoreHeader(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
}
