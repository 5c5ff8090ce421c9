package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/coordinate"
	"github.com/joonake9644/koreagate/internal/ratelimit"
)

// transformResponseData is the `data` block of a single-point transform.
type transformResponseData struct {
	Input       coordinate.Point  `json:"input"`
	Transformed coordinate.Point  `json:"transformed"`
	From        coordinate.System `json:"from"`
	To          coordinate.System `json:"to"`
	Accuracy    string            `json:"accuracy"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// handleCoordinateTransformGET transforms a single point given as query
// parameters. Anonymous tier: read-only, cacheable, idempotent.
func (s *Server) handleCoordinateTransformGET(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.checkRateLimit(w, clientIdentifier(r), ratelimit.TierAnonymous) {
		return
	}

	q := r.URL.Query()
	from := coordinate.System(q.Get("from"))
	to := coordinate.System(q.Get("to"))
	if to == "" {
		to = coordinate.WGS84
	}
	if from == "" {
		s.respondValidation(w, "'from' is required")
		return
	}

	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		s.respondValidation(w, "'x' must be a number")
		return
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		s.respondValidation(w, "'y' must be a number")
		return
	}

	point := coordinate.Point{X: x, Y: y}
	cacheKey := fmt.Sprintf("%s:%s:%v:%v", from, to, x, y)

	if cached := s.Cache.Get(cache.TypeCoordinate, cacheKey); cached.Hit {
		data := cached.Value.(transformResponseData)
		SetCacheableHeader(w, cache.TTLFor(cache.TypeCoordinate))
		Respond(w, s.Logger, http.StatusOK, data,
			WithCached(true),
			WithProcessingTime(time.Since(start)),
		)
		return
	}

	meta, err := coordinate.TransformWithMetadata(point, from, to)
	if err != nil {
		RespondError(w, s.Logger, apperrors.NewCoordinateError(err.Error()), s.Config.IsProduction())
		return
	}

	data := transformResponseData{
		Input:       meta.Input.Point,
		Transformed: meta.Output.Point,
		From:        from,
		To:          to,
		Accuracy:    meta.Accuracy,
	}
	if s.Config.KoreaBoundsEnforced() {
		if res := coordinate.ValidatePoint(point, from); len(res.Warnings) > 0 {
			data.Warnings = res.Warnings
		}
	}

	s.Cache.Set(cache.TypeCoordinate, cacheKey, data)
	SetCacheableHeader(w, cache.TTLFor(cache.TypeCoordinate))
	Respond(w, s.Logger, http.StatusOK, data,
		WithCached(false),
		WithProcessingTime(time.Since(start)),
	)
}

// transformPointInput is one element of a batch transform request body;
// callers may supply either {x,y} or {longitude,latitude}.
type transformPointInput struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

func (p transformPointInput) toPoint() (coordinate.Point, error) {
	if p.X != nil && p.Y != nil {
		return coordinate.Point{X: *p.X, Y: *p.Y}, nil
	}
	if p.Longitude != nil && p.Latitude != nil {
		return coordinate.Point{X: *p.Longitude, Y: *p.Latitude}, nil
	}
	return coordinate.Point{}, fmt.Errorf("each point requires either {x,y} or {longitude,latitude}")
}

// transformBatchRequest is the POST /api/coordinate/transform body.
type transformBatchRequest struct {
	From   coordinate.System     `json:"from" validate:"required"`
	To     coordinate.System     `json:"to" validate:"required"`
	Points []transformPointInput `json:"points" validate:"required,min=1,max=100"`
}

// batchTransformResponseData is the `data` block of a batch transform.
type batchTransformResponseData struct {
	Count       int                `json:"count"`
	Transformed []coordinate.Point `json:"transformed"`
}

// handleCoordinateTransformPOST transforms up to 100 points in one call.
// Authenticated tier: bulk operation, not cached (each batch is unique).
func (s *Server) handleCoordinateTransformPOST(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.checkRateLimit(w, clientIdentifier(r), ratelimit.TierAuthenticated) {
		return
	}

	var req transformBatchRequest
	if !DecodeAndValidate(w, s.Logger, r, &req) {
		return
	}

	points := make([]coordinate.Point, len(req.Points))
	for i, in := range req.Points {
		p, err := in.toPoint()
		if err != nil {
			s.respondValidation(w, fmt.Sprintf("points[%d]: %s", i, err.Error()))
			return
		}
		points[i] = p
	}

	transformed, err := coordinate.TransformBatch(points, req.From, req.To)
	if err != nil {
		RespondError(w, s.Logger, apperrors.NewCoordinateError(err.Error()), s.Config.IsProduction())
		return
	}

	SetNoCacheHeader(w)
	Respond(w, s.Logger, http.StatusOK, batchTransformResponseData{
		Count:       len(transformed),
		Transformed: transformed,
	}, WithProcessingTime(time.Since(start)))
}
