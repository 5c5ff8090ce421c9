package httpserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/coordinate"
	"github.com/joonake9644/koreagate/internal/ratelimit"
)

// addressSearchEndpoint is the upstream road-name address search path.
const addressSearchEndpoint = "1611000/nsdi/eicbg/AddressService/getAddress"

// addressItem is one upstream search result.
type addressItem struct {
	RoadAddress  string  `json:"roadAddress"`
	JibunAddress string  `json:"jibunAddress"`
	ZipCode      string  `json:"zipCode"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
}

// addressUpstreamPayload is the shape of the upstream's decoded body.
type addressUpstreamPayload struct {
	Items      []addressItem `json:"items"`
	TotalCount int           `json:"totalCount"`
}

// decodeInto round-trips data (as decoded by upstream.Client into an
// untyped any) through JSON into dst, giving handlers a typed view of
// the upstream's payload without needing a second decode path.
func decodeInto(data any, dst any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// handleAddressSearch looks up road-name addresses by keyword, optionally
// converting each result's coordinates to a requested target system.
// Authenticated tier: read-only, cacheable per keyword+page.
func (s *Server) handleAddressSearch(w http.ResponseWriter, r *http.Request) {
	if !s.checkRateLimit(w, clientIdentifier(r), ratelimit.TierAuthenticated) {
		return
	}

	if s.Address == nil {
		RespondError(w, s.Logger, apperrors.NewConfigurationError("address search is not configured"), s.Config.IsProduction())
		return
	}

	keyword := r.URL.Query().Get("keyword")
	if utf8.RuneCountInString(keyword) < 2 {
		s.respondValidation(w, "'keyword' must be at least 2 characters")
		return
	}

	params, err := ParseOffsetParams(r)
	if err != nil {
		s.respondValidation(w, err.Error())
		return
	}

	convert := false
	if v := r.URL.Query().Get("convertCoordinate"); v != "" {
		convert, err = strconv.ParseBool(v)
		if err != nil {
			s.respondValidation(w, "'convertCoordinate' must be a boolean")
			return
		}
	}

	targetSystem := coordinate.WGS84
	if v := r.URL.Query().Get("targetSystem"); v != "" {
		targetSystem = coordinate.System(v)
	}

	upstreamParams := url.Values{}
	upstreamParams.Set("keyword", keyword)
	upstreamParams.Set("pageNo", strconv.Itoa(params.PageNo))
	upstreamParams.Set("numOfRows", strconv.Itoa(params.NumOfRows))

	env, err := s.Address.GetCached(r.Context(), cache.TypeAddress, addressSearchEndpoint, upstreamParams)
	if err != nil {
		RespondError(w, s.Logger, err, s.Config.IsProduction())
		return
	}

	var payload addressUpstreamPayload
	if err := decodeInto(env.Data, &payload); err != nil {
		RespondError(w, s.Logger, apperrors.Wrap(apperrors.ExternalAPIError, "decoding address search payload", err), s.Config.IsProduction())
		return
	}

	if convert && targetSystem != coordinate.WGS84 {
		for i, item := range payload.Items {
			p, err := coordinate.Transform(coordinate.Point{X: item.Longitude, Y: item.Latitude}, coordinate.WGS84, targetSystem)
			if err != nil {
				RespondError(w, s.Logger, apperrors.NewCoordinateError(err.Error()), s.Config.IsProduction())
				return
			}
			payload.Items[i].Longitude = p.X
			payload.Items[i].Latitude = p.Y
		}
	}

	page := NewOffsetPage(payload.Items, params, payload.TotalCount)
	SetCacheableHeader(w, cache.TTLFor(cache.TypeAddress))
	Respond(w, s.Logger, http.StatusOK, page, WithCached(env.Cached))
}
