package services

import (
	"context"
	"encoding/json"
	"fmt"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	geocodeCacheTTL      = 30 * 24 * time.Hour
	defaultLookupTimeout = 15 * time.Second
)

// Geocoder resolves a free-text place to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (models.Coordinate, error)
}

var _ Geocoder = (*NominatimGeocoder)(nil)

// NominatimGeocoder queries an OpenStreetMap Nominatim instance.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	cache     Cache
	limiter   *rate.Limiter
	group     singleflight.Group

	lookupTimeout time.Duration
}

// GeocoderOption configures a NominatimGeocoder.
type GeocoderOption func(*NominatimGeocoder)

// WithGeocoderCache enables caching of successful lookups.
func WithGeocoderCache(cache Cache) GeocoderOption {
	return func(g *NominatimGeocoder) {
		g.cache = cache
	}
}

// WithGeocoderRateLimit caps outgoing requests per second, burst 1.
func WithGeocoderRateLimit(rps float64) GeocoderOption {
	return func(g *NominatimGeocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithGeocoderHTTPClient overrides the HTTP client (used for tests).
func WithGeocoderHTTPClient(client *http.Client) GeocoderOption {
	return func(g *NominatimGeocoder) {
		g.client = client
	}
}

func NewNominatimGeocoder(baseURL, userAgent string, opts ...GeocoderOption) *NominatimGeocoder {
	g := &NominatimGeocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 10 * time.Second}
	}
	g.lookupTimeout = defaultLookupTimeout
	if g.client.Timeout > 0 {
		g.lookupTimeout = g.client.Timeout
	}
	return g
}

type nominatimMatch struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first Nominatim match for place.
func (g *NominatimGeocoder) Geocode(ctx context.Context, place string) (models.Coordinate, error) {
	trimmed := strings.TrimSpace(place)
	if trimmed == "" {
		return models.Coordinate{}, errors.ErrEmptyPlace
	}

	key := cacheKey("geo:nominatim", strings.ToLower(trimmed))
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, key); err == nil {
			var coord models.Coordinate
			if err := json.Unmarshal(cached, &coord); err == nil {
				return coord, nil
			}
		}
	}

	// The shared lookup outlives any single caller so one disconnect cannot fail the others.
	ch := g.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.lookupTimeout)
		defer cancel()

		coord, err := g.lookup(lookupCtx, trimmed)
		if err != nil {
			return models.Coordinate{}, err
		}
		g.store(lookupCtx, key, coord)
		return coord, nil
	})

	select {
	case <-ctx.Done():
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.Coordinate{}, res.Err
		}
		return res.Val.(models.Coordinate), nil
	}
}

func (g *NominatimGeocoder) store(ctx context.Context, key string, coord models.Coordinate) {
	if g.cache == nil {
		return
	}
	payload, err := json.Marshal(coord)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, payload, geocodeCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache geocode result")
	}
}

func (g *NominatimGeocoder) lookup(ctx context.Context, place string) (models.Coordinate, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(err)
		}
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", place)
	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(fmt.Errorf("nominatim returned status %d", resp.StatusCode))
	}

	var matches []nominatimMatch
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(fmt.Errorf("failed to decode nominatim response: %w", err))
	}
	if len(matches) == 0 {
		log.Debug().Str("place", place).Msg("Geocoder returned no matches")
		return models.Coordinate{}, errors.ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(matches[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(fmt.Errorf("invalid lat %q: %w", matches[0].Lat, err))
	}
	lon, err := strconv.ParseFloat(matches[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, errors.ErrGeocodeFailed.WithCause(fmt.Errorf("invalid lon %q: %w", matches[0].Lon, err))
	}

	log.Debug().Str("place", place).Float64("lat", lat).Float64("lon", lon).Msg("Geocoded place")
	return models.Coordinate{Lat: lat, Lon: lon}, nil
}
