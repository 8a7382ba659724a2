package services

import (
	"context"
	"encoding/json"
	"fmt"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRadii are the search tiers in meters, smallest first.
var DefaultRadii = []int{5000, 10000, 20000}

// POISource runs a single radius query for doctors around a coordinate.
type POISource interface {
	DoctorsAround(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error)
}

var _ POISource = (*OverpassClient)(nil)

// OverpassClient queries an Overpass API interpreter endpoint.
type OverpassClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

func NewOverpassClient(endpoint, userAgent string, client *http.Client) *OverpassClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OverpassClient{endpoint: endpoint, userAgent: userAgent, client: client}
}

type overpassResponse struct {
	Elements []models.Candidate `json:"elements"`
}

// DoctorQuery renders the Overpass QL for healthcare=doctor nodes within radius meters.
func DoctorQuery(origin models.Coordinate, radiusMeters int) string {
	return fmt.Sprintf(`[out:json];node["healthcare"="doctor"](around:%d,%g,%g);out body;`, radiusMeters, origin.Lat, origin.Lon)
}

func (c *OverpassClient) DoctorsAround(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error) {
	form := url.Values{}
	form.Set("data", DoctorQuery(origin, radiusMeters))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	return payload.Elements, nil
}

// TieredResult is the outcome of a radius escalation. Candidates is empty when no tier matched.
type TieredResult struct {
	Candidates []models.Candidate
	RadiusUsed int
	Tried      []int
}

// DoctorSearcher escalates through the radius tiers one request at a time.
type DoctorSearcher struct {
	source POISource
	radii  []int
}

func NewDoctorSearcher(source POISource, radii []int) *DoctorSearcher {
	if len(radii) == 0 {
		radii = DefaultRadii
	}
	return &DoctorSearcher{source: source, radii: radii}
}

// Radii returns the configured tiers.
func (s *DoctorSearcher) Radii() []int {
	return s.radii
}

// FindCandidates stops at the first tier with at least one element. An upstream failure ends the
// escalation at once with ErrDoctorFetch; only an empty but successful reply moves to the next tier.
// onTier, if set, is called before each tier is queried.
func (s *DoctorSearcher) FindCandidates(ctx context.Context, origin models.Coordinate, onTier func(radius int)) (TieredResult, error) {
	var result TieredResult
	for _, radius := range s.radii {
		if onTier != nil {
			onTier(radius)
		}
		result.Tried = append(result.Tried, radius)

		docs, err := s.source.DoctorsAround(ctx, origin, radius)
		if err != nil {
			log.Warn().Err(err).Int("radius", radius).Msg("Doctor lookup failed")
			return result, errors.ErrDoctorFetch.WithCause(err)
		}
		log.Debug().Int("radius", radius).Int("count", len(docs)).Msg("Doctor lookup tier finished")

		if len(docs) > 0 {
			result.Candidates = docs
			result.RadiusUsed = radius
			return result, nil
		}
	}
	return result, nil
}

// EmptyNotice is the message shown when every tier came back empty.
func (s *DoctorSearcher) EmptyNotice() string {
	last := s.radii[len(s.radii)-1]
	return fmt.Sprintf("No doctors found within %s km.", formatKm(last))
}

func formatKm(meters int) string {
	if meters%1000 == 0 {
		return fmt.Sprintf("%d", meters/1000)
	}
	return fmt.Sprintf("%.1f", float64(meters)/1000)
}
