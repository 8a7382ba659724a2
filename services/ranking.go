package services

import (
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const earthRadiusKm = 6371.0

// RatingScale is the fixed set display ratings are drawn from.
var RatingScale = []float64{3.8, 4.0, 4.2, 4.5, 4.7, 4.9}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b models.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// FilterBySpecialty keeps candidates whose specialty label contains the selection, case-insensitively.
// Exactly "All" or an empty selection keeps everything; any other casing is an ordinary selection. When nothing matches, the input is returned unchanged
// and fellBack is true.
func FilterBySpecialty(candidates []models.Candidate, specialty string) (filtered []models.Candidate, fellBack bool) {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" || specialty == models.AllSpecialties {
		return candidates, false
	}

	needle := strings.ToLower(specialty)
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.SpecialtyLabel()), needle) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return candidates, true
	}
	return filtered, false
}

// RankBy selects the ordering of ranked entries.
type RankBy string

const (
	RankInsertion RankBy = "insertion"
	RankDistance  RankBy = "distance"
	RankRating    RankBy = "rating"
)

// ParseRankBy validates a rank mode; empty falls back to def.
func ParseRankBy(value string, def RankBy) (RankBy, error) {
	switch RankBy(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return def, nil
	case RankInsertion:
		return RankInsertion, nil
	case RankDistance:
		return RankDistance, nil
	case RankRating:
		return RankRating, nil
	}
	return "", errors.ErrInvalidRankBy
}

// RatingSource assigns a display rating to a candidate.
type RatingSource interface {
	Rating(c models.Candidate) float64
}

// RandomRatings draws uniformly from RatingScale on every call.
type RandomRatings struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomRatings uses rng when given, otherwise the global generator.
func NewRandomRatings(rng *rand.Rand) *RandomRatings {
	return &RandomRatings{rng: rng}
}

func (r *RandomRatings) Rating(models.Candidate) float64 {
	if r.rng == nil {
		return RatingScale[rand.IntN(len(RatingScale))]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return RatingScale[r.rng.IntN(len(RatingScale))]
}

// StableRatings maps a provider id to the same rating on every search.
type StableRatings struct{}

func (StableRatings) Rating(c models.Candidate) float64 {
	h := xxhash.Sum64String(strconv.FormatInt(c.ID, 10))
	return RatingScale[h%uint64(len(RatingScale))]
}

// NewRatingSource builds the rating source named by mode ("random" or "stable").
func NewRatingSource(mode string) RatingSource {
	if mode == "stable" {
		return StableRatings{}
	}
	return NewRandomRatings(nil)
}

// Ranker turns filtered candidates into display entries and markers.
type Ranker struct {
	ratings RatingSource
	topN    int
}

func NewRanker(ratings RatingSource, topN int) *Ranker {
	if ratings == nil {
		ratings = NewRandomRatings(nil)
	}
	if topN < 1 {
		topN = 5
	}
	return &Ranker{ratings: ratings, topN: topN}
}

// Rank builds one entry per candidate that has coordinates, ordered by mode. Insertion keeps the
// upstream order.
func (r *Ranker) Rank(origin models.Coordinate, candidates []models.Candidate, mode RankBy) []models.DoctorEntry {
	entries := make([]models.DoctorEntry, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasLocation() {
			continue
		}
		loc := c.Location()
		entries = append(entries, models.DoctorEntry{
			ID:         c.ID,
			Name:       c.DisplayName(),
			Specialty:  c.SpecialtyLabel(),
			Clinic:     c.ClinicLabel(),
			Rating:     r.ratings.Rating(c),
			DistanceKm: math.Round(Haversine(origin, loc)*10) / 10,
			Location:   loc,
		})
	}

	switch mode {
	case RankDistance:
		slices.SortStableFunc(entries, func(a, b models.DoctorEntry) int {
			return cmpFloat(a.DistanceKm, b.DistanceKm)
		})
	case RankRating:
		slices.SortStableFunc(entries, func(a, b models.DoctorEntry) int {
			return cmpFloat(b.Rating, a.Rating)
		})
	}
	return entries
}

// Top returns the first N entries of an already ordered list.
func (r *Ranker) Top(entries []models.DoctorEntry) []models.DoctorEntry {
	if len(entries) <= r.topN {
		return entries
	}
	return entries[:r.topN]
}

// Markers builds one marker per entry, colored by rating tier.
func Markers(entries []models.DoctorEntry) []models.Marker {
	markers := make([]models.Marker, 0, len(entries))
	for _, e := range entries {
		markers = append(markers, models.Marker{
			Location: e.Location,
			Color:    models.ColorForRating(e.Rating),
			Popup:    e,
		})
	}
	return markers
}

// PaddedBounds returns the bounding box of the markers grown by pad (a fraction) on every side.
func PaddedBounds(markers []models.Marker, pad float64) *models.Bounds {
	if len(markers) == 0 {
		return nil
	}
	sw := markers[0].Location
	ne := markers[0].Location
	for _, m := range markers[1:] {
		sw.Lat = math.Min(sw.Lat, m.Location.Lat)
		sw.Lon = math.Min(sw.Lon, m.Location.Lon)
		ne.Lat = math.Max(ne.Lat, m.Location.Lat)
		ne.Lon = math.Max(ne.Lon, m.Location.Lon)
	}
	dLat := (ne.Lat - sw.Lat) * pad
	dLon := (ne.Lon - sw.Lon) * pad
	return &models.Bounds{
		SouthWest: models.Coordinate{Lat: sw.Lat - dLat, Lon: sw.Lon - dLon},
		NorthEast: models.Coordinate{Lat: ne.Lat + dLat, Lon: ne.Lon + dLon},
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
