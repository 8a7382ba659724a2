package services

import (
	"context"
	"fmt"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"strings"

	"github.com/rs/zerolog/log"
)

const boundsPadding = 0.3

// SearchRequest asks for doctors around either Place or Origin. Origin wins when both are set.
type SearchRequest struct {
	Place     string             `json:"place,omitempty"`
	Origin    *models.Coordinate `json:"origin,omitempty"`
	Specialty string             `json:"specialty,omitempty"`
	RankBy    string             `json:"rank_by,omitempty"`
}

// Observer receives every state transition of a locator run.
type Observer func(models.Transition)

// Locator runs geocode -> tiered search -> specialty filter -> ranking.
type Locator struct {
	geocoder      Geocoder
	searcher      *DoctorSearcher
	ranker        *Ranker
	defaultRankBy RankBy
}

func NewLocator(geocoder Geocoder, searcher *DoctorSearcher, ranker *Ranker, defaultRankBy RankBy) *Locator {
	if defaultRankBy == "" {
		defaultRankBy = RankInsertion
	}
	return &Locator{
		geocoder:      geocoder,
		searcher:      searcher,
		ranker:        ranker,
		defaultRankBy: defaultRankBy,
	}
}

// Locate runs the whole flow. Validation errors come back before any upstream call with the result
// still idle; upstream failures leave the result in the failed state. An empty search across every
// tier is not an error: the result is done with a notice and no markers.
func (l *Locator) Locate(ctx context.Context, req SearchRequest, observe Observer) (models.SearchResult, error) {
	result := models.SearchResult{
		State:     models.StateIdle,
		Specialty: strings.TrimSpace(req.Specialty),
		Entries:   []models.DoctorEntry{},
		Top:       []models.DoctorEntry{},
		Markers:   []models.Marker{},
	}
	if result.Specialty == "" {
		result.Specialty = models.AllSpecialties
	}
	step := func(state models.SearchState, radius int) {
		t := models.Transition{State: state, Radius: radius}
		result.State = state
		result.Trace = append(result.Trace, t)
		if observe != nil {
			observe(t)
		}
	}
	step(models.StateIdle, 0)

	rankBy, err := ParseRankBy(req.RankBy, l.defaultRankBy)
	if err != nil {
		return result, err
	}
	result.RankBy = string(rankBy)

	var origin models.Coordinate
	switch {
	case req.Origin != nil:
		if !req.Origin.Valid() {
			return result, errors.ErrInvalidCoords
		}
		origin = *req.Origin
	case strings.TrimSpace(req.Place) == "":
		return result, errors.ErrEmptyPlace
	default:
		step(models.StateLocating, 0)
		origin, err = l.geocoder.Geocode(ctx, req.Place)
		if err != nil {
			step(models.StateFailed, 0)
			return result, err
		}
	}
	result.Origin = &origin

	tiered, err := l.searcher.FindCandidates(ctx, origin, func(radius int) {
		step(models.StateSearching, radius)
	})
	if err != nil {
		step(models.StateFailed, 0)
		return result, err
	}

	if len(tiered.Candidates) == 0 {
		result.Notices = append(result.Notices, l.searcher.EmptyNotice())
		step(models.StateDone, 0)
		return result, nil
	}
	result.RadiusUsed = tiered.RadiusUsed

	candidates, fellBack := FilterBySpecialty(tiered.Candidates, result.Specialty)
	if fellBack {
		result.FellBack = true
		result.Notices = append(result.Notices,
			fmt.Sprintf("No doctors with specialization %q in range. Showing all.", result.Specialty))
	}

	result.Entries = l.ranker.Rank(origin, candidates, rankBy)
	result.Top = l.ranker.Top(result.Entries)
	result.Markers = Markers(result.Entries)
	result.Bounds = PaddedBounds(result.Markers, boundsPadding)

	log.Info().
		Float64("lat", origin.Lat).
		Float64("lon", origin.Lon).
		Int("radius", tiered.RadiusUsed).
		Str("specialty", result.Specialty).
		Int("entries", len(result.Entries)).
		Msg("Doctor search finished")

	step(models.StateDone, 0)
	return result, nil
}
