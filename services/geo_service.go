package services

import (
	"context"
	"encoding/json"
	"fmt"
	"healthcure-server/models"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultPOICacheTTL = 10 * time.Minute

var _ POISource = (*CachedPOISource)(nil)

// CachedPOISource remembers tier replies for a short while so repeated searches around the same
// spot do not hit Overpass again. Failures are never cached.
type CachedPOISource struct {
	source POISource
	cache  Cache
	ttl    time.Duration
}

func NewCachedPOISource(source POISource, cache Cache, ttl time.Duration) *CachedPOISource {
	if ttl <= 0 {
		ttl = defaultPOICacheTTL
	}
	return &CachedPOISource{source: source, cache: cache, ttl: ttl}
}

// poiCacheKey rounds the origin to about 11 m so near-identical requests share an entry.
func poiCacheKey(origin models.Coordinate, radiusMeters int) string {
	return cacheKey("pois:doctors", fmt.Sprintf("%d:%.4f:%.4f", radiusMeters, origin.Lat, origin.Lon))
}

func (c *CachedPOISource) DoctorsAround(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error) {
	key := poiCacheKey(origin, radiusMeters)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var docs []models.Candidate
		if err := json.Unmarshal(cached, &docs); err == nil {
			log.Debug().Int("radius", radiusMeters).Int("count", len(docs)).Msg("Doctor tier served from cache")
			return docs, nil
		}
	}

	docs, err := c.source.DoctorsAround(ctx, origin, radiusMeters)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(docs); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache doctor tier")
		}
	}
	return docs, nil
}
