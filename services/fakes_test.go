package services

import (
	"context"
	"healthcure-server/models"
	"sync"
	"time"
)

// memCache is an in-process Cache for tests. TTLs are ignored.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakeSource answers per radius and records which radii were asked for.
type fakeSource struct {
	mu      sync.Mutex
	byRange map[int][]models.Candidate
	errAt   map[int]error
	calls   []int
}

func (s *fakeSource) DoctorsAround(_ context.Context, _ models.Coordinate, radiusMeters int) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, radiusMeters)
	if err := s.errAt[radiusMeters]; err != nil {
		return nil, err
	}
	return s.byRange[radiusMeters], nil
}

func (s *fakeSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

type fakeGeocoder struct {
	coord models.Coordinate
	err   error
	calls int
}

func (g *fakeGeocoder) Geocode(_ context.Context, _ string) (models.Coordinate, error) {
	g.calls++
	return g.coord, g.err
}

// fixedRatings returns a preset rating per id, 4.0 otherwise.
type fixedRatings map[int64]float64

func (f fixedRatings) Rating(c models.Candidate) float64 {
	if r, ok := f[c.ID]; ok {
		return r
	}
	return 4.0
}

func doctor(id int64, lat, lon float64, name, specialty string) models.Candidate {
	return models.Candidate{
		ID:   id,
		Type: "node",
		Lat:  &lat,
		Lon:  &lon,
		Tags: models.POITags{Name: name, Specialty: specialty},
	}
}

func doctorsNear(origin models.Coordinate, n int) []models.Candidate {
	out := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		offset := float64(i+1) * 0.001
		out = append(out, doctor(int64(i+1), origin.Lat+offset, origin.Lon+offset, "", ""))
	}
	return out
}
