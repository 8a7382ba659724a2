package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []int{5000, 10000, 20000}, cfg.Locator.RadiiMeters)
	assert.Equal(t, 5, cfg.Locator.TopN)
	assert.Equal(t, "insertion", cfg.Locator.RankBy)
	assert.Equal(t, "random", cfg.Locator.RatingMode)
	assert.Equal(t, 30*time.Minute, cfg.Locator.SessionTTL)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Upstreams.NominatimURL)
	assert.Equal(t, 1.0, cfg.Upstreams.GeocoderRPS)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONGODB_ENABLED", "false")
	t.Setenv("SEARCH_RADII_M", "1000, 2000")
	t.Setenv("RANK_BY", "distance")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SESSION_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{1000, 2000}, cfg.Locator.RadiiMeters)
	assert.Equal(t, "distance", cfg.Locator.RankBy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Locator.SessionTTL)
}

func TestLoad_RejectsBadRadii(t *testing.T) {
	t.Setenv("MONGODB_ENABLED", "false")

	t.Setenv("SEARCH_RADII_M", "10000,5000")
	_, err := Load()
	assert.ErrorContains(t, err, "strictly increasing")

	t.Setenv("SEARCH_RADII_M", "5km")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid radius")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Upstreams: UpstreamConfig{GeocoderRPS: 1},
			Locator: LocatorConfig{
				RadiiMeters: []int{5000, 10000, 20000},
				TopN:        5,
				RankBy:      "insertion",
				RatingMode:  "random",
			},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Locator.TopN = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Locator.RankBy = "popularity"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Locator.RatingMode = "real"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Mongo.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}
