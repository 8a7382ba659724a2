package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorForRating(t *testing.T) {
	assert.Equal(t, MarkerGreen, ColorForRating(4.9))
	assert.Equal(t, MarkerGreen, ColorForRating(4.5))
	assert.Equal(t, MarkerYellow, ColorForRating(4.2))
	assert.Equal(t, MarkerYellow, ColorForRating(4.0))
	assert.Equal(t, MarkerRed, ColorForRating(3.8))
}

func TestCoordinateValid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 90, Lon: -180}.Valid())
	assert.False(t, Coordinate{Lat: 90.1, Lon: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lon: 180.5}.Valid())
}

func TestCandidateLabels(t *testing.T) {
	c := Candidate{Tags: POITags{Specialty: "ENT", HealthcareSpecialty: "otolaryngology"}}
	assert.False(t, c.HasLocation())
	assert.Equal(t, DefaultName, c.DisplayName())
	assert.Equal(t, "ENT", c.SpecialtyLabel())
	assert.Equal(t, "otolaryngology", c.ClinicLabel())

	var empty Candidate
	assert.Equal(t, DefaultSpecialty, empty.SpecialtyLabel())
	assert.Equal(t, DefaultClinic, empty.ClinicLabel())
}
