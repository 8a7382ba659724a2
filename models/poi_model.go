package models

import "strings"

const (
	DefaultSpecialty = "General Practitioner"
	DefaultClinic    = "Clinic"
	DefaultName      = "Unknown"
	AllSpecialties   = "All"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Candidate is a healthcare=doctor element returned by the Overpass API before filtering and ranking.
type Candidate struct {
	ID   int64    `json:"id"`
	Type string   `json:"type,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Tags POITags  `json:"tags"`
}

// POITags holds the OSM tags the locator reads.
type POITags struct {
	Name                string `json:"name,omitempty"`
	Specialty           string `json:"specialty,omitempty"`
	HealthcareSpecialty string `json:"healthcare:speciality,omitempty"`
}

// HasLocation reports whether the element carries both coordinates.
func (c Candidate) HasLocation() bool {
	return c.Lat != nil && c.Lon != nil
}

// Location returns the element coordinate. Callers check HasLocation first.
func (c Candidate) Location() Coordinate {
	return Coordinate{Lat: *c.Lat, Lon: *c.Lon}
}

// DisplayName returns the name tag or "Unknown".
func (c Candidate) DisplayName() string {
	if name := strings.TrimSpace(c.Tags.Name); name != "" {
		return name
	}
	return DefaultName
}

// SpecialtyLabel prefers the specialty tag, then healthcare:speciality, then General Practitioner.
func (c Candidate) SpecialtyLabel() string {
	if c.Tags.Specialty != "" {
		return c.Tags.Specialty
	}
	if c.Tags.HealthcareSpecialty != "" {
		return c.Tags.HealthcareSpecialty
	}
	return DefaultSpecialty
}

// ClinicLabel returns healthcare:speciality or "Clinic".
func (c Candidate) ClinicLabel() string {
	if c.Tags.HealthcareSpecialty != "" {
		return c.Tags.HealthcareSpecialty
	}
	return DefaultClinic
}

// Specializations lists the specialties offered to the user, "All" first.
var Specializations = []string{
	AllSpecialties,
	"General Practitioner",
	"Dermatologist",
	"Allergist",
	"Gastroenterologist",
	"Hepatologist",
	"Infectious Disease Specialist",
	"Endocrinologist",
	"Pulmonologist",
	"Cardiologist",
	"Neurologist",
	"Orthopedic",
	"Pediatrician",
	"Urologist",
	"Rheumatologist",
	"ENT",
	"Hematologist",
	"Proctologist",
	"Vascular Surgeon",
}
