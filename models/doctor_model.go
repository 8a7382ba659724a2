package models

// MarkerColor is the rating tier of a map marker.
type MarkerColor string

const (
	MarkerGreen  MarkerColor = "green"
	MarkerYellow MarkerColor = "yellow"
	MarkerRed    MarkerColor = "red"
)

// ColorForRating maps a display rating to its marker tier.
func ColorForRating(rating float64) MarkerColor {
	switch {
	case rating >= 4.5:
		return MarkerGreen
	case rating >= 4.0:
		return MarkerYellow
	default:
		return MarkerRed
	}
}

// DoctorEntry is a ranked, display-ready doctor.
type DoctorEntry struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Specialty  string     `json:"specialty"`
	Clinic     string     `json:"clinic"`
	Rating     float64    `json:"rating"`
	DistanceKm float64    `json:"distance_km"`
	Location   Coordinate `json:"location"`
}

// Marker is one map pin with its popup content.
type Marker struct {
	Location Coordinate  `json:"location"`
	Color    MarkerColor `json:"color"`
	Popup    DoctorEntry `json:"popup"`
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	SouthWest Coordinate `json:"south_west"`
	NorthEast Coordinate `json:"north_east"`
}

// View is the camera of a map surface.
type View struct {
	Center  Coordinate `json:"center"`
	Zoom    int        `json:"zoom"`
	Animate bool       `json:"animate"`
	// Duration of the fly-to transition in seconds, zero when not animated.
	Duration float64 `json:"duration,omitempty"`
}

// DefaultView centres on India at country zoom.
var DefaultView = View{Center: Coordinate{Lat: 20.5937, Lon: 78.9629}, Zoom: 5}

// SearchState is a step of the locator flow.
type SearchState string

const (
	StateIdle      SearchState = "idle"
	StateLocating  SearchState = "locating"
	StateSearching SearchState = "searching"
	StateDone      SearchState = "done"
	StateFailed    SearchState = "failed"
)

// Transition records a state change; Radius is set for searching states.
type Transition struct {
	State  SearchState `json:"state"`
	Radius int         `json:"radius,omitempty"`
}

// SearchResult is the outcome of one locator run.
type SearchResult struct {
	State      SearchState   `json:"state"`
	Origin     *Coordinate   `json:"origin,omitempty"`
	RadiusUsed int           `json:"radius_used,omitempty"`
	Specialty  string        `json:"specialty"`
	RankBy     string        `json:"rank_by"`
	FellBack   bool          `json:"fell_back"`
	Entries    []DoctorEntry `json:"entries"`
	Top        []DoctorEntry `json:"top"`
	Markers    []Marker      `json:"markers"`
	Bounds     *Bounds       `json:"bounds,omitempty"`
	Notices    []string      `json:"notices,omitempty"`
	Trace      []Transition  `json:"trace"`
}
