// Package domain provides domain models for the application
package domain

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// DiameterRange is an estimated diameter interval in a single unit
type DiameterRange struct {
	Min float64 `json:"estimated_diameter_min"`
	Max float64 `json:"estimated_diameter_max"`
}

// EstimatedDiameter holds diameter estimates keyed by unit
type EstimatedDiameter struct {
	Kilometers DiameterRange `json:"kilometers"`
	Meters     DiameterRange `json:"meters"`
	Miles      DiameterRange `json:"miles"`
	Feet       DiameterRange `json:"feet"`
}

// RelativeVelocity is the velocity of a close approach in several units.
// NeoWs reports these as decimal strings.
type RelativeVelocity struct {
	KilometersPerSecond string `json:"kilometers_per_second"`
	KilometersPerHour   string `json:"kilometers_per_hour"`
	MilesPerHour        string `json:"miles_per_hour"`
}

// MissDistance is the closest distance of an approach in several units
type MissDistance struct {
	Astronomical string `json:"astronomical"`
	Lunar        string `json:"lunar"`
	Kilometers   string `json:"kilometers"`
	Miles        string `json:"miles"`
}

// CloseApproach represents a single recorded or predicted close approach
type CloseApproach struct {
	CloseApproachDate      string           `json:"close_approach_date"`
	CloseApproachDateFull  string           `json:"close_approach_date_full,omitempty"`
	EpochDateCloseApproach int64            `json:"epoch_date_close_approach"`
	RelativeVelocity       RelativeVelocity `json:"relative_velocity"`
	MissDistance           MissDistance     `json:"miss_distance"`
	OrbitingBody           string           `json:"orbiting_body"`
}

// LunarDistance parses the miss distance in lunar distances
func (a CloseApproach) LunarDistance() (float64, bool) {
	return parseDecimal(a.MissDistance.Lunar)
}

// VelocityKmPerSec parses the relative velocity in km/s
func (a CloseApproach) VelocityKmPerSec() (float64, bool) {
	return parseDecimal(a.RelativeVelocity.KilometersPerSecond)
}

// OrbitClass describes the orbit family of an object
type OrbitClass struct {
	Type        string `json:"orbit_class_type"`
	Description string `json:"orbit_class_description,omitempty"`
	Range       string `json:"orbit_class_range,omitempty"`
}

// OrbitalData holds the upstream orbit solution. Values are kept as the
// upstream strings since NeoWs does not guarantee numeric formatting.
type OrbitalData struct {
	OrbitID                   string      `json:"orbit_id,omitempty"`
	OrbitDeterminationDate    string      `json:"orbit_determination_date,omitempty"`
	FirstObservationDate      string      `json:"first_observation_date,omitempty"`
	LastObservationDate       string      `json:"last_observation_date,omitempty"`
	DataArcInDays             int         `json:"data_arc_in_days,omitempty"`
	ObservationsUsed          int         `json:"observations_used,omitempty"`
	OrbitUncertainty          string      `json:"orbit_uncertainty,omitempty"`
	MinimumOrbitIntersection  string      `json:"minimum_orbit_intersection,omitempty"`
	JupiterTisserandInvariant string      `json:"jupiter_tisserand_invariant,omitempty"`
	EpochOsculation           string      `json:"epoch_osculation,omitempty"`
	Eccentricity              string      `json:"eccentricity,omitempty"`
	SemiMajorAxis             string      `json:"semi_major_axis,omitempty"`
	Inclination               string      `json:"inclination,omitempty"`
	AscendingNodeLongitude    string      `json:"ascending_node_longitude,omitempty"`
	OrbitalPeriod             string      `json:"orbital_period,omitempty"`
	PerihelionDistance        string      `json:"perihelion_distance,omitempty"`
	PerihelionArgument        string      `json:"perihelion_argument,omitempty"`
	AphelionDistance          string      `json:"aphelion_distance,omitempty"`
	PerihelionTime            string      `json:"perihelion_time,omitempty"`
	MeanAnomaly               string      `json:"mean_anomaly,omitempty"`
	MeanMotion                string      `json:"mean_motion,omitempty"`
	Equinox                   string      `json:"equinox,omitempty"`
	OrbitClass                *OrbitClass `json:"orbit_class,omitempty"`
}

// NearEarthObject represents an asteroid record returned by NeoWs
type NearEarthObject struct {
	Links                          map[string]string `json:"links,omitempty"`
	ID                             string            `json:"id"`
	NeoReferenceID                 string            `json:"neo_reference_id,omitempty"`
	Name                           string            `json:"name"`
	Designation                    string            `json:"designation,omitempty"`
	NasaJplURL                     string            `json:"nasa_jpl_url,omitempty"`
	AbsoluteMagnitudeH             float64           `json:"absolute_magnitude_h"`
	EstimatedDiameter              EstimatedDiameter `json:"estimated_diameter"`
	IsPotentiallyHazardousAsteroid bool              `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData              []CloseApproach   `json:"close_approach_data"`
	OrbitalData                    *OrbitalData      `json:"orbital_data,omitempty"`
	IsSentryObject                 bool              `json:"is_sentry_object"`
	SentryData                     string            `json:"sentry_data,omitempty"`
}

// FirstApproach returns the first close approach entry, if any
func (n NearEarthObject) FirstApproach() (CloseApproach, bool) {
	if len(n.CloseApproachData) == 0 {
		return CloseApproach{}, false
	}
	return n.CloseApproachData[0], true
}

// Feed is the date-keyed collection returned by the NeoWs feed endpoint
type Feed struct {
	Links            map[string]string            `json:"links,omitempty"`
	ElementCount     int                          `json:"element_count"`
	NearEarthObjects map[string][]NearEarthObject `json:"near_earth_objects"`

	// Dates holds the near_earth_objects keys in document order
	Dates []string `json:"-"`
}

// UnmarshalJSON decodes a feed, recording the order of its date keys
func (f *Feed) UnmarshalJSON(data []byte) error {
	var aux struct {
		Links            map[string]string `json:"links"`
		ElementCount     int               `json:"element_count"`
		NearEarthObjects json.RawMessage   `json:"near_earth_objects"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = Feed{Links: aux.Links, ElementCount: aux.ElementCount}
	if len(aux.NearEarthObjects) == 0 || string(aux.NearEarthObjects) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(aux.NearEarthObjects))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("near_earth_objects: want an object, got %v", tok)
	}
	f.NearEarthObjects = make(map[string][]NearEarthObject)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		date, ok := tok.(string)
		if !ok {
			return fmt.Errorf("near_earth_objects: bad key %v", tok)
		}
		var objs []NearEarthObject
		if err := dec.Decode(&objs); err != nil {
			return fmt.Errorf("near_earth_objects[%s]: %w", date, err)
		}
		if _, dup := f.NearEarthObjects[date]; !dup {
			f.Dates = append(f.Dates, date)
		}
		f.NearEarthObjects[date] = objs
	}
	return nil
}

// Filter bucket values shared by the validator and the feed assembler
const (
	FilterAll = "all"

	HazardHazardous = "hazardous"
	HazardSafe      = "safe"

	DistanceClose  = "close"
	DistanceMedium = "medium"
	DistanceFar    = "far"

	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"

	VelocitySlow   = "slow"
	VelocityMedium = "medium"
	VelocityFast   = "fast"
)

// FeedFilters selects subsets of a feed by attribute bucket
type FeedFilters struct {
	Hazard   string `json:"hazard"`
	Distance string `json:"distance"`
	Size     string `json:"size"`
	Velocity string `json:"velocity"`
}

// Active reports whether any filter narrows the result
func (f FeedFilters) Active() bool {
	return f.Hazard != FilterAll || f.Distance != FilterAll ||
		f.Size != FilterAll || f.Velocity != FilterAll
}

// FeedQuery is a validated feed request
type FeedQuery struct {
	StartDate string
	EndDate   string
	Page      int
	Limit     int
	Filters   FeedFilters
}

// PaginationInfo describes the page returned from a filtered feed
type PaginationInfo struct {
	CurrentPage    int  `json:"currentPage"`
	TotalPages     int  `json:"totalPages"`
	TotalAsteroids int  `json:"totalAsteroids"`
	HasNextPage    bool `json:"hasNextPage"`
	HasPrevPage    bool `json:"hasPrevPage"`
	Limit          int  `json:"limit"`
}

// FeedPage is one page of a filtered, flattened feed
type FeedPage struct {
	Objects    []NearEarthObject
	Pagination PaginationInfo
}

// FeedResponse is the body of the paginated feed endpoint
type FeedResponse struct {
	Links            map[string]string            `json:"links,omitempty"`
	ElementCount     int                          `json:"element_count"`
	NearEarthObjects map[string][]NearEarthObject `json:"near_earth_objects"`
	Pagination       PaginationInfo               `json:"pagination"`
}

// AsteroidAnalysis is the structured narrative produced for one object
type AsteroidAnalysis struct {
	Summary          string   `json:"summary"`
	RiskAssessment   string   `json:"riskAssessment"`
	InterestingFacts []string `json:"interestingFacts"`
	TechnicalDetails string   `json:"technicalDetails"`
	Recommendations  string   `json:"recommendations"`
}

// AnalysisResponse pairs an object with its analysis
type AnalysisResponse struct {
	Asteroid NearEarthObject  `json:"asteroid"`
	Analysis AsteroidAnalysis `json:"analysis"`
}

// Health represents health check response
type Health struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse carries a single informational message
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
