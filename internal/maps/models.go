package maps

import (
	"time"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// Provider represents the maps service provider type
type Provider string

const (
	ProviderOpenRouteService Provider = "openrouteservice"
	ProviderGoogle           Provider = "google"
)

// RouteQuery is a routing request as accepted by the HTTP surface
type RouteQuery struct {
	Start        models.LocationInfo `json:"start"`
	End          models.LocationInfo `json:"end"`
	VehicleClass models.VehicleClass `json:"vehicle_class"`
	AvoidTolls   bool                `json:"avoid_tolls"`
}

// RouteResponse is returned by the route endpoint
type RouteResponse struct {
	Routes      []models.RawRoute `json:"routes"`
	RequestedAt time.Time         `json:"requested_at"`
}

// GeocodeResponse is returned by the geocode endpoints
type GeocodeResponse struct {
	Location *models.LocationInfo `json:"location"`
	Found    bool                 `json:"found"`
}

// ReverseGeocodeResponse is returned by the reverse geocode endpoint
type ReverseGeocodeResponse struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Name       string         `json:"name"`
}

// ProviderHealth is the per-provider entry of the health endpoint
type ProviderHealth struct {
	Provider Provider `json:"provider"`
	Healthy  bool     `json:"healthy"`
	Breaker  string   `json:"breaker,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// OpenRouteService wire types

type orsDirectionsRequest struct {
	Coordinates       [][]float64            `json:"coordinates"`
	Instructions      bool                   `json:"instructions"`
	Options           *orsOptions            `json:"options,omitempty"`
	AlternativeRoutes *orsAlternativeOptions `json:"alternative_routes,omitempty"`
	ExtraInfo         []string               `json:"extra_info,omitempty"`
}

type orsOptions struct {
	AvoidFeatures []string `json:"avoid_features,omitempty"`
}

type orsAlternativeOptions struct {
	TargetCount  int     `json:"target_count"`
	WeightFactor float64 `json:"weight_factor"`
	ShareFactor  float64 `json:"share_factor"`
}

type orsDirectionsResponse struct {
	Routes []orsRoute `json:"routes"`
	Error  *orsError  `json:"error,omitempty"`
}

type orsRoute struct {
	Summary  orsSummary            `json:"summary"`
	Geometry string                `json:"geometry"`
	Segments []orsSegment          `json:"segments"`
	Extras   map[string]orsExtra   `json:"extras,omitempty"`
}

type orsSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

type orsSegment struct {
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Steps    []orsStep `json:"steps"`
}

type orsStep struct {
	Distance  float64 `json:"distance"`
	Duration  float64 `json:"duration"`
	Toll      bool    `json:"toll,omitempty"`
	WayPoints []int   `json:"way_points"`
}

// orsExtra holds [from, to, value] triples over geometry indexes.
type orsExtra struct {
	Values [][]float64 `json:"values"`
}

// orsError is either {"error": "text"} or {"error": {"code": n, "message": "text"}}
type orsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type orsGeocodeResponse struct {
	Features []orsFeature `json:"features"`
}

type orsFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Label string `json:"label"`
	} `json:"properties"`
}

// Google Maps wire types

type googleDirectionsResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Routes       []googleRoute `json:"routes"`
}

type googleRoute struct {
	Legs             []googleLeg    `json:"legs"`
	OverviewPolyline googlePolyline `json:"overview_polyline"`
	Warnings         []string       `json:"warnings"`
}

type googleLeg struct {
	Distance googleValue `json:"distance"`
	Duration googleValue `json:"duration"`
}

type googleValue struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

type googlePolyline struct {
	Points string `json:"points"`
}

type googleGeocodingResponse struct {
	Status       string                  `json:"status"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Results      []googleGeocodingResult `json:"results"`
}

type googleGeocodingResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}
