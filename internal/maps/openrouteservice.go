package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/httpclient"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/models"
)

const (
	orsBaseURL           = "https://api.openrouteservice.org"
	orsDirectionsPath    = "/v2/directions/%s/json"
	orsGeocodeSearchPath = "/geocode/search"
	orsGeocodeRevPath    = "/geocode/reverse"
	orsHealthPath        = "/v2/health"

	orsProfileCar = "driving-car"
	orsProfileHGV = "driving-hgv"

	orsTollwayValue = 1
)

// Alternative route tuning sent with every directions request.
var orsAlternatives = orsAlternativeOptions{
	TargetCount:  2,
	WeightFactor: 2.0,
	ShareFactor:  0.5,
}

// OpenRouteServiceProvider implements MapsProvider for openrouteservice.org
type OpenRouteServiceProvider struct {
	apiKey  string
	country string
	client  *httpclient.Client
}

// NewOpenRouteServiceProvider creates a new OpenRouteService provider
func NewOpenRouteServiceProvider(config ProviderConfig) *OpenRouteServiceProvider {
	return &OpenRouteServiceProvider{
		apiKey:  config.APIKey,
		country: config.Country,
		client:  newProviderClient(config, orsBaseURL),
	}
}

// Name returns the provider name
func (o *OpenRouteServiceProvider) Name() Provider {
	return ProviderOpenRouteService
}

// HealthCheck asks the routing engine whether it is ready
func (o *OpenRouteServiceProvider) HealthCheck(ctx context.Context) error {
	resp, err := o.client.Get(ctx, orsHealthPath, o.headers())
	if err != nil {
		return fmt.Errorf("openrouteservice health check failed: %w", err)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to parse health check response: %w", err)
	}
	if result.Status != "" && result.Status != "ready" {
		return fmt.Errorf("openrouteservice not ready: %s", result.Status)
	}
	return nil
}

// GetRoutes requests driving directions with alternatives between start and end
func (o *OpenRouteServiceProvider) GetRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) ([]models.RawRoute, error) {
	alternatives := orsAlternatives
	body := orsDirectionsRequest{
		Coordinates:       [][]float64{start.Coords.LonLat(), end.Coords.LonLat()},
		Instructions:      true,
		AlternativeRoutes: &alternatives,
		ExtraInfo:         []string{"tollways"},
	}
	if avoid := orsAvoidFeatures(class, avoidTolls); len(avoid) > 0 {
		body.Options = &orsOptions{AvoidFeatures: avoid}
	}

	path := fmt.Sprintf(orsDirectionsPath, orsProfile(class))
	resp, err := o.client.Post(ctx, path, body, o.headers())
	if err != nil {
		return nil, o.routeError(err)
	}

	var orsResp orsDirectionsResponse
	if err := json.Unmarshal(resp, &orsResp); err != nil {
		return nil, fmt.Errorf("failed to parse directions response: %w", err)
	}
	if orsResp.Error != nil && orsResp.Error.Message != "" {
		return nil, routing.NewRouteError(orsResp.Error.Message)
	}
	if len(orsResp.Routes) == 0 {
		return nil, routing.NewRouteError("")
	}

	routes := make([]models.RawRoute, 0, len(orsResp.Routes))
	for _, r := range orsResp.Routes {
		routes = append(routes, convertORSRoute(r))
	}
	return routes, nil
}

// routeError turns routing failures reported by the service into RouteErrors.
// Authentication, quota and server errors are returned as they are so that
// the caller can fall back to another provider.
func (o *OpenRouteServiceProvider) routeError(err error) error {
	httpErr, ok := httpclient.AsHTTPError(err)
	if !ok {
		return fmt.Errorf("openrouteservice directions request failed: %w", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest && httpErr.StatusCode != http.StatusNotFound {
		return fmt.Errorf("openrouteservice directions request failed: %w", err)
	}

	var orsResp orsDirectionsResponse
	if jsonErr := json.Unmarshal([]byte(httpErr.Body), &orsResp); jsonErr != nil || orsResp.Error == nil {
		return routing.NewRouteError("")
	}
	logger.Debug("openrouteservice rejected route",
		zap.Int("status", httpErr.StatusCode),
		zap.Int("code", orsResp.Error.Code),
		zap.String("message", orsResp.Error.Message),
	)
	return routing.NewRouteError(orsResp.Error.Message)
}

// Geocode resolves free text to the best matching location inside the configured country
func (o *OpenRouteServiceProvider) Geocode(ctx context.Context, text string, focus *geo.Coordinate) (*models.LocationInfo, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("size", "1")
	if o.country != "" {
		params.Set("boundary.country", o.country)
	}
	if focus != nil {
		params.Set("focus.point.lat", formatFloat(focus.Latitude))
		params.Set("focus.point.lon", formatFloat(focus.Longitude))
	}

	resp, err := o.client.Get(ctx, orsGeocodeSearchPath+"?"+params.Encode(), o.headers())
	if err != nil {
		return nil, fmt.Errorf("openrouteservice geocoding request failed: %w", err)
	}

	var geoResp orsGeocodeResponse
	if err := json.Unmarshal(resp, &geoResp); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(geoResp.Features) == 0 {
		return nil, nil
	}

	feature := geoResp.Features[0]
	coords, ok := geo.FromLonLat(feature.Geometry.Coordinates)
	if !ok {
		return nil, errors.New("geocoding feature has no coordinates")
	}
	return &models.LocationInfo{Coords: coords, Name: feature.Properties.Label}, nil
}

// ReverseGeocode returns the label of the nearest known address
func (o *OpenRouteServiceProvider) ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("point.lat", formatFloat(c.Latitude))
	params.Set("point.lon", formatFloat(c.Longitude))
	params.Set("size", "1")

	resp, err := o.client.Get(ctx, orsGeocodeRevPath+"?"+params.Encode(), o.headers())
	if err != nil {
		return "", fmt.Errorf("openrouteservice reverse geocoding request failed: %w", err)
	}

	var geoResp orsGeocodeResponse
	if err := json.Unmarshal(resp, &geoResp); err != nil {
		return "", fmt.Errorf("failed to parse reverse geocoding response: %w", err)
	}
	if len(geoResp.Features) == 0 {
		return "", nil
	}
	return geoResp.Features[0].Properties.Label, nil
}

func (o *OpenRouteServiceProvider) headers() map[string]string {
	if o.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": o.apiKey}
}

func orsProfile(class models.VehicleClass) string {
	if class == models.VehicleTruck {
		return orsProfileHGV
	}
	return orsProfileCar
}

func orsAvoidFeatures(class models.VehicleClass, avoidTolls bool) []string {
	var avoid []string
	if avoidTolls || class == models.VehicleMotorbike {
		avoid = append(avoid, "tollways")
	}
	if class == models.VehicleMotorbike {
		avoid = append(avoid, "ferries")
	}
	return avoid
}

// convertORSRoute copies the route and flags steps that overlap a tollway
// range reported in the extras.
func convertORSRoute(r orsRoute) models.RawRoute {
	raw := models.RawRoute{
		Summary: models.RouteSummary{
			DistanceMeters:  r.Summary.Distance,
			DurationSeconds: r.Summary.Duration,
		},
		Geometry: r.Geometry,
	}

	var tollRanges [][2]int
	if extra, ok := r.Extras["tollways"]; ok {
		for _, v := range extra.Values {
			if len(v) >= 3 && int(v[2]) == orsTollwayValue {
				tollRanges = append(tollRanges, [2]int{int(v[0]), int(v[1])})
			}
		}
	}

	for _, seg := range r.Segments {
		out := models.RouteSegment{Steps: make([]models.RouteStep, 0, len(seg.Steps))}
		for _, step := range seg.Steps {
			out.Steps = append(out.Steps, models.RouteStep{
				Toll: step.Toll || overlapsAny(step.WayPoints, tollRanges),
			})
		}
		raw.Segments = append(raw.Segments, out)
	}

	// extras without step detail still mark the route as tolled
	if len(raw.Segments) == 0 && len(tollRanges) > 0 {
		raw.Segments = []models.RouteSegment{{Steps: []models.RouteStep{{Toll: true}}}}
	}
	return raw
}

func overlapsAny(wayPoints []int, ranges [][2]int) bool {
	if len(wayPoints) < 2 {
		return false
	}
	from, to := wayPoints[0], wayPoints[len(wayPoints)-1]
	for _, r := range ranges {
		if from < r[1] && r[0] < to {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// UnmarshalJSON accepts both the string and the object error shapes.
func (e *orsError) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		e.Message = text
		return nil
	}
	type plain orsError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = orsError(p)
	return nil
}
