package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/httpclient"
	"github.com/richxcame/rideplanner/pkg/models"
)

const (
	googleMapsBaseURL        = "https://maps.googleapis.com/maps/api"
	googleDirectionsEndpoint = "/directions/json"
	googleGeocodingEndpoint  = "/geocode/json"
)

// GoogleMapsProvider implements MapsProvider for Google Maps API
type GoogleMapsProvider struct {
	apiKey  string
	country string
	client  *httpclient.Client
}

// NewGoogleMapsProvider creates a new Google Maps provider
func NewGoogleMapsProvider(config ProviderConfig) *GoogleMapsProvider {
	return &GoogleMapsProvider{
		apiKey:  config.APIKey,
		country: config.Country,
		client:  newProviderClient(config, googleMapsBaseURL),
	}
}

// Name returns the provider name
func (g *GoogleMapsProvider) Name() Provider {
	return ProviderGoogle
}

// HealthCheck verifies the API key is valid
func (g *GoogleMapsProvider) HealthCheck(ctx context.Context) error {
	params := url.Values{}
	params.Set("address", "Monas, Jakarta")
	params.Set("key", g.apiKey)

	resp, err := g.client.Get(ctx, googleGeocodingEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("google maps health check failed: %w", err)
	}

	var result googleGeocodingResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to parse health check response: %w", err)
	}

	if result.Status != "OK" && result.Status != "ZERO_RESULTS" {
		return fmt.Errorf("google maps API error: %s - %s", result.Status, result.ErrorMessage)
	}

	return nil
}

// GetRoutes calculates driving routes with alternatives. Google has no truck
// profile, so trucks are routed as cars.
func (g *GoogleMapsProvider) GetRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) ([]models.RawRoute, error) {
	params := url.Values{}
	params.Set("origin", formatCoordinate(start.Coords))
	params.Set("destination", formatCoordinate(end.Coords))
	params.Set("key", g.apiKey)
	params.Set("mode", "driving")
	params.Set("alternatives", "true")

	var avoid []string
	if avoidTolls || class == models.VehicleMotorbike {
		avoid = append(avoid, "tolls")
	}
	if class == models.VehicleMotorbike {
		avoid = append(avoid, "ferries")
	}
	if len(avoid) > 0 {
		params.Set("avoid", strings.Join(avoid, "|"))
	}
	if g.country != "" {
		params.Set("region", strings.ToLower(g.country))
	}

	resp, err := g.client.Get(ctx, googleDirectionsEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google maps directions request failed: %w", err)
	}

	var googleResp googleDirectionsResponse
	if err := json.Unmarshal(resp, &googleResp); err != nil {
		return nil, fmt.Errorf("failed to parse directions response: %w", err)
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, routing.NewRouteError(googleResp.ErrorMessage)
	default:
		return nil, fmt.Errorf("google maps error: %s - %s", googleResp.Status, googleResp.ErrorMessage)
	}
	if len(googleResp.Routes) == 0 {
		return nil, routing.NewRouteError("")
	}

	routes := make([]models.RawRoute, 0, len(googleResp.Routes))
	for _, r := range googleResp.Routes {
		routes = append(routes, convertGoogleRoute(r))
	}
	return routes, nil
}

// Geocode converts an address to coordinates
func (g *GoogleMapsProvider) Geocode(ctx context.Context, text string, focus *geo.Coordinate) (*models.LocationInfo, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("address", text)
	if g.country != "" {
		params.Set("components", "country:"+g.country)
		params.Set("region", strings.ToLower(g.country))
	}
	if focus != nil {
		// a small viewport around the focus point biases the result
		const span = 0.1
		params.Set("bounds", fmt.Sprintf("%f,%f|%f,%f",
			focus.Latitude-span, focus.Longitude-span,
			focus.Latitude+span, focus.Longitude+span))
	}

	googleResp, err := g.geocode(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(googleResp.Results) == 0 {
		return nil, nil
	}

	result := googleResp.Results[0]
	return &models.LocationInfo{
		Coords: geo.NewCoordinate(result.Geometry.Location.Lat, result.Geometry.Location.Lng),
		Name:   result.FormattedAddress,
	}, nil
}

// ReverseGeocode converts coordinates to an address
func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("latlng", formatCoordinate(c))

	googleResp, err := g.geocode(ctx, params)
	if err != nil {
		return "", err
	}
	if len(googleResp.Results) == 0 {
		return "", nil
	}
	return googleResp.Results[0].FormattedAddress, nil
}

func (g *GoogleMapsProvider) geocode(ctx context.Context, params url.Values) (*googleGeocodingResponse, error) {
	resp, err := g.client.Get(ctx, googleGeocodingEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google maps geocoding request failed: %w", err)
	}

	var googleResp googleGeocodingResponse
	if err := json.Unmarshal(resp, &googleResp); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}

	if googleResp.Status != "OK" && googleResp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("google maps error: %s - %s", googleResp.Status, googleResp.ErrorMessage)
	}
	return &googleResp, nil
}

func formatCoordinate(c geo.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// convertGoogleRoute sums the legs and flags the route as tolled when Google
// warns about tolls. The overview polyline uses the same 1e5 encoding as
// OpenRouteService.
func convertGoogleRoute(r googleRoute) models.RawRoute {
	raw := models.RawRoute{Geometry: r.OverviewPolyline.Points}
	for _, leg := range r.Legs {
		raw.Summary.DistanceMeters += leg.Distance.Value
		raw.Summary.DurationSeconds += leg.Duration.Value
	}
	for _, w := range r.Warnings {
		if strings.Contains(strings.ToLower(w), "toll") {
			raw.Segments = []models.RouteSegment{{Steps: []models.RouteStep{{Toll: true}}}}
			break
		}
	}
	return raw
}
