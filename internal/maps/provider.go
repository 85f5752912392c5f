package maps

import (
	"context"
	"time"

	"github.com/richxcame/rideplanner/pkg/config"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/httpclient"
	"github.com/richxcame/rideplanner/pkg/models"
	"github.com/richxcame/rideplanner/pkg/resilience"
)

// MapsProvider defines the interface for maps service providers
type MapsProvider interface {
	// Routing
	GetRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) ([]models.RawRoute, error)

	// Geocoding. Geocode returns nil without error when nothing matched,
	// ReverseGeocode returns an empty name in that case.
	Geocode(ctx context.Context, text string, focus *geo.Coordinate) (*models.LocationInfo, error)
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error)

	// Health
	HealthCheck(ctx context.Context) error
	Name() Provider
}

// ProviderConfig holds configuration for a maps provider
type ProviderConfig struct {
	Provider   Provider      `json:"provider"`
	APIKey     string        `json:"api_key"`
	BaseURL    string        `json:"base_url,omitempty"`
	Country    string        `json:"country,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`
	MaxRetries int           `json:"max_retries,omitempty"`
}

// Config holds the overall maps service configuration
type Config struct {
	// Primary provider for routing and geocoding
	Primary ProviderConfig `json:"primary"`

	// Fallback providers (in order of preference)
	Fallbacks []ProviderConfig `json:"fallbacks,omitempty"`

	// Caching settings
	CacheEnabled    bool          `json:"cache_enabled"`
	RouteCacheTTL   time.Duration `json:"route_cache_ttl"`
	GeocodeCacheTTL time.Duration `json:"geocode_cache_ttl"`
	CachePrefix     string        `json:"cache_prefix"`

	// Circuit breaker tuning, keyed by "maps-<provider>"
	Breakers config.CircuitBreakerConfig `json:"-"`
}

// DefaultConfig returns sensible defaults for maps configuration
func DefaultConfig() Config {
	return Config{
		Primary: ProviderConfig{
			Provider: ProviderOpenRouteService,
			BaseURL:  orsBaseURL,
			Country:  "ID",
			Timeout:  15 * time.Second,
		},
		CacheEnabled:    true,
		RouteCacheTTL:   5 * time.Minute,
		GeocodeCacheTTL: 24 * time.Hour,
		CachePrefix:     "maps:",
		Breakers:        config.CircuitBreakerConfig{Enabled: true},
	}
}

// ConfigFromEnv builds the maps configuration from the loaded service config.
// Google is added as a fallback only when it has an API key.
func ConfigFromEnv(mc config.MapsConfig, breakers config.CircuitBreakerConfig) Config {
	cfg := DefaultConfig()
	cfg.Primary = ProviderConfig{
		Provider:   ProviderOpenRouteService,
		APIKey:     mc.ORSAPIKey,
		BaseURL:    mc.ORSBaseURL,
		Country:    mc.Country,
		Timeout:    mc.Timeout(),
		MaxRetries: mc.MaxRetries,
	}
	if mc.GoogleAPIKey != "" {
		cfg.Fallbacks = append(cfg.Fallbacks, ProviderConfig{
			Provider:   ProviderGoogle,
			APIKey:     mc.GoogleAPIKey,
			BaseURL:    mc.GoogleBaseURL,
			Country:    mc.Country,
			Timeout:    mc.Timeout(),
			MaxRetries: mc.MaxRetries,
		})
	}
	cfg.CacheEnabled = mc.CacheEnabled
	if mc.RouteCacheTTL > 0 {
		cfg.RouteCacheTTL = mc.RouteCacheTTL
	}
	if mc.GeocodeCacheTTL > 0 {
		cfg.GeocodeCacheTTL = mc.GeocodeCacheTTL
	}
	cfg.Breakers = breakers
	return cfg
}

func newProviderClient(config ProviderConfig, defaultBaseURL string) *httpclient.Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []httpclient.Option{httpclient.WithName("maps-" + string(config.Provider))}
	if config.MaxRetries > 0 {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = config.MaxRetries + 1
		opts = append(opts, httpclient.WithRetry(retry))
	}
	return httpclient.NewClient(baseURL, timeout, opts...)
}
