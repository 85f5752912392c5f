package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load("ride-planner")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "ride-planner", cfg.Server.ServiceName)
	assert.Equal(t, "https://api.openrouteservice.org", cfg.Maps.ORSBaseURL)
	assert.Equal(t, "ID", cfg.Maps.Country)
	assert.Equal(t, 5*time.Minute, cfg.Maps.RouteCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Maps.GeocodeCacheTTL)

	assert.Equal(t, 4, cfg.Simulation.DriverCount)
	assert.Equal(t, 1000.0, cfg.Simulation.SearchRadiusMeters)
	assert.Equal(t, 500.0, cfg.Simulation.MinDistanceMeters)
	assert.Equal(t, 3*time.Second, cfg.Simulation.SearchDelayMin)
	assert.Equal(t, 8*time.Second, cfg.Simulation.SearchDelayMax)
	assert.Equal(t, 5*time.Second, cfg.Simulation.SettleDelay)
	assert.Equal(t, 16*time.Millisecond, cfg.Simulation.FrameInterval)
	assert.Equal(t, 1.0, cfg.Simulation.TimeScale)
	assert.True(t, cfg.Simulation.AllowJourneyCancel)

	assert.False(t, cfg.NATS.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("SIM_DRIVER_COUNT", "7")
	t.Setenv("SIM_SEARCH_DELAY_MIN", "1s")
	t.Setenv("SIM_SEARCH_DELAY_MAX", "1500ms")
	t.Setenv("SIM_TIME_SCALE", "0.25")
	t.Setenv("SIM_ALLOW_JOURNEY_CANCEL", "false")
	t.Setenv("ORS_API_KEY", "secret")
	t.Setenv("MAPS_ROUTE_CACHE_TTL", "90s")

	cfg, err := Load("ride-planner")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Simulation.DriverCount)
	assert.Equal(t, time.Second, cfg.Simulation.SearchDelayMin)
	assert.Equal(t, 1500*time.Millisecond, cfg.Simulation.SearchDelayMax)
	assert.Equal(t, 0.25, cfg.Simulation.TimeScale)
	assert.False(t, cfg.Simulation.AllowJourneyCancel)
	assert.Equal(t, "secret", cfg.Maps.ORSAPIKey)
	assert.Equal(t, 90*time.Second, cfg.Maps.RouteCacheTTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	os.Clearenv()
	t.Setenv("SIM_DRIVER_COUNT", "many")
	t.Setenv("SIM_SETTLE_DELAY", "soon")
	t.Setenv("SIM_TIME_SCALE", "-2")

	cfg, err := Load("ride-planner")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Simulation.DriverCount)
	assert.Equal(t, 5*time.Second, cfg.Simulation.SettleDelay)
	assert.Equal(t, 1.0, cfg.Simulation.TimeScale)
}

func TestLoad_RejectsInvertedSearchDelay(t *testing.T) {
	os.Clearenv()
	t.Setenv("SIM_SEARCH_DELAY_MIN", "9s")
	t.Setenv("SIM_SEARCH_DELAY_MAX", "2s")

	_, err := Load("ride-planner")
	assert.Error(t, err)
}

func TestLoad_InvalidBreakerOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("CB_SERVICE_OVERRIDES", "{not json")

	_, err := Load("ride-planner")
	assert.Error(t, err)
}

func TestCircuitBreakerConfig_SettingsFor(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		TimeoutSeconds:   30,
		IntervalSeconds:  60,
		ServiceOverrides: map[string]CircuitBreakerSettings{
			"maps-openrouteservice": {FailureThreshold: 3, TimeoutSeconds: 10},
		},
	}

	override := cfg.SettingsFor("maps-openrouteservice")
	assert.Equal(t, 3, override.FailureThreshold)
	assert.Equal(t, 10, override.TimeoutSeconds)
	assert.Equal(t, 1, override.SuccessThreshold)
	assert.Equal(t, 60, override.IntervalSeconds)

	defaults := cfg.SettingsFor("maps-google")
	assert.Equal(t, 5, defaults.FailureThreshold)
	assert.Equal(t, 30, defaults.TimeoutSeconds)
}

func TestMapsConfig_Timeout(t *testing.T) {
	assert.Equal(t, 15*time.Second, MapsConfig{}.Timeout())
	assert.Equal(t, 3*time.Second, MapsConfig{TimeoutSeconds: 3}.Timeout())
}

func TestLoad_RateLimitOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_ENDPOINTS", `{"POST:/api/v1/planner/routes":{"limit":5,"burst":0,"window_seconds":10}}`)

	cfg, err := Load("ride-planner")
	require.NoError(t, err)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	override := cfg.RateLimit.EndpointOverrides["POST:/api/v1/planner/routes"]
	assert.Equal(t, 5, override.Limit)
	assert.Equal(t, 10, override.WindowSeconds)

	t.Setenv("RATE_LIMIT_ENDPOINTS", "[")
	_, err = Load("ride-planner")
	assert.Error(t, err)
}
