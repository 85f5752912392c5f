package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Maps       MapsConfig
	Simulation SimulationConfig
	NATS       NATSConfig
	Tracing    TracingConfig
	RateLimit  RateLimitConfig
	Resilience ResilienceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	Version      string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// MapsConfig holds routing and geocoding provider configuration
type MapsConfig struct {
	ORSAPIKey       string
	ORSBaseURL      string
	GoogleAPIKey    string
	GoogleBaseURL   string
	Country         string // ISO country code geocoding results are restricted to
	TimeoutSeconds  int
	MaxRetries      int
	CacheEnabled    bool
	RouteCacheTTL   time.Duration
	GeocodeCacheTTL time.Duration
}

// SimulationConfig holds ride offer simulation pacing
type SimulationConfig struct {
	DriverCount        int
	SearchRadiusMeters float64
	MinDistanceMeters  float64
	SearchDelayMin     time.Duration
	SearchDelayMax     time.Duration
	SettleDelay        time.Duration
	FrameInterval      time.Duration
	TimeScale          float64
	AllowJourneyCancel bool
	Seed               int64 // 0 seeds from the clock
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	Enabled    bool
	URL        string
	StreamName string
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

// RateLimitConfig throttles the endpoints that call the maps providers
type RateLimitConfig struct {
	Enabled           bool
	WindowSeconds     int
	Limit             int
	Burst             int
	RedisPrefix       string
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig customizes limits for one "METHOD:/path" key
type EndpointRateLimitConfig struct {
	Limit         int `json:"limit"`
	Burst         int `json:"burst"`
	WindowSeconds int `json:"window_seconds"`
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-service breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream service
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			Version:      getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Maps: MapsConfig{
			ORSAPIKey:       getEnv("ORS_API_KEY", ""),
			ORSBaseURL:      getEnv("ORS_BASE_URL", "https://api.openrouteservice.org"),
			GoogleAPIKey:    getEnv("GOOGLE_MAPS_API_KEY", ""),
			GoogleBaseURL:   getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
			Country:         getEnv("GEOCODE_COUNTRY", "ID"),
			TimeoutSeconds:  getEnvAsInt("MAPS_TIMEOUT_SECONDS", 15),
			MaxRetries:      getEnvAsInt("MAPS_MAX_RETRIES", 2),
			CacheEnabled:    getEnvAsBool("MAPS_CACHE_ENABLED", true),
			RouteCacheTTL:   getEnvAsDuration("MAPS_ROUTE_CACHE_TTL", 5*time.Minute),
			GeocodeCacheTTL: getEnvAsDuration("MAPS_GEOCODE_CACHE_TTL", 24*time.Hour),
		},
		Simulation: SimulationConfig{
			DriverCount:        getEnvAsInt("SIM_DRIVER_COUNT", 4),
			SearchRadiusMeters: getEnvAsFloat("SIM_SEARCH_RADIUS_METERS", 1000),
			MinDistanceMeters:  getEnvAsFloat("SIM_MIN_DISTANCE_METERS", 500),
			SearchDelayMin:     getEnvAsDuration("SIM_SEARCH_DELAY_MIN", 3*time.Second),
			SearchDelayMax:     getEnvAsDuration("SIM_SEARCH_DELAY_MAX", 8*time.Second),
			SettleDelay:        getEnvAsDuration("SIM_SETTLE_DELAY", 5*time.Second),
			FrameInterval:      getEnvAsDuration("SIM_FRAME_INTERVAL", 16*time.Millisecond),
			TimeScale:          getEnvAsFloat("SIM_TIME_SCALE", 1),
			AllowJourneyCancel: getEnvAsBool("SIM_ALLOW_JOURNEY_CANCEL", true),
			Seed:               int64(getEnvAsInt("SIM_SEED", 0)),
		},
		NATS: NATSConfig{
			Enabled:    getEnvAsBool("NATS_ENABLED", false),
			URL:        getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			StreamName: getEnv("NATS_STREAM", "RIDEPLANNER"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			Limit:         getEnvAsInt("RATE_LIMIT_LIMIT", 30),
			Burst:         getEnvAsInt("RATE_LIMIT_BURST", 10),
			RedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "rate-limit"),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", true),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if overrides := getEnv("RATE_LIMIT_ENDPOINTS", ""); overrides != "" {
		var endpointConfig map[string]EndpointRateLimitConfig
		if err := json.Unmarshal([]byte(overrides), &endpointConfig); err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_ENDPOINTS value: %w", err)
		}
		cfg.RateLimit.EndpointOverrides = endpointConfig
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if err := cfg.Simulation.validate(); err != nil {
		return nil, err
	}

	if cfg.Resilience.CircuitBreaker.TimeoutSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.TimeoutSeconds = 30
	}

	if cfg.Resilience.CircuitBreaker.IntervalSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.IntervalSeconds = 60
	}

	if cfg.Resilience.CircuitBreaker.FailureThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	}

	if cfg.Resilience.CircuitBreaker.SuccessThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.SuccessThreshold = 1
	}

	return cfg, nil
}

func (s *SimulationConfig) validate() error {
	if s.DriverCount < 0 {
		return fmt.Errorf("SIM_DRIVER_COUNT must not be negative, got %d", s.DriverCount)
	}
	if s.SearchDelayMax < s.SearchDelayMin {
		return fmt.Errorf("SIM_SEARCH_DELAY_MAX (%s) is shorter than SIM_SEARCH_DELAY_MIN (%s)", s.SearchDelayMax, s.SearchDelayMin)
	}
	if s.TimeScale <= 0 {
		s.TimeScale = 1
	}
	return nil
}

// SettingsFor returns effective breaker settings for a specific upstream service name
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if override, ok := c.ServiceOverrides[service]; ok {
		if override.FailureThreshold > 0 {
			settings.FailureThreshold = override.FailureThreshold
		}
		if override.SuccessThreshold > 0 {
			settings.SuccessThreshold = override.SuccessThreshold
		}
		if override.TimeoutSeconds > 0 {
			settings.TimeoutSeconds = override.TimeoutSeconds
		}
		if override.IntervalSeconds > 0 {
			settings.IntervalSeconds = override.IntervalSeconds
		}
	}

	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 1
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.IntervalSeconds <= 0 {
		settings.IntervalSeconds = 60
	}

	return settings
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Window returns the rate limit window, one minute when unset
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Timeout returns the per-request timeout for maps providers
func (c MapsConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("750ms", "5s").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
