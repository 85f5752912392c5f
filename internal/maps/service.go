package maps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/models"
	redisclient "github.com/richxcame/rideplanner/pkg/redis"
	"github.com/richxcame/rideplanner/pkg/resilience"
	"github.com/richxcame/rideplanner/pkg/tracing"
)

const tracerName = "maps"

// ErrNoProviders is returned when the service was built without any provider.
var ErrNoProviders = errors.New("no maps provider configured")

// Service provides routing and geocoding with caching, fallbacks, and resilience
type Service struct {
	primary   MapsProvider
	fallbacks []MapsProvider
	redis     redisclient.ClientInterface
	config    Config
	breakers  map[Provider]*resilience.CircuitBreaker
}

// NewService creates a new maps service. redis may be nil, in which case
// nothing is cached.
func NewService(config Config, redis redisclient.ClientInterface) (*Service, error) {
	primary, err := createProvider(config.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider: %w", err)
	}

	var fallbacks []MapsProvider
	for _, fc := range config.Fallbacks {
		fallback, err := createProvider(fc)
		if err != nil {
			logger.Warn("Failed to create fallback provider", zap.Error(err), zap.String("provider", string(fc.Provider)))
			continue
		}
		fallbacks = append(fallbacks, fallback)
	}

	return NewServiceWithProviders(config, redis, primary, fallbacks...), nil
}

// NewServiceWithProviders builds a service around already constructed providers.
func NewServiceWithProviders(config Config, redis redisclient.ClientInterface, primary MapsProvider, fallbacks ...MapsProvider) *Service {
	s := &Service{
		primary:   primary,
		fallbacks: fallbacks,
		redis:     redis,
		config:    config,
		breakers:  make(map[Provider]*resilience.CircuitBreaker),
	}
	if config.Breakers.Enabled {
		s.initCircuitBreakers()
	}
	return s
}

func createProvider(config ProviderConfig) (MapsProvider, error) {
	switch config.Provider {
	case ProviderOpenRouteService:
		return NewOpenRouteServiceProvider(config), nil
	case ProviderGoogle:
		return NewGoogleMapsProvider(config), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

func (s *Service) initCircuitBreakers() {
	for _, provider := range s.providers() {
		name := "maps-" + string(provider.Name())
		cb := s.config.Breakers.SettingsFor(name)
		s.breakers[provider.Name()] = resilience.NewCircuitBreaker(
			resilience.BuildSettings(name, cb.IntervalSeconds, cb.TimeoutSeconds, cb.FailureThreshold, cb.SuccessThreshold),
			nil,
		)
	}
}

func (s *Service) providers() []MapsProvider {
	var out []MapsProvider
	if s.primary != nil {
		out = append(out, s.primary)
	}
	return append(out, s.fallbacks...)
}

// GetRoutes returns raw route candidates between start and end. Routing
// rejections (no route, distance limit, unreachable point) are returned as
// *routing.RouteError without trying the fallback providers.
func (s *Service) GetRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) ([]models.RawRoute, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "maps.GetRoutes", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(tracing.RouteAttributes(string(class), avoidTolls)...)

	cacheKey := s.routeCacheKey(start.Coords, end.Coords, class, avoidTolls)
	if s.config.CacheEnabled {
		if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
			var routes []models.RawRoute
			if err := json.Unmarshal(cached, &routes); err == nil && len(routes) > 0 {
				span.SetAttributes(tracing.CacheHitKey.Bool(true), tracing.RouteCountKey.Int(len(routes)))
				return routes, nil
			}
		}
	}
	span.SetAttributes(tracing.CacheHitKey.Bool(false))

	result, err := s.executeWithFallback(ctx, "directions", func(ctx context.Context, provider MapsProvider) (interface{}, error) {
		return provider.GetRoutes(ctx, start, end, class, avoidTolls)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	routes, _ := result.([]models.RawRoute)
	span.SetAttributes(tracing.RouteCountKey.Int(len(routes)))

	if s.config.CacheEnabled && len(routes) > 0 {
		if data, err := json.Marshal(routes); err == nil {
			_ = s.setCache(ctx, cacheKey, data, s.config.RouteCacheTTL)
		}
	}
	return routes, nil
}

// ForwardGeocode resolves free text to a location. It returns nil, nil when
// no provider found a match.
func (s *Service) ForwardGeocode(ctx context.Context, text string, focus *geo.Coordinate) (*models.LocationInfo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	cacheKey := s.geocodeCacheKey(text, focus)
	if s.config.CacheEnabled {
		if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
			var loc models.LocationInfo
			if err := json.Unmarshal(cached, &loc); err == nil {
				return &loc, nil
			}
		}
	}

	result, err := s.executeWithFallback(ctx, "geocode", func(ctx context.Context, provider MapsProvider) (interface{}, error) {
		loc, err := provider.Geocode(ctx, text, focus)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			// a provider that answered but found nothing is not a failure
			return (*models.LocationInfo)(nil), nil
		}
		return loc, nil
	})
	if err != nil {
		return nil, err
	}

	loc, _ := result.(*models.LocationInfo)
	if loc == nil {
		return nil, nil
	}

	if s.config.CacheEnabled {
		if data, err := json.Marshal(loc); err == nil {
			_ = s.setCache(ctx, cacheKey, data, s.config.GeocodeCacheTTL)
		}
	}
	return loc, nil
}

// ReverseGeocode returns a human readable name for c. It never fails: when no
// provider knows the place, the formatted coordinate is returned.
func (s *Service) ReverseGeocode(ctx context.Context, c geo.Coordinate) string {
	ctx, span := tracing.StartSpan(ctx, tracerName, "maps.ReverseGeocode", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(tracing.LocationAttributes(c.Latitude, c.Longitude)...)

	fallback := c.Label()

	cacheKey := s.reverseGeocodeCacheKey(c)
	if s.config.CacheEnabled {
		if cached, err := s.getFromCache(ctx, cacheKey); err == nil && len(cached) > 0 {
			return string(cached)
		}
	}

	result, err := s.executeWithFallback(ctx, "reverse_geocode", func(ctx context.Context, provider MapsProvider) (interface{}, error) {
		return provider.ReverseGeocode(ctx, c)
	})
	if err != nil {
		logger.WithContext(ctx).Warn("Reverse geocoding failed, using coordinates",
			zap.Error(err),
			zap.String("coordinate", fallback),
		)
		return fallback
	}

	name, _ := result.(string)
	if name == "" {
		return fallback
	}

	if s.config.CacheEnabled {
		_ = s.setCache(ctx, cacheKey, []byte(name), s.config.GeocodeCacheTTL)
	}
	return name
}

// HealthCheck checks the health of all providers
func (s *Service) HealthCheck(ctx context.Context) []ProviderHealth {
	providers := s.providers()
	results := make([]ProviderHealth, 0, len(providers))
	for _, provider := range providers {
		h := ProviderHealth{Provider: provider.Name(), Healthy: true}
		if cb := s.breakers[provider.Name()]; cb != nil {
			h.Breaker = cb.State()
		}
		if err := provider.HealthCheck(ctx); err != nil {
			h.Healthy = false
			h.Error = err.Error()
		}
		results = append(results, h)
	}
	return results
}

// GetPrimaryProvider returns the name of the primary provider
func (s *Service) GetPrimaryProvider() Provider {
	if s.primary == nil {
		return ""
	}
	return s.primary.Name()
}

// routeRejection carries a definitive routing answer through the breaker
// without counting it as a provider failure.
type routeRejection struct {
	err error
}

func isRouteRejection(err error) bool {
	return errors.Is(err, routing.ErrRouteNotFound) ||
		errors.Is(err, routing.ErrDistanceLimitExceeded) ||
		errors.Is(err, routing.ErrPointUnreachable)
}

// executeWithFallback executes a function with the primary provider and falls back to others on failure
func (s *Service) executeWithFallback(ctx context.Context, operation string, fn func(context.Context, MapsProvider) (interface{}, error)) (interface{}, error) {
	providers := s.providers()
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, provider := range providers {
		provider := provider
		call := func(ctx context.Context) (interface{}, error) {
			var result interface{}
			err := tracing.TraceExternalAPI(ctx, tracerName, string(provider.Name()), operation, func(ctx context.Context) error {
				var err error
				result, err = fn(ctx, provider)
				return err
			})
			if err != nil && isRouteRejection(err) {
				return routeRejection{err: err}, nil
			}
			return result, err
		}

		var result interface{}
		var err error
		if breaker := s.breakers[provider.Name()]; breaker != nil {
			result, err = breaker.Execute(ctx, call)
		} else {
			result, err = call(ctx)
		}

		if err == nil {
			trace.SpanFromContext(ctx).SetAttributes(tracing.ProviderKey.String(string(provider.Name())))
			if rejection, ok := result.(routeRejection); ok {
				return nil, rejection.err
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logger.WithContext(ctx).Warn("Maps provider failed",
			zap.Error(err),
			zap.String("provider", string(provider.Name())),
			zap.String("operation", operation),
		)
	}

	return nil, fmt.Errorf("all maps providers failed: %w", lastErr)
}

// Cache key generation

func (s *Service) routeCacheKey(start, end geo.Coordinate, class models.VehicleClass, avoidTolls bool) string {
	data := fmt.Sprintf("route:%f,%f:%f,%f:%s:%v",
		start.Latitude, start.Longitude,
		end.Latitude, end.Longitude,
		class, avoidTolls,
	)
	return s.config.CachePrefix + s.hashKey(data)
}

func (s *Service) geocodeCacheKey(text string, focus *geo.Coordinate) string {
	data := "geo:" + strings.ToLower(text)
	if focus != nil {
		data += fmt.Sprintf(":%.3f,%.3f", focus.Latitude, focus.Longitude)
	}
	return s.config.CachePrefix + s.hashKey(data)
}

func (s *Service) reverseGeocodeCacheKey(c geo.Coordinate) string {
	// Round coordinates to 5 decimal places (~1m precision)
	lat := math.Round(c.Latitude*100000) / 100000
	lng := math.Round(c.Longitude*100000) / 100000
	data := fmt.Sprintf("rgeo:%f,%f", lat, lng)
	return s.config.CachePrefix + s.hashKey(data)
}

func (s *Service) hashKey(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8]) // Use first 8 bytes
}

// Redis cache operations

func (s *Service) getFromCache(ctx context.Context, key string) ([]byte, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	val, err := s.redis.GetString(ctx, key)
	if err != nil {
		if !redisclient.IsMiss(err) {
			logger.Debug("maps cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	return []byte(val), nil
}

func (s *Service) setCache(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if s.redis == nil {
		return nil
	}

	return s.redis.SetWithExpiration(ctx, key, string(data), ttl)
}
