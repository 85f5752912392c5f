package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Trip planning span attributes
const (
	VehicleClassKey      = attribute.Key("trip.vehicle_class")
	AvoidTollsKey        = attribute.Key("trip.avoid_tolls")
	IncludeTollsKey      = attribute.Key("trip.include_tolls")
	RouteCountKey        = attribute.Key("trip.route_count")
	OfferIDKey           = attribute.Key("offer.id")
	DriverIDKey          = attribute.Key("driver.id")
	ProviderKey          = attribute.Key("maps.provider")
	CacheHitKey          = attribute.Key("maps.cache_hit")
	LocationLatitudeKey  = attribute.Key("location.latitude")
	LocationLongitudeKey = attribute.Key("location.longitude")
)

// TraceBusinessLogic wraps business logic with tracing
func TraceBusinessLogic(ctx context.Context, tracerName, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, operation,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}

	start := time.Now()
	err := fn(ctx)

	span.SetAttributes(
		attribute.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	finish(span, err)

	return err
}

// TraceExternalAPI wraps external API calls with tracing
func TraceExternalAPI(ctx context.Context, tracerName, serviceName, operation string, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, fmt.Sprintf("%s.%s", serviceName, operation),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("external.service", serviceName),
		attribute.String("external.operation", operation),
	)

	err := fn(ctx)
	finish(span, err)

	return err
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// RouteAttributes describes a route request.
func RouteAttributes(vehicleClass string, avoidTolls bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		VehicleClassKey.String(vehicleClass),
		AvoidTollsKey.Bool(avoidTolls),
	}
}

// LocationAttributes describes a single coordinate.
func LocationAttributes(latitude, longitude float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		LocationLatitudeKey.Float64(latitude),
		LocationLongitudeKey.Float64(longitude),
	}
}
