package routing

import (
	"errors"
	"strings"
)

var (
	// ErrLocationNotFound is returned when departure or destination could not be geocoded.
	ErrLocationNotFound = errors.New("location not found")
	// ErrRouteNotFound is returned when the routing service produced no usable route.
	ErrRouteNotFound = errors.New("route not found")
	// ErrDistanceLimitExceeded is returned when the route is longer than the service allows.
	ErrDistanceLimitExceeded = errors.New("route distance exceeds the limit")
	// ErrPointUnreachable is returned when a point is too far from any road.
	ErrPointUnreachable = errors.New("point is not routable")
)

const (
	distanceLimitMarker = "distance must not be greater than"
	unroutableMarker    = "Could not find routable point"
)

// RouteError carries the message reported by the routing service.
type RouteError struct {
	Message string
	Kind    error
}

// NewRouteError builds a RouteError and classifies it from the service message.
func NewRouteError(message string) *RouteError {
	return &RouteError{Message: message, Kind: classifyMessage(message)}
}

func (e *RouteError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *RouteError) Unwrap() error {
	return e.Kind
}

func classifyMessage(message string) error {
	switch {
	case strings.Contains(message, distanceLimitMarker):
		return ErrDistanceLimitExceeded
	case strings.Contains(message, unroutableMarker):
		return ErrPointUnreachable
	default:
		return ErrRouteNotFound
	}
}

// ClassifyRouteError maps any routing failure onto one of the package sentinels.
// Errors that are already classified are returned unchanged.
func ClassifyRouteError(err error) error {
	if err == nil {
		return nil
	}
	var re *RouteError
	if errors.As(err, &re) {
		return re
	}
	for _, known := range []error{ErrLocationNotFound, ErrRouteNotFound, ErrDistanceLimitExceeded, ErrPointUnreachable} {
		if errors.Is(err, known) {
			return err
		}
	}
	if kind := classifyMessage(err.Error()); kind != ErrRouteNotFound {
		return &RouteError{Message: err.Error(), Kind: kind}
	}
	return err
}
