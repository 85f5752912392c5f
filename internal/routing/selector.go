package routing

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/pkg/async"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/models"
)

// sameDistanceKm is the distance under which toll and toll-free candidates
// are treated as the same road.
const sameDistanceKm = 0.01

// maxRoutes is the number of routes ever shown to the user.
const maxRoutes = 2

// RouteSource fetches raw route candidates from a routing service.
type RouteSource interface {
	GetRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) ([]models.RawRoute, error)
}

// Selector turns routing candidates into the list of routes offered to the user.
type Selector struct {
	source RouteSource
	newID  func(prefix string) string
}

// NewSelector creates a new route selector
func NewSelector(source RouteSource) *Selector {
	return &Selector{source: source, newID: NewRouteID}
}

// NewRouteID returns a unique route id carrying the given role prefix.
func NewRouteID(prefix string) string {
	return prefix + uuid.NewString()
}

// IsTollFaster decides whether the toll candidate really uses the toll road.
// The toll option only counts as a toll route when the service says it is
// strictly quicker than the toll-free option.
func IsTollFaster(toll, nonToll models.RawRoute) bool {
	return toll.Summary.DurationSeconds < nonToll.Summary.DurationSeconds
}

// SelectRoutes fetches and ranks routes between start and end.
// The result has at most two routes and exactly one of them is primary.
func (s *Selector) SelectRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, includeTolls bool) ([]models.RouteInfo, error) {
	if class.TollEligible() && includeTolls {
		return s.selectTollPair(ctx, start, end, class)
	}
	return s.selectTollFree(ctx, start, end, class)
}

type candidate struct {
	route models.RawRoute
	ok    bool
	err   error
}

func (s *Selector) fetchFirst(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, avoidTolls bool) candidate {
	routes, err := s.source.GetRoutes(ctx, start, end, class, avoidTolls)
	if err != nil {
		logger.WithContext(ctx).Warn("route candidate fetch failed",
			zap.String("vehicle_class", string(class)),
			zap.Bool("avoid_tolls", avoidTolls),
			zap.Error(err),
		)
		return candidate{err: err}
	}
	if len(routes) == 0 {
		return candidate{}
	}
	return candidate{route: routes[0], ok: true}
}

func (s *Selector) selectTollPair(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass) ([]models.RouteInfo, error) {
	var toll, nonToll candidate

	async.RunAll(ctx, "fetch-route-candidates",
		func(ctx context.Context) { toll = s.fetchFirst(ctx, start, end, class, false) },
		func(ctx context.Context) { nonToll = s.fetchFirst(ctx, start, end, class, true) },
	)

	switch {
	case toll.ok && nonToll.ok:
		return s.rankPair(toll.route, nonToll.route, class), nil
	case toll.ok:
		// Without a toll-free route to compare against, IsTollFaster cannot hold.
		only := Normalize(toll.route, class, false)
		only.ID = s.newID("route-toll-")
		only.IsPrimary = true
		return []models.RouteInfo{only}, nil
	case nonToll.ok:
		only := Normalize(nonToll.route, class, false)
		only.ID = s.newID("route-non-toll-")
		only.IsPrimary = true
		return []models.RouteInfo{only}, nil
	case toll.err != nil && nonToll.err != nil:
		return nil, ClassifyRouteError(toll.err)
	default:
		return nil, ErrRouteNotFound
	}
}

func (s *Selector) rankPair(tollRaw, nonTollRaw models.RawRoute, class models.VehicleClass) []models.RouteInfo {
	tollRoute := Normalize(tollRaw, class, IsTollFaster(tollRaw, nonTollRaw))
	tollRoute.ID = s.newID("route-toll-")

	nonTollRoute := Normalize(nonTollRaw, class, false)
	nonTollRoute.ID = s.newID("route-non-toll-")

	if math.Abs(tollRoute.DistanceKm-nonTollRoute.DistanceKm) < sameDistanceKm {
		tollRoute.IsPrimary = true
		return []models.RouteInfo{tollRoute}
	}

	if tollRoute.DurationMinutes <= nonTollRoute.DurationMinutes {
		tollRoute.IsPrimary = true
		return []models.RouteInfo{tollRoute, nonTollRoute}
	}
	nonTollRoute.IsPrimary = true
	return []models.RouteInfo{nonTollRoute, tollRoute}
}

func (s *Selector) selectTollFree(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass) ([]models.RouteInfo, error) {
	raw, err := s.source.GetRoutes(ctx, start, end, class, true)
	if err != nil {
		return nil, ClassifyRouteError(err)
	}
	if len(raw) == 0 {
		return nil, ErrRouteNotFound
	}
	if len(raw) > maxRoutes {
		raw = raw[:maxRoutes]
	}

	routes := make([]models.RouteInfo, 0, len(raw))
	for i, r := range raw {
		info := Normalize(r, class, false)
		info.ID = s.newID(fmt.Sprintf("route-%d-", i))
		info.IsPrimary = i == 0
		routes = append(routes, info)
	}
	return routes, nil
}
