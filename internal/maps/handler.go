package maps

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/common"
	"github.com/richxcame/rideplanner/pkg/models"
	"github.com/richxcame/rideplanner/pkg/validation"
)

// Handler handles HTTP requests for maps functionality
type Handler struct {
	service *Service
}

// NewHandler creates a new maps handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all maps routes behind the optional throttle
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, throttle ...gin.HandlerFunc) {
	maps := rg.Group("/maps", throttle...)
	{
		maps.POST("/route", h.GetRoutes)
		maps.GET("/geocode", h.Geocode)
		maps.POST("/reverse-geocode", h.ReverseGeocode)
		maps.GET("/health", h.HealthCheck)
	}
}

// GetRoutes returns the raw route candidates of the routing provider
func (h *Handler) GetRoutes(c *gin.Context) {
	var req validation.RouteRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	start := models.LocationInfo{Coords: req.Start.Coordinate()}
	end := models.LocationInfo{Coords: req.End.Coordinate()}
	routes, err := h.service.GetRoutes(c.Request.Context(), start, end, models.VehicleClass(req.VehicleClass), req.AvoidTolls)
	if common.HandleServiceError(c, routeAppError(err), "failed to calculate route") {
		return
	}

	common.SuccessResponse(c, RouteResponse{Routes: routes, RequestedAt: time.Now().UTC()})
}

// Geocode resolves a typed address
func (h *Handler) Geocode(c *gin.Context) {
	var req validation.GeocodeRequest
	if !common.BindQuery(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	loc, err := h.service.ForwardGeocode(c.Request.Context(), req.Text, req.Focus())
	if err != nil {
		common.HandleServiceError(c, common.NewUnavailableError("geocoding service unavailable", err), "")
		return
	}

	common.SuccessResponse(c, GeocodeResponse{Location: loc, Found: loc != nil})
}

// ReverseGeocode names a coordinate; it always succeeds for a valid coordinate
func (h *Handler) ReverseGeocode(c *gin.Context) {
	var req validation.CoordinateRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	coord := req.Coordinate()
	common.SuccessResponse(c, ReverseGeocodeResponse{
		Coordinate: coord,
		Name:       h.service.ReverseGeocode(c.Request.Context(), coord),
	})
}

// HealthCheck reports provider health and breaker state
func (h *Handler) HealthCheck(c *gin.Context) {
	results := h.service.HealthCheck(c.Request.Context())

	status := http.StatusOK
	for _, r := range results {
		if !r.Healthy {
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, common.Response{
		Success: status == http.StatusOK,
		Data: gin.H{
			"primary":   h.service.GetPrimaryProvider(),
			"providers": results,
		},
	})
}

// routeAppError maps routing rejections onto 422 and provider outages onto 502.
func routeAppError(err error) error {
	if err == nil {
		return nil
	}

	classified := routing.ClassifyRouteError(err)
	kind := rejectionKind(classified)
	if kind == nil {
		return common.NewAppError(http.StatusBadGateway, "routing service unavailable", err)
	}

	message := kind.Error()
	var re *routing.RouteError
	if errors.As(classified, &re) && re.Message != "" {
		message = re.Message
	}
	return common.NewAppError(http.StatusUnprocessableEntity, message, classified).WithErrorCode(errorCode(kind))
}

func rejectionKind(err error) error {
	for _, kind := range []error{routing.ErrDistanceLimitExceeded, routing.ErrPointUnreachable, routing.ErrRouteNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func errorCode(kind error) string {
	switch kind {
	case routing.ErrDistanceLimitExceeded:
		return "DISTANCE_LIMIT_EXCEEDED"
	case routing.ErrPointUnreachable:
		return "POINT_UNREACHABLE"
	default:
		return "ROUTE_NOT_FOUND"
	}
}
