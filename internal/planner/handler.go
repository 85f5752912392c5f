package planner

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/richxcame/rideplanner/pkg/common"
	"github.com/richxcame/rideplanner/pkg/validation"
	"github.com/richxcame/rideplanner/pkg/websocket"
)

// Handler exposes the planner store over HTTP
type Handler struct {
	store    *Store
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

// NewHandler creates a new planner handler. hub may be nil to disable the stream.
func NewHandler(store *Store, hub *websocket.Hub, upgrader *gorilla.Upgrader) *Handler {
	return &Handler{store: store, hub: hub, upgrader: upgrader}
}

// RegisterRoutes registers all planner routes. throttle guards the actions
// that call the maps providers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, throttle ...gin.HandlerFunc) {
	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, throttle...), handler)
	}

	planner := rg.Group("/planner")
	{
		planner.GET("/state", h.GetState)
		planner.POST("/location", guarded(h.InitializeLocation)...)
		planner.DELETE("/location", h.LocationUnavailable)
		planner.PUT("/vehicle-class", h.SetVehicleClass)
		planner.PUT("/tolls", h.SetIncludeTolls)
		planner.PUT("/departure", h.SetDeparture)
		planner.PUT("/destination", h.SetDestination)
		planner.POST("/points/:kind", guarded(h.SetPoint)...)
		planner.POST("/routes", guarded(h.FetchRoutes)...)
		planner.POST("/routes/:id/activate", h.ActivateRoute)
		planner.POST("/offer", guarded(h.StartOffer)...)
		planner.DELETE("/offer", h.CancelOffer)
		planner.DELETE("/error", h.ClearError)
		planner.POST("/reset", h.Reset)

		if h.hub != nil {
			planner.GET("/ws", h.Stream)
		}
	}
}

// GetState returns the full planner snapshot
func (h *Handler) GetState(c *gin.Context) {
	common.SuccessResponse(c, h.store.Snapshot())
}

// InitializeLocation records the device position as the departure
func (h *Handler) InitializeLocation(c *gin.Context) {
	var req validation.CoordinateRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	err := h.store.InitializeLocation(c.Request.Context(), req.Coordinate())
	if common.HandleServiceError(c, toAppError(err), "failed to initialize location") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// LocationUnavailable records that no device position could be obtained
func (h *Handler) LocationUnavailable(c *gin.Context) {
	if common.HandleServiceError(c, toAppError(h.store.LocationUnavailable()), "failed to update location") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// SetVehicleClass changes the vehicle class
func (h *Handler) SetVehicleClass(c *gin.Context) {
	var req validation.VehicleClassRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	if common.HandleServiceError(c, toAppError(h.store.SetVehicleClass(req.Class())), "failed to set vehicle class") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// SetIncludeTolls changes the toll preference
func (h *Handler) SetIncludeTolls(c *gin.Context) {
	var req validation.TollsRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	if common.HandleServiceError(c, toAppError(h.store.SetIncludeTolls(*req.IncludeTolls)), "failed to set toll preference") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// SetDeparture stores typed departure text
func (h *Handler) SetDeparture(c *gin.Context) {
	h.setAddress(c, h.store.SetDepartureText)
}

// SetDestination stores typed destination text
func (h *Handler) SetDestination(c *gin.Context) {
	h.setAddress(c, h.store.SetDestinationText)
}

func (h *Handler) setAddress(c *gin.Context, set func(string) error) {
	var req validation.AddressRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	if common.HandleServiceError(c, toAppError(set(req.Text)), "failed to set address") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// SetPoint places the departure or destination on a map position
func (h *Handler) SetPoint(c *gin.Context) {
	kind := validation.PointKindRequest{Kind: c.Param("kind")}
	if !common.ValidateRequest(c, &kind) {
		return
	}

	var req validation.CoordinateRequest
	if !common.BindJSON(c, &req) || !common.ValidateRequest(c, &req) {
		return
	}

	err := h.store.SetPoint(c.Request.Context(), kind.Kind, req.Coordinate())
	if common.HandleServiceError(c, toAppError(err), "failed to set point") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// FetchRoutes resolves the trip and loads its routes
func (h *Handler) FetchRoutes(c *gin.Context) {
	routes, err := h.store.FetchRoutes(c.Request.Context())
	if common.HandleServiceError(c, toAppError(err), MessageUnexpected) {
		return
	}
	common.SuccessResponse(c, gin.H{"routes": routes})
}

// ActivateRoute marks a route as primary
func (h *Handler) ActivateRoute(c *gin.Context) {
	id := c.Param("id")
	if !common.ValidateNotEmpty(c, id, "route id") {
		return
	}
	common.SuccessResponse(c, gin.H{"routes": h.store.ActivateRoute(id)})
}

// StartOffer begins a simulated ride offer; progress arrives on the stream
func (h *Handler) StartOffer(c *gin.Context) {
	if common.HandleServiceError(c, toAppError(h.store.StartOffer(c.Request.Context())), "failed to start offer") {
		return
	}
	common.AcceptedResponse(c, h.store.Snapshot().Offer)
}

// CancelOffer stops the running offer
func (h *Handler) CancelOffer(c *gin.Context) {
	if common.HandleServiceError(c, toAppError(h.store.CancelOffer()), "failed to cancel offer") {
		return
	}
	common.SuccessResponse(c, h.store.Snapshot())
}

// ClearError dismisses the user-facing error
func (h *Handler) ClearError(c *gin.Context) {
	h.store.ClearError()
	c.Status(http.StatusNoContent)
}

// Reset cancels any offer and restores the initial trip
func (h *Handler) Reset(c *gin.Context) {
	h.store.ResetApplication()
	common.SuccessResponse(c, h.store.Snapshot())
}

// Stream upgrades to a WebSocket carrying planner and simulation updates
func (h *Handler) Stream(c *gin.Context) {
	websocket.HandleWebSocket(c, h.hub, h.upgrader)
}
