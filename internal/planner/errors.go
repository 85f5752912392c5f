package planner

import (
	"errors"
	"net/http"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/internal/simulation"
	"github.com/richxcame/rideplanner/pkg/common"
)

var (
	// ErrActionLocked is returned for trip changes while a ride offer is running.
	ErrActionLocked = errors.New("a ride offer is in progress")
	// ErrTripIncomplete is returned when routes are requested without both addresses.
	ErrTripIncomplete = errors.New("departure and destination must be filled")
	// ErrNoLocation is returned when the device could not provide a position.
	ErrNoLocation = errors.New("location unavailable")
)

// Messages shown to the user. Every failure of a planner action ends up as
// exactly one of these.
const (
	MessageDistanceLimit    = "Route distance exceeds the limit, maximum route limit is 150km"
	MessageUnreachable      = "A selected location is unreachable. Please choose a point closer to a road."
	MessageLocationNotFound = "One or both locations could not be found."
	MessageNoRoute          = "No route could be found between these locations."
	MessageOfferFailed      = "Failed to calculate the pickup route. Please try again."
	MessageUnexpected       = "An unexpected error occurred while fetching routes."
	MessageTripIncomplete   = "Departure and destination must be filled."
	MessageLocationDenied   = "GPS is not active or permission is denied"
	MessageActionLocked     = "Finish or cancel the current ride offer first."
	MessageNoDeparture      = "Choose a departure point first."
	MessageNoPrimaryRoute   = "Fetch and choose a route first."
	MessageCancelNotAllowed = "The journey has started and can no longer be cancelled."
)

// UserMessage converts an action failure into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	classified := routing.ClassifyRouteError(err)
	var re *routing.RouteError
	switch {
	case errors.Is(err, simulation.ErrOfferFailed):
		return MessageOfferFailed
	case errors.Is(classified, routing.ErrDistanceLimitExceeded):
		return MessageDistanceLimit
	case errors.Is(classified, routing.ErrPointUnreachable):
		return MessageUnreachable
	case errors.Is(err, routing.ErrLocationNotFound):
		return MessageLocationNotFound
	case errors.As(classified, &re) && re.Message != "":
		return re.Message
	case errors.Is(classified, routing.ErrRouteNotFound):
		return MessageNoRoute
	case errors.Is(err, ErrTripIncomplete):
		return MessageTripIncomplete
	case errors.Is(err, ErrNoLocation):
		return MessageLocationDenied
	case errors.Is(err, ErrActionLocked):
		return MessageActionLocked
	case errors.Is(err, simulation.ErrNoDeparture):
		return MessageNoDeparture
	case errors.Is(err, simulation.ErrNoPrimaryRoute):
		return MessageNoPrimaryRoute
	case errors.Is(err, simulation.ErrCancelNotAllowed):
		return MessageCancelNotAllowed
	default:
		return MessageUnexpected
	}
}

// toAppError wraps an action failure in the HTTP error envelope.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	message := UserMessage(err)
	classified := routing.ClassifyRouteError(err)
	switch {
	case errors.Is(err, ErrActionLocked), errors.Is(err, simulation.ErrCancelNotAllowed):
		return common.NewConflictError(message).WithErrorCode("ACTION_LOCKED")
	case errors.Is(err, ErrTripIncomplete),
		errors.Is(err, simulation.ErrNoDeparture),
		errors.Is(err, simulation.ErrNoPrimaryRoute):
		return common.NewBadRequestError(message, err).WithErrorCode("TRIP_INCOMPLETE")
	case errors.Is(err, routing.ErrLocationNotFound):
		return common.NewNotFoundError(message, err).WithErrorCode("LOCATION_NOT_FOUND")
	case errors.Is(classified, routing.ErrDistanceLimitExceeded):
		return common.NewAppError(http.StatusUnprocessableEntity, message, err).WithErrorCode("DISTANCE_LIMIT_EXCEEDED")
	case errors.Is(classified, routing.ErrPointUnreachable):
		return common.NewAppError(http.StatusUnprocessableEntity, message, err).WithErrorCode("POINT_UNREACHABLE")
	case errors.Is(classified, routing.ErrRouteNotFound):
		return common.NewAppError(http.StatusUnprocessableEntity, message, err).WithErrorCode("ROUTE_NOT_FOUND")
	default:
		return common.NewInternalError(message, err)
	}
}
