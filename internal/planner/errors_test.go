package planner

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/internal/simulation"
	"github.com/richxcame/rideplanner/pkg/common"
)

func TestUserMessage(t *testing.T) {
	distance := routing.NewRouteError("The approximated route distance must not be greater than 150000.0 meters.")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"distance limit", distance, MessageDistanceLimit},
		{"wrapped distance limit", fmt.Errorf("select: %w", distance), MessageDistanceLimit},
		{"unreachable", routing.NewRouteError("Could not find routable point within a radius of 350.0 meters"), MessageUnreachable},
		{"location not found", routing.ErrLocationNotFound, MessageLocationNotFound},
		{"route service message", routing.NewRouteError("Unable to find a route"), "Unable to find a route"},
		{"route not found", routing.NewRouteError(""), MessageNoRoute},
		{"offer failed wins over its cause", fmt.Errorf("%w: %w", simulation.ErrOfferFailed, distance), MessageOfferFailed},
		{"incomplete", ErrTripIncomplete, MessageTripIncomplete},
		{"no location", ErrNoLocation, MessageLocationDenied},
		{"locked", ErrActionLocked, MessageActionLocked},
		{"no departure", simulation.ErrNoDeparture, MessageNoDeparture},
		{"no primary route", simulation.ErrNoPrimaryRoute, MessageNoPrimaryRoute},
		{"cancel not allowed", simulation.ErrCancelNotAllowed, MessageCancelNotAllowed},
		{"unexpected", errors.New("boom"), MessageUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"locked", ErrActionLocked, http.StatusConflict, "ACTION_LOCKED"},
		{"cancel not allowed", simulation.ErrCancelNotAllowed, http.StatusConflict, "ACTION_LOCKED"},
		{"incomplete", ErrTripIncomplete, http.StatusBadRequest, "TRIP_INCOMPLETE"},
		{"no primary route", simulation.ErrNoPrimaryRoute, http.StatusBadRequest, "TRIP_INCOMPLETE"},
		{"location not found", routing.ErrLocationNotFound, http.StatusNotFound, "LOCATION_NOT_FOUND"},
		{"distance", routing.NewRouteError("distance must not be greater than 150000.0 meters"), http.StatusUnprocessableEntity, "DISTANCE_LIMIT_EXCEEDED"},
		{"unreachable", routing.NewRouteError("Could not find routable point"), http.StatusUnprocessableEntity, "POINT_UNREACHABLE"},
		{"no route", routing.ErrRouteNotFound, http.StatusUnprocessableEntity, "ROUTE_NOT_FOUND"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := common.AsAppError(toAppError(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, appErr.Code)
			assert.Equal(t, tt.wantCode, appErr.ErrorCode)
			assert.Equal(t, UserMessage(tt.err), appErr.Message)
		})
	}

	assert.NoError(t, toAppError(nil))
}
