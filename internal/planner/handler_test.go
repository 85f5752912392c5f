package planner

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(h *storeHarness) *gin.Engine {
	router := gin.New()
	NewHandler(h.store, nil, nil).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) common.Response {
	t.Helper()
	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func tripData(t *testing.T, resp common.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	trip, ok := data["trip"].(map[string]interface{})
	require.True(t, ok)
	return trip
}

func TestHandler_GetState(t *testing.T) {
	router := setupRouter(newHarness(returning(nil, nil)))

	w := doRequest(router, http.MethodGet, "/api/v1/planner/state", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	trip := tripData(t, resp)
	assert.Equal(t, "motorbike", trip["vehicle_class"])
	assert.Equal(t, true, trip["include_tolls"])
	assert.Equal(t, false, resp.Data.(map[string]interface{})["action_locked"])
}

func TestHandler_InitializeLocation(t *testing.T) {
	router := setupRouter(newHarness(returning(nil, nil)))

	w := doRequest(router, http.MethodPost, "/api/v1/planner/location", `{"latitude":-6.175392,"longitude":106.827153}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Monas, Jakarta", tripData(t, decodeResponse(t, w))["departure_address"])
}

func TestHandler_LocationUnavailable(t *testing.T) {
	router := setupRouter(newHarness(returning(nil, nil)))

	w := doRequest(router, http.MethodDelete, "/api/v1/planner/location", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MessageLocationDenied, tripData(t, decodeResponse(t, w))["error"])
}

func TestHandler_Validation(t *testing.T) {
	router := setupRouter(newHarness(returning(nil, nil)))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"location out of range", http.MethodPost, "/api/v1/planner/location", `{"latitude":95,"longitude":0}`},
		{"unknown vehicle class", http.MethodPut, "/api/v1/planner/vehicle-class", `{"vehicle_class":"bus"}`},
		{"tolls missing", http.MethodPut, "/api/v1/planner/tolls", `{}`},
		{"address too long", http.MethodPut, "/api/v1/planner/departure", `{"text":"` + strings.Repeat("a", 201) + `"}`},
		{"unknown point kind", http.MethodPost, "/api/v1/planner/points/waypoint", `{"latitude":1,"longitude":1}`},
		{"malformed json", http.MethodPut, "/api/v1/planner/destination", `{"text":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_TripSettings(t *testing.T) {
	router := setupRouter(newHarness(returning(nil, nil)))

	w := doRequest(router, http.MethodPut, "/api/v1/planner/vehicle-class", `{"vehicle_class":"truck"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "truck", tripData(t, decodeResponse(t, w))["vehicle_class"])

	w = doRequest(router, http.MethodPut, "/api/v1/planner/tolls", `{"include_tolls":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, tripData(t, decodeResponse(t, w))["include_tolls"])

	w = doRequest(router, http.MethodPut, "/api/v1/planner/destination", `{"text":"Kota Tua"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kota Tua", tripData(t, decodeResponse(t, w))["destination_address"])

	w = doRequest(router, http.MethodPost, "/api/v1/planner/points/destination", `{"latitude":-6.1352,"longitude":106.813301}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kota Tua, Jakarta", tripData(t, decodeResponse(t, w))["destination_address"])
}

func TestHandler_FetchRoutesAndActivate(t *testing.T) {
	h := newHarness(returning(sampleRoutes(), nil))
	h.withTrip(t)
	router := setupRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/planner/routes", "")
	require.Equal(t, http.StatusOK, w.Code)
	routes := decodeResponse(t, w).Data.(map[string]interface{})["routes"].([]interface{})
	assert.Len(t, routes, 2)

	w = doRequest(router, http.MethodPost, "/api/v1/planner/routes/route-non-toll-b/activate", "")
	require.Equal(t, http.StatusOK, w.Code)
	routes = decodeResponse(t, w).Data.(map[string]interface{})["routes"].([]interface{})
	assert.Equal(t, true, routes[1].(map[string]interface{})["is_primary"])
}

func TestHandler_FetchRoutes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *storeHarness)
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "incomplete trip",
			setup:      func(h *storeHarness) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "TRIP_INCOMPLETE",
			wantMsg:    MessageTripIncomplete,
		},
		{
			name: "location not found",
			setup: func(h *storeHarness) {
				_ = h.store.SetDepartureText("Nowhere")
				_ = h.store.SetDestinationText("Elsewhere")
				h.geocoder.On("ForwardGeocode", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "LOCATION_NOT_FOUND",
			wantMsg:    MessageLocationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(returning(sampleRoutes(), nil))
			tt.setup(h)

			w := doRequest(setupRouter(h), http.MethodPost, "/api/v1/planner/routes", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.ErrorCode)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
		})
	}
}

func TestHandler_FetchRoutes_DistanceLimit(t *testing.T) {
	h := newHarness(returning(nil, routing.NewRouteError("route distance must not be greater than 150000.0 meters")))
	h.withTrip(t)

	w := doRequest(setupRouter(h), http.MethodPost, "/api/v1/planner/routes", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DISTANCE_LIMIT_EXCEEDED", resp.Error.ErrorCode)
	assert.Equal(t, MessageDistanceLimit, resp.Error.Message)
}

func TestHandler_OfferLifecycle(t *testing.T) {
	h := newHarness(returning(sampleRoutes(), nil))
	h.withTrip(t)
	router := setupRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/planner/offer", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/planner/routes", "").Code)

	w = doRequest(router, http.MethodPost, "/api/v1/planner/offer", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	offer := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, "searching", offer["phase"])

	w = doRequest(router, http.MethodPut, "/api/v1/planner/vehicle-class", `{"vehicle_class":"car"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ACTION_LOCKED", decodeResponse(t, w).Error.ErrorCode)

	w = doRequest(router, http.MethodDelete, "/api/v1/planner/offer", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeResponse(t, w).Data.(map[string]interface{})["action_locked"])
}

func TestHandler_ResetAndClearError(t *testing.T) {
	h := newHarness(returning(nil, nil))
	router := setupRouter(h)
	h.store.OnOfferError(assert.AnError)

	w := doRequest(router, http.MethodDelete, "/api/v1/planner/error", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, h.store.Snapshot().Trip.Error)

	w = doRequest(router, http.MethodPost, "/api/v1/planner/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.machine.resets)
}
