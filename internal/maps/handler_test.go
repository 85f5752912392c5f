package maps

import (
	"encoding/json"
	"errors"
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
	"github.com/richxcame/rideplanner/pkg/geo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupHandler(primary MapsProvider) *gin.Engine {
	svc := NewServiceWithProviders(testConfig(), nil, primary)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
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

const routeBody = `{"start":{"latitude":-6.175392,"longitude":106.827153},"end":{"latitude":-6.1352,"longitude":106.813301},"vehicle_class":"car","avoid_tolls":true}`

func TestHandler_GetRoutes(t *testing.T) {
	primary := newMockProvider(ProviderOpenRouteService)
	primary.On("GetRoutes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, true).Return(sampleRoutes, nil)

	w := doRequest(setupHandler(primary), http.MethodPost, "/api/v1/maps/route", routeBody)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["routes"], 1)
}

func TestHandler_GetRoutes_Validation(t *testing.T) {
	router := setupHandler(newMockProvider(ProviderOpenRouteService))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"start":`},
		{"bad vehicle class", `{"start":{"latitude":1,"longitude":1},"end":{"latitude":2,"longitude":2},"vehicle_class":"bus"}`},
		{"latitude out of range", `{"start":{"latitude":91,"longitude":1},"end":{"latitude":2,"longitude":2},"vehicle_class":"car"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/maps/route", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_GetRoutes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"distance limit", routing.NewRouteError("route distance must not be greater than 150000.0 meters"), http.StatusUnprocessableEntity, "DISTANCE_LIMIT_EXCEEDED"},
		{"unreachable", routing.NewRouteError("Could not find routable point within a radius"), http.StatusUnprocessableEntity, "POINT_UNREACHABLE"},
		{"no route", routing.NewRouteError(""), http.StatusUnprocessableEntity, "ROUTE_NOT_FOUND"},
		{"provider down", errors.New("connection refused"), http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := newMockProvider(ProviderOpenRouteService)
			primary.On("GetRoutes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doRequest(setupHandler(primary), http.MethodPost, "/api/v1/maps/route", routeBody)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.ErrorCode)
		})
	}
}

func TestHandler_Geocode(t *testing.T) {
	primary := newMockProvider(ProviderOpenRouteService)
	primary.On("Geocode", mock.Anything, "Monas", mock.MatchedBy(func(c *geo.Coordinate) bool {
		return c != nil && c.Latitude == -6.2 && c.Longitude == 106.8
	})).Return(&monas, nil)

	w := doRequest(setupHandler(primary), http.MethodGet, "/api/v1/maps/geocode?text=Monas&focus_lat=-6.2&focus_lon=106.8", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["found"])
}

func TestHandler_Geocode_MissingText(t *testing.T) {
	w := doRequest(setupHandler(newMockProvider(ProviderOpenRouteService)), http.MethodGet, "/api/v1/maps/geocode", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ReverseGeocode(t *testing.T) {
	primary := newMockProvider(ProviderOpenRouteService)
	primary.On("ReverseGeocode", mock.Anything, geo.NewCoordinate(-6.2, 106.8)).Return("", errors.New("timeout"))

	w := doRequest(setupHandler(primary), http.MethodPost, "/api/v1/maps/reverse-geocode", `{"latitude":-6.2,"longitude":106.8}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, "-6.20000, 106.80000", data["name"])
}

func TestHandler_HealthCheck(t *testing.T) {
	primary := newMockProvider(ProviderOpenRouteService)
	primary.On("HealthCheck", mock.Anything).Return(errors.New("down"))

	w := doRequest(setupHandler(primary), http.MethodGet, "/api/v1/maps/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}
