package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"history-guide/models"
	"history-guide/services"
	apierrors "history-guide/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSetNotifications(t *testing.T) {
	users := new(mockUserService)
	users.On("SetNotificationsEnabled", mock.Anything, "u1", true).Return(services.NotificationAck{
		Enabled: true,
		Geofences: []models.Geofence{
			{POIID: "castle", Latitude: 51.6207, Longitude: -3.9418, RadiusMeters: 250, LoiteringDelay: 5 * time.Minute},
		},
	}, nil)
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.SetNotifications(rec, asUser(httptest.NewRequest(http.MethodPut, "/user/notifications", strings.NewReader(`{"enabled":true}`)), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["nearby_notifications"])
	regions := body["geofences"].([]any)
	require.Len(t, regions, 1)
	region := regions[0].(map[string]any)
	assert.Equal(t, "castle", region["poi_id"])
	assert.EqualValues(t, 250, region["radius_m"])
	assert.EqualValues(t, 300000, region["loitering_delay_ms"])
}

func TestSetNotifications_Errors(t *testing.T) {
	users := new(mockUserService)
	users.On("SetNotificationsEnabled", mock.Anything, "u1", true).
		Return(services.NotificationAck{Enabled: true}, apierrors.Unavailable(errors.New("redis down")).WithDetails("preference saved; geofences not registered"))
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.SetNotifications(rec, asUser(httptest.NewRequest(http.MethodPut, "/user/notifications", strings.NewReader(`{}`)), "u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SetNotifications(rec, asUser(httptest.NewRequest(http.MethodPut, "/user/notifications", strings.NewReader(`{"enabled":true}`)), "u1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "preference saved; geofences not registered", decodeBody(t, rec)["details"])
}

func TestVisitedPOIs(t *testing.T) {
	users := new(mockUserService)
	users.On("VisitedPOIs", mock.Anything, "u1").Return([]models.POI{testCastle}, nil)
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.VisitedPOIs(rec, asUser(httptest.NewRequest(http.MethodGet, "/user/visited", nil), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
}

func TestPingLocation(t *testing.T) {
	users := new(mockUserService)
	users.On("PingLocation", mock.Anything, "u1", 51.6207, -3.9418).
		Return([]models.DwellTrigger{{POIID: "castle"}}, nil)
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.PingLocation(rec, asUser(httptest.NewRequest(http.MethodPost, "/user/ping?lat=51.6207&lon=-3.9418", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"castle"}, decodeBody(t, rec)["triggered"])

	rec = httptest.NewRecorder()
	h.PingLocation(rec, asUser(httptest.NewRequest(http.MethodPost, "/user/ping?lat=51.6207", nil), "u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeofences_Empty(t *testing.T) {
	users := new(mockUserService)
	users.On("Geofences", mock.Anything, "u1").Return([]models.Geofence{}, nil)
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.Geofences(rec, asUser(httptest.NewRequest(http.MethodGet, "/user/geofences", nil), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["geofences"])
}
