package handlers

import (
	"context"
	"time"

	"history-guide/models"
	"history-guide/services"

	"github.com/stretchr/testify/mock"
)

type mockPOIService struct {
	mock.Mock
}

func (m *mockPOIService) ListPOIs(ctx context.Context) ([]models.POI, error) {
	args := m.Called(ctx)
	pois, _ := args.Get(0).([]models.POI)
	return pois, args.Error(1)
}

func (m *mockPOIService) LatestPOIs(ctx context.Context, limit int) ([]models.POI, error) {
	args := m.Called(ctx, limit)
	pois, _ := args.Get(0).([]models.POI)
	return pois, args.Error(1)
}

func (m *mockPOIService) GetPOI(ctx context.Context, id string) (models.POI, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.POI), args.Error(1)
}

func (m *mockPOIService) CreatePOI(ctx context.Context, poi models.POI) (models.POI, error) {
	args := m.Called(ctx, poi)
	return args.Get(0).(models.POI), args.Error(1)
}

func (m *mockPOIService) UpdatePOI(ctx context.Context, poi models.POI) (models.POI, error) {
	args := m.Called(ctx, poi)
	return args.Get(0).(models.POI), args.Error(1)
}

func (m *mockPOIService) DeletePOI(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPOIService) FindNearbyPOIs(ctx context.Context, lat, lon, radius float64) ([]models.POI, error) {
	args := m.Called(ctx, lat, lon, radius)
	pois, _ := args.Get(0).([]models.POI)
	return pois, args.Error(1)
}

type mockRatingService struct {
	mock.Mock
}

func (m *mockRatingService) SubmitRating(ctx context.Context, poiID, userID string, value float64) (models.RatingSummary, error) {
	args := m.Called(ctx, poiID, userID, value)
	return args.Get(0).(models.RatingSummary), args.Error(1)
}

func (m *mockRatingService) OverallRating(ctx context.Context, poiID string) (models.RatingSummary, error) {
	args := m.Called(ctx, poiID)
	return args.Get(0).(models.RatingSummary), args.Error(1)
}

func (m *mockRatingService) UserRating(ctx context.Context, poiID, userID string) (models.Rating, bool, error) {
	args := m.Called(ctx, poiID, userID)
	return args.Get(0).(models.Rating), args.Bool(1), args.Error(2)
}

type mockVisitService struct {
	mock.Mock
}

func (m *mockVisitService) IsVisited(ctx context.Context, poiID, userID string) (bool, error) {
	args := m.Called(ctx, poiID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVisitService) ToggleVisited(ctx context.Context, poiID, userID string) (bool, error) {
	args := m.Called(ctx, poiID, userID)
	return args.Bool(0), args.Error(1)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (services.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(services.Session), args.Error(1)
}

type mockProfileService struct {
	mock.Mock
}

func (m *mockProfileService) Role(ctx context.Context, userID string) (models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *mockProfileService) Profile(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) VisitedPOIs(ctx context.Context, userID string) ([]models.POI, error) {
	args := m.Called(ctx, userID)
	pois, _ := args.Get(0).([]models.POI)
	return pois, args.Error(1)
}

func (m *mockUserService) SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) (services.NotificationAck, error) {
	args := m.Called(ctx, userID, enabled)
	return args.Get(0).(services.NotificationAck), args.Error(1)
}

func (m *mockUserService) Geofences(ctx context.Context, userID string) ([]models.Geofence, error) {
	args := m.Called(ctx, userID)
	regions, _ := args.Get(0).([]models.Geofence)
	return regions, args.Error(1)
}

func (m *mockUserService) PingLocation(ctx context.Context, userID string, lat, lon float64) ([]models.DwellTrigger, error) {
	args := m.Called(ctx, userID, lat, lon)
	triggers, _ := args.Get(0).([]models.DwellTrigger)
	return triggers, args.Error(1)
}

var (
	testCastle = models.POI{
		ID:          "castle",
		Name:        "Swansea Castle",
		Address:     "Castle Street",
		Description: "Fourteenth century castle",
		ImageURL:    "https://example.com/castle.jpg",
		Location:    models.NewGeoPoint(51.6207, -3.9418),
		CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	testTramway = models.POI{ID: "tramway", Name: "Swansea and Mumbles Railway"}
)
