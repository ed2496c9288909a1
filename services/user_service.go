package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"history-guide/events"
	"history-guide/models"
	"history-guide/repository"
	apierrors "history-guide/utils/errors"
	"history-guide/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const userCacheTTL = 10 * time.Minute

func userCacheKey(userID string) string {
	return "user:" + userID
}

// GeofenceRegistrar is the part of GeofenceService the user service drives.
type GeofenceRegistrar interface {
	Register(ctx context.Context, userID string, pois []models.POI) ([]models.Geofence, error)
	Deregister(ctx context.Context, userID string) error
	List(ctx context.Context, userID string) ([]models.Geofence, error)
	Evaluate(ctx context.Context, userID string, lat, lon float64, now time.Time) ([]models.DwellTrigger, error)
}

var _ GeofenceRegistrar = (*GeofenceService)(nil)

type UserService struct {
	users       UserRepository
	pois        POIReader
	geofences   GeofenceRegistrar
	publisher   events.Publisher
	redisClient *redis.Client
	now         func() time.Time
}

// NotificationAck reports the stored preference and the regions registered
// by the call.
type NotificationAck struct {
	Enabled   bool
	Geofences []models.Geofence
}

// NewUserService wires the user service. redisClient may be nil, in which
// case profiles are always read from the document store.
func NewUserService(
	users UserRepository,
	pois POIReader,
	geofences GeofenceRegistrar,
	publisher events.Publisher,
	redisClient *redis.Client,
) *UserService {
	return &UserService{
		users:       users,
		pois:        pois,
		geofences:   geofences,
		publisher:   publisher,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// GetUser retrieves a user from Redis or MongoDB
func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	if s.redisClient != nil {
		userJSON, err := s.redisClient.Get(ctx, userCacheKey(userID)).Result()
		if err == nil {
			if err := json.Unmarshal([]byte(userJSON), &user); err == nil {
				return user, nil
			}
			logger.Zlog.Warn("Failed to unmarshal cached user", zap.String("userID", userID))
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, storeError(err)
	}

	if s.redisClient != nil {
		if userJSON, err := json.Marshal(user); err == nil {
			s.redisClient.Set(ctx, userCacheKey(userID), userJSON, userCacheTTL)
		}
	}
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, userID string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		logger.Zlog.Warn("Failed to drop cached user", zap.String("userID", userID), zap.Error(err))
	}
}

// Role reads the account level from the user document on every call.
func (s *UserService) Role(ctx context.Context, userID string) (models.Role, error) {
	if userID == "" {
		return models.RoleGuest, nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.RoleOf(userID, nil), nil
	}
	if err != nil {
		return "", apierrors.Unavailable(err)
	}
	return models.RoleOf(userID, &user), nil
}

// Profile is the signed-in user's preferences, empty for accounts that have
// not stored any yet.
func (s *UserService) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if errors.Is(err, apierrors.ErrNotFound) {
		return models.User{ID: userID, VisitedPOIs: []string{}}, nil
	}
	return user, err
}

func (s *UserService) IsVisited(ctx context.Context, poiID, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apierrors.Unavailable(err)
	}
	return user.HasVisited(poiID), nil
}

// ToggleVisited flips membership of poiID in the user's visited set and
// returns the new state. Both directions are idempotent set operations, so a
// failed call can be retried; on failure the stored set is unchanged.
func (s *UserService) ToggleVisited(ctx context.Context, poiID, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "UserService.ToggleVisited")
	defer span.End()
	span.SetAttributes(attribute.String("poi.id", poiID))

	if userID == "" {
		return false, apierrors.ErrUnauthorized
	}
	visited, err := s.IsVisited(ctx, poiID, userID)
	if err != nil {
		return false, err
	}

	if visited {
		// A POI deleted since it was visited can still be removed.
		if err := s.users.RemoveVisited(ctx, userID, poiID); err != nil {
			span.RecordError(err)
			logger.Zlog.Error("Failed to remove visited POI", zap.String("userID", userID), zap.String("poiID", poiID), zap.Error(err))
			return true, apierrors.Unavailable(err)
		}
	} else {
		if _, err := s.pois.Get(ctx, poiID); err != nil {
			return false, storeError(err)
		}
		if err := s.users.AddVisited(ctx, userID, poiID); err != nil {
			span.RecordError(err)
			logger.Zlog.Error("Failed to add visited POI", zap.String("userID", userID), zap.String("poiID", poiID), zap.Error(err))
			return false, apierrors.Unavailable(err)
		}
	}
	s.invalidate(ctx, userID)

	logger.Zlog.Info("Visited state updated", zap.String("userID", userID), zap.String("poiID", poiID), zap.Bool("visited", !visited))
	return !visited, nil
}

// VisitedPOIs lists the POIs in the user's visited set. Ids whose POI has
// since been deleted are skipped but stay stored.
func (s *UserService) VisitedPOIs(ctx context.Context, userID string) ([]models.POI, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.POI{}, nil
	}
	if err != nil {
		return nil, apierrors.Unavailable(err)
	}
	pois, err := s.pois.GetMany(ctx, user.VisitedPOIs)
	if err != nil {
		return nil, apierrors.Unavailable(err)
	}
	return pois, nil
}

// SetNotificationsEnabled stores the preference and then registers or removes
// the user's geofences. A failed registration is reported to the caller but
// the stored preference is not rolled back.
func (s *UserService) SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) (NotificationAck, error) {
	ctx, span := tracer.Start(ctx, "UserService.SetNotificationsEnabled")
	defer span.End()
	span.SetAttributes(attribute.Bool("notifications.enabled", enabled))

	if userID == "" {
		return NotificationAck{}, apierrors.ErrUnauthorized
	}
	if err := s.users.SetNotifications(ctx, userID, enabled); err != nil {
		span.RecordError(err)
		logger.Zlog.Error("Failed to update notification preference", zap.String("userID", userID), zap.Error(err))
		return NotificationAck{}, apierrors.Unavailable(err)
	}
	s.invalidate(ctx, userID)

	ack := NotificationAck{Enabled: enabled, Geofences: []models.Geofence{}}
	if !enabled {
		if err := s.geofences.Deregister(ctx, userID); err != nil {
			logger.Zlog.Warn("Failed to remove geofences", zap.String("userID", userID), zap.Error(err))
		}
		s.publish(ctx, events.RKNotificationsDisabled, events.NotificationsChanged{UserID: userID})
		return ack, nil
	}

	pois, err := s.pois.List(ctx)
	if err != nil {
		logger.Zlog.Error("Notifications enabled but POIs could not be loaded", zap.String("userID", userID), zap.Error(err))
		return ack, apierrors.Unavailable(err).WithDetails("preference saved; geofences not registered")
	}
	regions, err := s.geofences.Register(ctx, userID, pois)
	if err != nil {
		span.RecordError(err)
		logger.Zlog.Error("Notifications enabled but geofence registration failed", zap.String("userID", userID), zap.Error(err))
		return ack, apierrors.Unavailable(err).WithDetails("preference saved; geofences not registered")
	}
	ack.Geofences = regions

	s.publish(ctx, events.RKNotificationsEnabled, events.NotificationsChanged{
		UserID:    userID,
		Enabled:   true,
		Geofences: len(regions),
	})
	return ack, nil
}

func (s *UserService) Geofences(ctx context.Context, userID string) ([]models.Geofence, error) {
	regions, err := s.geofences.List(ctx, userID)
	if err != nil {
		return nil, apierrors.Unavailable(err)
	}
	return regions, nil
}

// PingLocation records the user's position and publishes a dwell event for
// every region whose loitering delay has just elapsed.
func (s *UserService) PingLocation(ctx context.Context, userID string, lat, lon float64) ([]models.DwellTrigger, error) {
	if userID == "" {
		return nil, apierrors.ErrUnauthorized
	}
	if !models.ValidCoordinates(lat, lon) {
		return nil, apierrors.ErrInvalidInput.WithDetails("invalid coordinates")
	}

	fired := []models.DwellTrigger{}

	// Stale regions of a user who opted out stay silent.
	user, err := s.GetUser(ctx, userID)
	if errors.Is(err, apierrors.ErrNotFound) || (err == nil && !user.NearbyNotifications) {
		return fired, nil
	}
	if err != nil {
		return nil, err
	}

	triggers, err := s.geofences.Evaluate(ctx, userID, lat, lon, s.now())
	if err != nil {
		logger.Zlog.Error("Failed to evaluate geofences", zap.String("userID", userID), zap.Error(err))
		return nil, apierrors.Unavailable(err)
	}

	for _, t := range triggers {
		name := ""
		if poi, err := s.pois.Get(ctx, t.POIID); err == nil {
			name = poi.Name
		} else if errors.Is(err, repository.ErrNotFound) {
			// Region outlived its POI.
			continue
		}
		s.publish(ctx, events.RKPOIDwell, events.POIDwell{
			UserID:    userID,
			POIID:     t.POIID,
			POIName:   name,
			EnteredAt: t.EnteredAt.Unix(),
			FiredAt:   t.FiredAt.Unix(),
		})
		fired = append(fired, t)
	}
	return fired, nil
}

// publish is best-effort; a lost event never fails the request that caused it.
func (s *UserService) publish(ctx context.Context, key string, v any) {
	if err := s.publisher.PublishJSON(ctx, key, v); err != nil {
		logger.Zlog.Warn("Failed to publish event", zap.String("key", key), zap.Error(err))
	}
}
