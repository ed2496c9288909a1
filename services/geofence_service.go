package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"history-guide/models"
	"history-guide/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type GeofenceConfig struct {
	RadiusMeters   float64
	LoiteringDelay time.Duration
}

// GeofenceService keeps each user's proximity regions in Redis and decides
// when a stay inside one of them has lasted long enough to notify.
//
// Keys per user:
//
//	geofences:{uid}           GEO set of POI ids
//	geofences:{uid}:config    radius_m, loitering_delay_ms, registered_at
//	geofences:{uid}:dwell     POI id -> unix ms the current stay began
//	geofences:{uid}:notified  POI ids already notified during the current stay
type GeofenceService struct {
	redisClient *redis.Client
	cfg         GeofenceConfig
}

func NewGeofenceService(redisClient *redis.Client, cfg GeofenceConfig) *GeofenceService {
	return &GeofenceService{redisClient: redisClient, cfg: cfg}
}

func geofenceKey(userID string) string         { return "geofences:" + userID }
func geofenceConfigKey(userID string) string   { return geofenceKey(userID) + ":config" }
func geofenceDwellKey(userID string) string    { return geofenceKey(userID) + ":dwell" }
func geofenceNotifiedKey(userID string) string { return geofenceKey(userID) + ":notified" }

func geofenceKeys(userID string) []string {
	return []string{
		geofenceKey(userID),
		geofenceConfigKey(userID),
		geofenceDwellKey(userID),
		geofenceNotifiedKey(userID),
	}
}

// BuildGeofences makes one region per POI that has a coordinate.
func BuildGeofences(pois []models.POI, cfg GeofenceConfig) []models.Geofence {
	regions := make([]models.Geofence, 0, len(pois))
	for _, poi := range pois {
		if !poi.HasLocation() {
			continue
		}
		regions = append(regions, models.Geofence{
			POIID:          poi.ID,
			Latitude:       poi.Location.Latitude(),
			Longitude:      poi.Location.Longitude(),
			RadiusMeters:   cfg.RadiusMeters,
			LoiteringDelay: cfg.LoiteringDelay,
		})
	}
	return regions
}

// Register replaces the user's regions with one per coordinate-bearing POI.
// The batch is applied in a single MULTI/EXEC: either every region is stored
// or the call fails and the previous registration is left in place.
func (s *GeofenceService) Register(ctx context.Context, userID string, pois []models.POI) ([]models.Geofence, error) {
	ctx, span := tracer.Start(ctx, "GeofenceService.Register")
	defer span.End()

	regions := BuildGeofences(pois, s.cfg)
	span.SetAttributes(attribute.Int("geofence.count", len(regions)))

	locations := make([]*redis.GeoLocation, 0, len(regions))
	for _, r := range regions {
		locations = append(locations, &redis.GeoLocation{Name: r.POIID, Longitude: r.Longitude, Latitude: r.Latitude})
	}

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, geofenceKeys(userID)...)
		if len(locations) > 0 {
			pipe.GeoAdd(ctx, geofenceKey(userID), locations...)
		}
		pipe.HSet(ctx, geofenceConfigKey(userID),
			"radius_m", s.cfg.RadiusMeters,
			"loitering_delay_ms", s.cfg.LoiteringDelay.Milliseconds(),
			"registered_at", time.Now().UnixMilli(),
		)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("registering geofences: %w", err)
	}

	logger.Zlog.Info("Registered geofences", zap.String("userID", userID), zap.Int("count", len(regions)))
	return regions, nil
}

func (s *GeofenceService) Deregister(ctx context.Context, userID string) error {
	if err := s.redisClient.Del(ctx, geofenceKeys(userID)...).Err(); err != nil {
		return fmt.Errorf("removing geofences: %w", err)
	}
	logger.Zlog.Info("Removed geofences", zap.String("userID", userID))
	return nil
}

// List returns the regions currently registered for the user.
func (s *GeofenceService) List(ctx context.Context, userID string) ([]models.Geofence, error) {
	cfg, ok, err := s.loadConfig(ctx, userID)
	if err != nil || !ok {
		return []models.Geofence{}, err
	}
	ids, err := s.redisClient.ZRange(ctx, geofenceKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing geofences: %w", err)
	}
	if len(ids) == 0 {
		return []models.Geofence{}, nil
	}
	positions, err := s.redisClient.GeoPos(ctx, geofenceKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading geofence positions: %w", err)
	}

	regions := make([]models.Geofence, 0, len(ids))
	for i, id := range ids {
		if positions[i] == nil {
			continue
		}
		regions = append(regions, models.Geofence{
			POIID:          id,
			Latitude:       positions[i].Latitude,
			Longitude:      positions[i].Longitude,
			RadiusMeters:   cfg.RadiusMeters,
			LoiteringDelay: cfg.LoiteringDelay,
		})
	}
	return regions, nil
}

// Evaluate records a location report and returns the regions whose dwell
// delay has just elapsed. Each stay fires at most once; leaving a region
// resets its clock.
func (s *GeofenceService) Evaluate(ctx context.Context, userID string, lat, lon float64, now time.Time) ([]models.DwellTrigger, error) {
	ctx, span := tracer.Start(ctx, "GeofenceService.Evaluate")
	defer span.End()

	cfg, ok, err := s.loadConfig(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}

	geoResults, err := s.redisClient.GeoRadius(ctx, geofenceKey(userID), lon, lat, &redis.GeoRadiusQuery{
		Radius: cfg.RadiusMeters,
		Unit:   "m",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("querying geofences: %w", err)
	}
	inside := make(map[string]bool, len(geoResults))
	for _, r := range geoResults {
		inside[r.Name] = true
	}

	dwell, err := s.redisClient.HGetAll(ctx, geofenceDwellKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading dwell state: %w", err)
	}

	for poiID := range dwell {
		if inside[poiID] {
			continue
		}
		_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, geofenceDwellKey(userID), poiID)
			pipe.SRem(ctx, geofenceNotifiedKey(userID), poiID)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("clearing dwell state: %w", err)
		}
	}

	var triggers []models.DwellTrigger
	for poiID := range inside {
		entered := now
		if raw, ok := dwell[poiID]; ok {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				entered = time.UnixMilli(ms)
			}
		} else if err := s.redisClient.HSetNX(ctx, geofenceDwellKey(userID), poiID, now.UnixMilli()).Err(); err != nil {
			return nil, fmt.Errorf("recording entry: %w", err)
		}

		if now.Sub(entered) < cfg.LoiteringDelay {
			continue
		}
		added, err := s.redisClient.SAdd(ctx, geofenceNotifiedKey(userID), poiID).Result()
		if err != nil {
			return nil, fmt.Errorf("marking notified: %w", err)
		}
		if added == 0 {
			continue
		}
		triggers = append(triggers, models.DwellTrigger{POIID: poiID, EnteredAt: entered, FiredAt: now})
	}

	span.SetAttributes(attribute.Int("geofence.inside", len(inside)), attribute.Int("geofence.triggered", len(triggers)))
	return triggers, nil
}

func (s *GeofenceService) loadConfig(ctx context.Context, userID string) (GeofenceConfig, bool, error) {
	raw, err := s.redisClient.HGetAll(ctx, geofenceConfigKey(userID)).Result()
	if err != nil {
		return GeofenceConfig{}, false, fmt.Errorf("reading geofence config: %w", err)
	}
	if len(raw) == 0 {
		return GeofenceConfig{}, false, nil
	}
	radius, err := strconv.ParseFloat(raw["radius_m"], 64)
	if err != nil {
		return GeofenceConfig{}, false, fmt.Errorf("parsing geofence radius: %w", err)
	}
	delayMS, err := strconv.ParseInt(raw["loitering_delay_ms"], 10, 64)
	if err != nil {
		return GeofenceConfig{}, false, fmt.Errorf("parsing loitering delay: %w", err)
	}
	return GeofenceConfig{RadiusMeters: radius, LoiteringDelay: time.Duration(delayMS) * time.Millisecond}, true, nil
}
