package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"history-guide/models"
	apierrors "history-guide/utils/errors"
	"history-guide/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const poiGeoKey = "pois:geo"

func poiKey(id string) string {
	return "poi:" + id
}

// POIService owns POI records in the document store and keeps the Redis geo
// index used for map queries in step with them.
type POIService struct {
	repo        POIRepository
	redisClient *redis.Client
}

func NewPOIService(repo POIRepository, redisClient *redis.Client) *POIService {
	return &POIService{repo: repo, redisClient: redisClient}
}

func (s *POIService) ListPOIs(ctx context.Context) ([]models.POI, error) {
	pois, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return pois, nil
}

func (s *POIService) LatestPOIs(ctx context.Context, limit int) ([]models.POI, error) {
	pois, err := s.repo.ListLatest(ctx, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return pois, nil
}

func (s *POIService) GetPOI(ctx context.Context, id string) (models.POI, error) {
	poi, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.POI{}, storeError(err)
	}
	return poi, nil
}

func (s *POIService) CreatePOI(ctx context.Context, poi models.POI) (models.POI, error) {
	if err := validatePOI(poi); err != nil {
		return models.POI{}, err
	}
	created, err := s.repo.Create(ctx, poi)
	if err != nil {
		return models.POI{}, storeError(err)
	}
	s.index(ctx, created)

	logger.Zlog.Info("Created POI", zap.String("poiID", created.ID), zap.String("name", created.Name))
	return created, nil
}

// UpdatePOI replaces every field of an existing POI except its creation time.
func (s *POIService) UpdatePOI(ctx context.Context, poi models.POI) (models.POI, error) {
	if err := validatePOI(poi); err != nil {
		return models.POI{}, err
	}
	existing, err := s.repo.Get(ctx, poi.ID)
	if err != nil {
		return models.POI{}, storeError(err)
	}
	poi.CreatedAt = existing.CreatedAt
	if err := s.repo.Replace(ctx, poi); err != nil {
		return models.POI{}, storeError(err)
	}
	s.unindex(ctx, poi.ID)
	s.index(ctx, poi)

	logger.Zlog.Info("Updated POI", zap.String("poiID", poi.ID))
	return poi, nil
}

// DeletePOI removes the POI record only. Ratings and visited entries that
// reference it are left as they are.
func (s *POIService) DeletePOI(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.unindex(ctx, id)

	logger.Zlog.Info("Deleted POI", zap.String("poiID", id))
	return nil
}

// FindNearbyPOIs returns POIs within radius metres, closest first.
func (s *POIService) FindNearbyPOIs(ctx context.Context, lat, lon, radius float64) ([]models.POI, error) {
	if !models.ValidCoordinates(lat, lon) || radius <= 0 {
		return nil, apierrors.ErrInvalidInput
	}
	geoResults, err := s.redisClient.GeoRadius(ctx, poiGeoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:   radius,
		Unit:     "m",
		WithDist: true,
		Sort:     "ASC",
		Count:    50,
	}).Result()
	if err != nil {
		logger.Zlog.Error("Redis GeoRadius error", zap.Error(err))
		return nil, apierrors.Unavailable(err)
	}

	results := []models.POI{}
	for _, geoResult := range geoResults {
		poiJSON, err := s.redisClient.HGet(ctx, poiKey(geoResult.Name), "data").Result()
		if err != nil {
			logger.Zlog.Warn("Redis Get error for POI", zap.String("poiID", geoResult.Name), zap.Error(err))
			continue
		}
		var poi models.POI
		if err := json.Unmarshal([]byte(poiJSON), &poi); err != nil {
			logger.Zlog.Warn("Failed to unmarshal POI", zap.String("poiID", geoResult.Name), zap.Error(err))
			continue
		}
		results = append(results, poi)
	}

	logger.Zlog.Debug("Found nearby POIs", zap.Int("count", len(results)), zap.Float64("radius", radius))
	return results, nil
}

// RebuildIndex reloads the Redis geo index from the document store.
func (s *POIService) RebuildIndex(ctx context.Context) error {
	pois, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading POIs: %w", err)
	}
	if err := s.redisClient.Del(ctx, poiGeoKey).Err(); err != nil {
		return fmt.Errorf("clearing POI geo index: %w", err)
	}
	for _, poi := range pois {
		s.index(ctx, poi)
	}
	logger.Zlog.Info("Indexed POIs into Redis", zap.Int("count", len(pois)))
	return nil
}

// Seed inserts the POIs of a JSON file when the store holds none.
func (s *POIService) Seed(ctx context.Context, path string) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting POIs: %w", err)
	}
	if count > 0 {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer file.Close()

	var pois []models.POI
	if err := json.NewDecoder(file).Decode(&pois); err != nil {
		return fmt.Errorf("decoding seed file: %w", err)
	}
	if err := s.repo.InsertMany(ctx, pois); err != nil {
		return err
	}
	logger.Zlog.Info("Seeded POIs", zap.String("file", path), zap.Int("count", len(pois)))
	return nil
}

// index is best-effort; the document store stays authoritative.
func (s *POIService) index(ctx context.Context, poi models.POI) {
	if !poi.HasLocation() {
		return
	}
	poiJSON, err := json.Marshal(poi)
	if err != nil {
		logger.Zlog.Warn("Failed to marshal POI", zap.String("poiID", poi.ID), zap.Error(err))
		return
	}
	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, poiKey(poi.ID), "data", poiJSON)
		pipe.GeoAdd(ctx, poiGeoKey, &redis.GeoLocation{
			Name:      poi.ID,
			Longitude: poi.Location.Longitude(),
			Latitude:  poi.Location.Latitude(),
		})
		return nil
	})
	if err != nil {
		logger.Zlog.Warn("Failed to index POI", zap.String("poiID", poi.ID), zap.Error(err))
	}
}

func (s *POIService) unindex(ctx context.Context, id string) {
	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, poiGeoKey, id)
		pipe.Del(ctx, poiKey(id))
		return nil
	})
	if err != nil {
		logger.Zlog.Warn("Failed to remove POI from index", zap.String("poiID", id), zap.Error(err))
	}
}

func validatePOI(poi models.POI) error {
	if poi.Location == nil {
		return nil
	}
	if !poi.Location.Valid() || !models.ValidCoordinates(poi.Location.Latitude(), poi.Location.Longitude()) {
		return apierrors.ErrInvalidInput.WithDetails("location must be a valid latitude/longitude pair")
	}
	return nil
}
