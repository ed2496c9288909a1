package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"history-guide/models"
	"history-guide/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, client
}

type memPOIs struct {
	mu   sync.Mutex
	pois map[string]models.POI
	seq  int
	err  error
}

func newMemPOIs(pois ...models.POI) *memPOIs {
	m := &memPOIs{pois: map[string]models.POI{}}
	for _, p := range pois {
		m.pois[p.ID] = p
	}
	return m
}

func (m *memPOIs) List(context.Context) ([]models.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.POI, 0, len(m.pois))
	for _, p := range m.pois {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPOIs) ListLatest(ctx context.Context, limit int) ([]models.POI, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memPOIs) Get(_ context.Context, id string) (models.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.POI{}, m.err
	}
	p, ok := m.pois[id]
	if !ok {
		return models.POI{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memPOIs) GetMany(_ context.Context, ids []string) ([]models.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []models.POI{}
	for _, id := range ids {
		if p, ok := m.pois[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPOIs) Create(_ context.Context, poi models.POI) (models.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.POI{}, m.err
	}
	m.seq++
	poi.ID = fmt.Sprintf("poi-%d", m.seq)
	poi.CreatedAt = time.Now()
	m.pois[poi.ID] = poi
	return poi, nil
}

func (m *memPOIs) Replace(_ context.Context, poi models.POI) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.pois[poi.ID]; !ok {
		return repository.ErrNotFound
	}
	m.pois[poi.ID] = poi
	return nil
}

func (m *memPOIs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.pois[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.pois, id)
	return nil
}

func (m *memPOIs) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pois)), m.err
}

func (m *memPOIs) InsertMany(ctx context.Context, pois []models.POI) error {
	for _, p := range pois {
		if _, err := m.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

type memRatings struct {
	mu         sync.Mutex
	values     map[string]map[string]float64
	upsertErr  error
	summaryErr error
	upserts    int
}

func newMemRatings() *memRatings {
	return &memRatings{values: map[string]map[string]float64{}}
}

func (m *memRatings) Upsert(_ context.Context, r models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.values[r.POIID] == nil {
		m.values[r.POIID] = map[string]float64{}
	}
	m.values[r.POIID][r.UserID] = r.Value
	return nil
}

func (m *memRatings) Get(_ context.Context, poiID, userID string) (models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[poiID][userID]
	if !ok {
		return models.Rating{}, repository.ErrNotFound
	}
	return models.Rating{POIID: poiID, UserID: userID, Value: v}, nil
}

func (m *memRatings) Summary(_ context.Context, poiID string) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summaryErr != nil {
		return models.RatingSummary{}, m.summaryErr
	}
	var s models.RatingSummary
	for _, v := range m.values[poiID] {
		s.Sum += v
		s.Count++
	}
	return s, nil
}

type memUsers struct {
	mu       sync.Mutex
	users    map[string]models.User
	writeErr error
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: map[string]models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, u := range m.users {
		if u.Email != "" && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (m *memUsers) update(userID string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	u, ok := m.users[userID]
	if !ok {
		u = models.User{ID: userID}
	}
	fn(&u)
	m.users[userID] = u
	return nil
}

func (m *memUsers) AddVisited(_ context.Context, userID, poiID string) error {
	return m.update(userID, func(u *models.User) {
		if !u.HasVisited(poiID) {
			u.VisitedPOIs = append(u.VisitedPOIs, poiID)
		}
	})
}

func (m *memUsers) RemoveVisited(_ context.Context, userID, poiID string) error {
	return m.update(userID, func(u *models.User) {
		kept := u.VisitedPOIs[:0]
		for _, id := range u.VisitedPOIs {
			if id != poiID {
				kept = append(kept, id)
			}
		}
		u.VisitedPOIs = kept
	})
}

func (m *memUsers) SetNotifications(_ context.Context, userID string, enabled bool) error {
	return m.update(userID, func(u *models.User) { u.NearbyNotifications = enabled })
}

type mockGeofences struct {
	mock.Mock
}

func (m *mockGeofences) Register(ctx context.Context, userID string, pois []models.POI) ([]models.Geofence, error) {
	args := m.Called(ctx, userID, pois)
	regions, _ := args.Get(0).([]models.Geofence)
	return regions, args.Error(1)
}

func (m *mockGeofences) Deregister(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockGeofences) List(ctx context.Context, userID string) ([]models.Geofence, error) {
	args := m.Called(ctx, userID)
	regions, _ := args.Get(0).([]models.Geofence)
	return regions, args.Error(1)
}

func (m *mockGeofences) Evaluate(ctx context.Context, userID string, lat, lon float64, now time.Time) ([]models.DwellTrigger, error) {
	args := m.Called(ctx, userID, lat, lon, now)
	triggers, _ := args.Get(0).([]models.DwellTrigger)
	return triggers, args.Error(1)
}

type publishedEvent struct {
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Key: key, Payload: v})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// Swansea coordinates used across tests.
var (
	castle  = models.POI{ID: "castle", Name: "Swansea Castle", Location: models.NewGeoPoint(51.6207, -3.9418)}
	museum  = models.POI{ID: "museum", Name: "Swansea Museum", Location: models.NewGeoPoint(51.6173, -3.9373)}
	pier    = models.POI{ID: "pier", Name: "Mumbles Pier", Location: models.NewGeoPoint(51.5672, -3.9757)}
	tramway = models.POI{ID: "tramway", Name: "Swansea and Mumbles Railway"}
)
