package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
)

// MockPlacesProvider is a mock implementation of PlacesProvider
type MockPlacesProvider struct {
	mock.Mock
	kind   providers.ProviderKind
	tokens map[entities.FacilityCategory][]string
}

func newMockPlacesProvider(tokens map[entities.FacilityCategory][]string) *MockPlacesProvider {
	return &MockPlacesProvider{kind: providers.ProviderOverpass, tokens: tokens}
}

func (m *MockPlacesProvider) Kind() providers.ProviderKind {
	return m.kind
}

func (m *MockPlacesProvider) TypeTokens(category entities.FacilityCategory) []string {
	return m.tokens[category]
}

func (m *MockPlacesProvider) FetchPage(ctx context.Context, query providers.PlaceQuery, pageToken string) (*providers.PlacesPage, error) {
	args := m.Called(query.TypeToken, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.PlacesPage), args.Error(1)
}

// MockHospitalRepository is a mock implementation of HospitalRepository
type MockHospitalRepository struct {
	mock.Mock
}

func (m *MockHospitalRepository) Create(ctx context.Context, hospital *entities.Hospital) (*entities.Hospital, error) {
	args := m.Called(ctx, hospital)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) FindByID(ctx context.Context, id int64) (*entities.Hospital, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) FindAll(ctx context.Context, filter repositories.HospitalFilter, page repositories.Pagination) ([]*entities.Hospital, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) FindNearby(ctx context.Context, query repositories.NearbyQuery) ([]*entities.HospitalWithDistance, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HospitalWithDistance), args.Error(1)
}

func (m *MockHospitalRepository) Update(ctx context.Context, id int64, patch entities.HospitalPatch) (*entities.Hospital, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHospitalRepository) Count(ctx context.Context, filter repositories.HospitalFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// memoryCache is an in-process CacheProvider for tests
type memoryCache struct {
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.data = map[string][]byte{}
	return nil
}
