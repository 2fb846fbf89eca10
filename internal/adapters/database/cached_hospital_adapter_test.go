package database

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
)

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
	return args.Get(0).([]*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) FindNearby(ctx context.Context, query repositories.NearbyQuery) ([]*entities.HospitalWithDistance, error) {
	args := m.Called(ctx, query)
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

type mapCache map[string][]byte

func (c mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (c mapCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c[key] = value
	return nil
}

func (c mapCache) Delete(ctx context.Context, key string) error {
	delete(c, key)
	return nil
}

func (c mapCache) DeletePattern(ctx context.Context, pattern string) error {
	for k := range c {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c, k)
		}
	}
	return nil
}

func TestCachedHospitalAdapter_FindByIDReadsThrough(t *testing.T) {
	repo := new(MockHospitalRepository)
	cache := mapCache{}
	adapter := NewCachedHospitalAdapter(repo, cache, nil)

	repo.On("FindByID", mock.Anything, int64(3)).
		Return(&entities.Hospital{ID: 3, Name: "Hôpital Avicenne"}, nil).Once()

	first, err := adapter.FindByID(context.Background(), 3)
	require.NoError(t, err)
	second, err := adapter.FindByID(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Contains(t, cache, "hospital:3")
	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedHospitalAdapter_UpdateInvalidates(t *testing.T) {
	repo := new(MockHospitalRepository)
	cache := mapCache{
		"hospital:3":                 []byte(`{"id":3,"name":"old"}`),
		"hospitals:count::":          []byte(`4`),
		"hospitals:count:Générale::": []byte(`2`),
		"search:v1:abc":              []byte(`{}`),
	}
	adapter := NewCachedHospitalAdapter(repo, cache, nil)

	name := "new"
	repo.On("Update", mock.Anything, int64(3), entities.HospitalPatch{Name: &name}).
		Return(&entities.Hospital{ID: 3, Name: name}, nil)

	_, err := adapter.Update(context.Background(), 3, entities.HospitalPatch{Name: &name})
	require.NoError(t, err)

	assert.NotContains(t, cache, "hospital:3")
	assert.NotContains(t, cache, "hospitals:count::")
	assert.Contains(t, cache, "search:v1:abc")
}

func TestCachedHospitalAdapter_CountCaches(t *testing.T) {
	repo := new(MockHospitalRepository)
	adapter := NewCachedHospitalAdapter(repo, mapCache{}, nil)

	filter := repositories.HospitalFilter{Status: entities.HospitalStatusActive}
	repo.On("Count", mock.Anything, filter).Return(int64(9), nil).Once()

	for i := 0; i < 3; i++ {
		n, err := adapter.Count(context.Background(), filter)
		require.NoError(t, err)
		assert.Equal(t, int64(9), n)
	}
	repo.AssertNumberOfCalls(t, "Count", 1)
}

func TestCachedHospitalAdapter_DeleteMissingKeepsCache(t *testing.T) {
	repo := new(MockHospitalRepository)
	cache := mapCache{"hospitals:count::": []byte(`4`)}
	adapter := NewCachedHospitalAdapter(repo, cache, nil)

	repo.On("Delete", mock.Anything, int64(5)).Return(false, nil)

	deleted, err := adapter.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, cache, "hospitals:count::")
}
