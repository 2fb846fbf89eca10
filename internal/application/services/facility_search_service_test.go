package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medlocator/hospital-map/backend/internal/classification"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	apperrors "github.com/medlocator/hospital-map/backend/pkg/errors"
	"github.com/medlocator/hospital-map/backend/pkg/geo"
)

var testTokens = map[entities.FacilityCategory][]string{
	entities.CategoryHospital:   {"amenity=hospital"},
	entities.CategoryClinic:     {"amenity=hospital", "amenity=clinic"},
	entities.CategoryDoctor:     {"amenity=doctors"},
	entities.CategoryPharmacy:   {"amenity=pharmacy"},
	entities.CategoryLaboratory: {"amenity=laboratory"},
}

// Casablanca city centre
var casablanca = entities.ReferencePoint{Lat: 33.5731, Lng: -7.5898, Name: "Point sélectionné"}

func newTestSearchService(provider providers.PlacesProvider, cache providers.CacheProvider) *FacilitySearchService {
	return NewFacilitySearchService(
		provider,
		classification.NewClassifier(classification.DefaultKeywords()),
		nil,
		cache,
		nil,
		SearchOptions{
			LatitudeFilter:    true,
			MaxLatitude:       35.92,
			DedupRadiusMeters: 30,
			MaxRadiusMeters:   50000,
			Concurrency:       4,
			CacheTTLSeconds:   300,
			Pager:             fastPagerConfig(),
		},
	)
}

func pageOf(places ...providers.PlaceRecord) *providers.PlacesPage {
	return &providers.PlacesPage{Places: places}
}

func TestFacilitySearch_PartialCategoryFailure(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(nil, serverError())
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(
		place("node/1", "Pharmacie Ibn Sina", 33.5741, -7.5898, "pharmacy"),
	), nil)

	svc := newTestSearchService(provider, nil)
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryHospital, entities.CategoryPharmacy},
	})
	require.NoError(t, err)

	require.Len(t, result.Facilities, 1)
	assert.Equal(t, entities.CategoryPharmacy, result.Facilities[0].Type)
	assert.Equal(t, []entities.FacilityCategory{entities.CategoryHospital}, result.FailedCategories)
	assert.Equal(t, casablanca, result.Reference)
	provider.AssertNumberOfCalls(t, "FetchPage", 4) // 3 attempts on the failing token
}

func TestFacilitySearch_AllCategoriesFail(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", mock.Anything, "").Return(nil, clientError())

	svc := newTestSearchService(provider, nil)
	_, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryHospital, entities.CategoryPharmacy},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "hospital")
	assert.Contains(t, err.Error(), "pharmacy")
}

func TestFacilitySearch_SharedTokenKeepsCategoryAlive(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(nil, clientError())
	provider.On("FetchPage", "amenity=clinic", "").Return(pageOf(
		place("node/7", "Clinique Al Amal", 33.5750, -7.5898, "clinic"),
	), nil)

	svc := newTestSearchService(provider, nil)
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryClinic},
	})
	require.NoError(t, err)
	assert.Empty(t, result.FailedCategories)
	require.Len(t, result.Facilities, 1)
	assert.Equal(t, entities.CategoryClinic, result.Facilities[0].Type)
}

func TestFacilitySearch_Pipeline(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(pageOf(
		place("node/10", "Hôpital Moulay Youssef", 33.5900, -7.5898, "hospital"),
		place("node/11", "Polyclinique Al Amal", 33.5740, -7.5898, "hospital"),
		place("node/12", "Hospital de Tarifa", 36.0130, -5.6040, "hospital"),
	), nil)
	provider.On("FetchPage", "amenity=clinic", "").Return(pageOf(), nil)
	provider.On("FetchPage", "amenity=doctors", "").Return(pageOf(
		func() providers.PlaceRecord {
			p := place("node/20", "Dr Alaoui", 33.5760, -7.5898, "doctors")
			p.Specialties = []string{"cardiology"}
			return p
		}(),
		place("node/21", "Banque Populaire", 33.5735, -7.5898, "doctors"),
	), nil)
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(
		place("node/30", "Pharmacie Ibn Sina", 33.5733, -7.5898, "pharmacy"),
		place("node/31", "Ibn Sina", 33.5734, -7.5898, "pharmacy"),
	), nil)
	provider.On("FetchPage", "amenity=laboratory", "").Return(pageOf(), nil)

	svc := newTestSearchService(provider, nil)
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 5000,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Facilities))
	for _, f := range result.Facilities {
		ids = append(ids, f.ID)
	}
	// Tarifa is north of the cut-off and the two Ibn Sina records are one pharmacy
	assert.Equal(t, []string{"node/30", "node/21", "node/11", "node/20", "node/10"}, ids)

	assert.Equal(t, entities.CategoryPharmacy, result.Facilities[0].Type)
	assert.Equal(t, entities.CategoryOther, result.Facilities[1].Type)
	assert.Equal(t, entities.CategoryClinic, result.Facilities[2].Type)
	assert.Equal(t, entities.CategoryDoctor, result.Facilities[3].Type)
	assert.Equal(t, "Cardiologie", result.Facilities[3].Specialty)
	assert.Equal(t, entities.CategoryHospital, result.Facilities[4].Type)

	for i := 1; i < len(result.Facilities); i++ {
		assert.LessOrEqual(t, result.Facilities[i-1].Distance, result.Facilities[i].Distance)
	}
	assert.InDelta(t, 1.879, result.Facilities[4].Distance, 0.01)
	assert.Empty(t, result.FailedCategories)
}

func TestFacilitySearch_OtherOnlyWhenRequested(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=doctors", "").Return(pageOf(
		place("node/21", "Banque Populaire", 33.5735, -7.5898, "doctors"),
	), nil)
	provider.On("FetchPage", mock.Anything, "").Return(pageOf(), nil)

	svc := newTestSearchService(provider, nil)
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryOther},
	})
	require.NoError(t, err)
	require.Len(t, result.Facilities, 1)
	assert.Equal(t, entities.CategoryOther, result.Facilities[0].Type)
}

func TestFacilitySearch_UnfilteredSearchKeepsOther(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(pageOf(
		place("node/22", "Foyer Lalla Hasna", 33.5736, -7.5898, "social_facility"),
	), nil)
	provider.On("FetchPage", mock.Anything, "").Return(pageOf(), nil)

	svc := newTestSearchService(provider, nil)
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
	})
	require.NoError(t, err)
	require.Len(t, result.Facilities, 1)
	assert.Equal(t, entities.CategoryOther, result.Facilities[0].Type)
	assert.Empty(t, result.FailedCategories)
}

func TestFacilitySearch_LatitudeFilterCanBeDisabled(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(pageOf(
		place("node/12", "Hospital de Tarifa", 36.0130, -5.6040, "hospital"),
	), nil)

	svc := newTestSearchService(provider, nil)
	svc.opts.LatitudeFilter = false
	result, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    entities.ReferencePoint{Lat: 35.78, Lng: -5.81},
		RadiusMeters: 50000,
		Categories:   []entities.FacilityCategory{entities.CategoryHospital},
	})
	require.NoError(t, err)
	assert.Len(t, result.Facilities, 1)
}

func TestFacilitySearch_CachesCompleteResults(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(
		place("node/1", "Pharmacie Ibn Sina", 33.5741, -7.5898, "pharmacy"),
	), nil).Once()

	cache := newMemoryCache()
	svc := newTestSearchService(provider, cache)
	req := entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryPharmacy},
	}

	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Facilities, second.Facilities)
	assert.Equal(t, 1, cache.sets)
	provider.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestFacilitySearch_CacheHitMeasuresFromNewReference(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(
		place("node/1", "Pharmacie Ibn Sina", 33.5741, -7.5898, "pharmacy"),
	), nil).Once()

	svc := newTestSearchService(provider, newMemoryCache())
	search := func(ref entities.ReferencePoint) *entities.SearchResult {
		result, err := svc.Search(context.Background(), entities.SearchRequest{
			Reference:    ref,
			RadiusMeters: 2000,
			Categories:   []entities.FacilityCategory{entities.CategoryPharmacy},
		})
		require.NoError(t, err)
		require.Len(t, result.Facilities, 1)
		return result
	}

	// both points round to the same cache cell
	first := entities.ReferencePoint{Lat: 33.57306, Lng: -7.58984}
	second := entities.ReferencePoint{Lat: 33.57314, Lng: -7.58976}

	a := search(first)
	b := search(second)

	provider.AssertNumberOfCalls(t, "FetchPage", 1)
	assert.InDelta(t, geo.DistanceKm(first.Lat, first.Lng, 33.5741, -7.5898), a.Facilities[0].Distance, 0.001)
	assert.InDelta(t, geo.DistanceKm(second.Lat, second.Lng, 33.5741, -7.5898), b.Facilities[0].Distance, 0.001)
	assert.Less(t, b.Facilities[0].Distance, a.Facilities[0].Distance)
	assert.Equal(t, second, b.Reference)
}

func TestFacilitySearch_CacheHitResorts(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(
		place("node/1", "Pharmacie Nord", 33.57320, -7.5898, "pharmacy"),
		place("node/2", "Pharmacie Sud", 33.57300, -7.5898, "pharmacy"),
	), nil).Once()

	svc := newTestSearchService(provider, newMemoryCache())
	req := entities.SearchRequest{
		Reference:    entities.ReferencePoint{Lat: 33.57306, Lng: -7.5898},
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryPharmacy},
	}
	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Facilities, 2)
	assert.Equal(t, "node/2", first.Facilities[0].ID)

	req.Reference = entities.ReferencePoint{Lat: 33.57314, Lng: -7.5898}
	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Facilities, 2)
	assert.Equal(t, "node/1", second.Facilities[0].ID)
	provider.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestWithDistancesFrom_OrdersOnExactDistance(t *testing.T) {
	ref := entities.ReferencePoint{Lat: 33.5731, Lng: -7.5898}
	// about 0.19 m apart, so both round to the same meter
	far := entities.MedicalFacility{ID: "a", Name: "A", Lat: 33.5731, Lng: -7.58655}
	near := entities.MedicalFacility{ID: "b", Name: "B", Lat: 33.5731, Lng: -7.586552}

	out := withDistancesFrom(ref, []entities.MedicalFacility{far, near})

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
	assert.LessOrEqual(t, out[0].Distance, out[1].Distance)
}

func TestFacilitySearch_PartialResultsAreNotCached(t *testing.T) {
	provider := newMockPlacesProvider(testTokens)
	provider.On("FetchPage", "amenity=hospital", "").Return(nil, clientError())
	provider.On("FetchPage", "amenity=pharmacy", "").Return(pageOf(), nil)

	cache := newMemoryCache()
	svc := newTestSearchService(provider, cache)
	_, err := svc.Search(context.Background(), entities.SearchRequest{
		Reference:    casablanca,
		RadiusMeters: 2000,
		Categories:   []entities.FacilityCategory{entities.CategoryHospital, entities.CategoryPharmacy},
	})
	require.NoError(t, err)
	assert.Zero(t, cache.sets)
}

func TestFacilitySearch_Validation(t *testing.T) {
	svc := newTestSearchService(newMockPlacesProvider(testTokens), nil)

	tests := []struct {
		name  string
		req   entities.SearchRequest
		field string
	}{
		{"zero radius", entities.SearchRequest{Reference: casablanca, RadiusMeters: 0}, "radius"},
		{"radius too large", entities.SearchRequest{Reference: casablanca, RadiusMeters: 60000}, "radius"},
		{"latitude out of range", entities.SearchRequest{Reference: entities.ReferencePoint{Lat: 91}, RadiusMeters: 1000}, "location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tt.req)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			require.NotEmpty(t, appErr.Fields)
			assert.Equal(t, tt.field, appErr.Fields[0].Field)
		})
	}
}

func TestFacilitySearch_ReferenceFromHospital(t *testing.T) {
	repo := new(MockHospitalRepository)
	repo.On("FindByID", mock.Anything, int64(7)).Return(&entities.Hospital{
		ID:       7,
		Name:     "CHU Ibn Rochd",
		Status:   entities.HospitalStatusActive,
		Location: entities.Location{Latitude: 33.58, Longitude: -7.62},
	}, nil)
	repo.On("FindByID", mock.Anything, int64(8)).Return(nil, apperrors.NewNotFoundError("Hôpital non trouvé"))

	svc := NewFacilitySearchService(newMockPlacesProvider(testTokens), classification.NewClassifier(classification.DefaultKeywords()), repo, nil, nil, SearchOptions{})

	ref, err := svc.ReferenceFromHospital(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "CHU Ibn Rochd", ref.Name)
	assert.Equal(t, 33.58, ref.Lat)
	require.NotNil(t, ref.HospitalID)
	assert.Equal(t, int64(7), *ref.HospitalID)
	require.NotNil(t, ref.Status)
	assert.Equal(t, entities.HospitalStatusActive, *ref.Status)
	assert.Equal(t, "green", ref.MarkerColor)

	_, err = svc.ReferenceFromHospital(context.Background(), 8)
	assert.True(t, apperrors.IsNotFound(err))
}
