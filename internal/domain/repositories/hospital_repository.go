package repositories

import (
	"context"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

// HospitalRepository defines the data operations on the hospitals table
type HospitalRepository interface {
	// Create inserts a hospital and returns it with its server-assigned fields
	Create(ctx context.Context, hospital *entities.Hospital) (*entities.Hospital, error)

	// FindByID retrieves a hospital, or a NOT_FOUND error
	FindByID(ctx context.Context, id int64) (*entities.Hospital, error)

	// FindAll lists hospitals matching filter, newest first
	FindAll(ctx context.Context, filter HospitalFilter, page Pagination) ([]*entities.Hospital, error)

	// FindNearby lists hospitals within the query radius, closest first
	FindNearby(ctx context.Context, query NearbyQuery) ([]*entities.HospitalWithDistance, error)

	// Update applies a partial update, or returns a NOT_FOUND error
	Update(ctx context.Context, id int64, patch entities.HospitalPatch) (*entities.Hospital, error)

	// Delete removes a hospital and reports whether a row was deleted
	Delete(ctx context.Context, id int64) (bool, error)

	// Count counts hospitals matching filter
	Count(ctx context.Context, filter HospitalFilter) (int64, error)
}

// HospitalFilter restricts list, nearby and count queries. Zero values match everything.
type HospitalFilter struct {
	Type   entities.HospitalType
	Status entities.HospitalStatus
}

// Pagination bounds a list query
type Pagination struct {
	Limit  int
	Offset int
}

// NearbyQuery describes a radius search over stored hospitals
type NearbyQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Filter       HospitalFilter
	Limit        int
}
