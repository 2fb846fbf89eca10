package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

// ProviderKind discriminates the source of a PlaceRecord.
type ProviderKind string

const (
	ProviderOverpass ProviderKind = "overpass"
	ProviderGoogle   ProviderKind = "google"
)

// PlacesProvider is an external place-search service.
type PlacesProvider interface {
	// Kind identifies the provider
	Kind() ProviderKind

	// TypeTokens maps a facility category to the provider-specific type tokens to query
	TypeTokens(category entities.FacilityCategory) []string

	// FetchPage fetches one page of places. pageToken is empty for the first page.
	FetchPage(ctx context.Context, query PlaceQuery, pageToken string) (*PlacesPage, error)
}

// PlaceQuery is one provider query: a circle and a single type token.
type PlaceQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	TypeToken    string
}

// PlacesPage is one page of validated provider results.
type PlacesPage struct {
	Places        []PlaceRecord
	NextPageToken string
}

// PlaceRecord is a provider result after validation at the network boundary.
// Categories holds the provider's own category tags (OSM amenity/healthcare values,
// Google place types); Specialties holds raw specialty tokens.
type PlaceRecord struct {
	Source       ProviderKind
	ID           string
	Name         string
	Latitude     float64
	Longitude    float64
	Categories   []string
	Specialties  []string
	Phone        string
	Address      string
	Website      string
	OpeningHours string
	Wheelchair   string
	Emergency    bool
}

// Validate checks the invariants every record must satisfy before classification.
func (r PlaceRecord) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("place has no identifier")
	case r.Name == "":
		return fmt.Errorf("place %s has no name", r.ID)
	case math.IsNaN(r.Latitude) || math.IsNaN(r.Longitude),
		r.Latitude < -90 || r.Latitude > 90,
		r.Longitude < -180 || r.Longitude > 180:
		return fmt.Errorf("place %s has invalid coordinates %f,%f", r.ID, r.Latitude, r.Longitude)
	}
	return nil
}

// ProviderError describes a failed provider call.
type ProviderError struct {
	Provider   ProviderKind
	Endpoint   string
	StatusCode int
	Status     string
	Timeout    bool
	Body       string
	Err        error

	// Temporary marks provider-reported transient failures carried in a 2xx body
	Temporary bool
}

func (e *ProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request to %s timed out", e.Provider, e.Endpoint)
	case e.Status != "" && e.Body != "":
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Status, e.Body)
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: API error (%d): %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: API error (%d) %s", e.Provider, e.StatusCode, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: request failed", e.Provider)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed if repeated: timeouts, transport
// failures, temporary provider statuses and 5xx responses are retryable, 4xx
// responses are not.
func (e *ProviderError) Retryable() bool {
	if e.Timeout || e.Temporary {
		return true
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable reports whether err is a retryable provider failure. Errors that are
// not ProviderErrors are treated as not retryable.
func IsRetryable(err error) bool {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Retryable()
	}
	return false
}
