package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
)

const googleNearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

var googleTokens = map[entities.FacilityCategory][]string{
	entities.CategoryHospital:   {"hospital"},
	entities.CategoryClinic:     {"hospital", "health"},
	entities.CategoryDoctor:     {"doctor", "dentist", "physiotherapist"},
	entities.CategoryPharmacy:   {"pharmacy", "drugstore"},
	entities.CategoryLaboratory: {"health"},
}

// GoogleOptions configures a GoogleProvider. Zero values get defaults.
type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	Region     string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Metrics    *observability.Metrics
}

// GoogleProvider queries the Google Places Nearby Search API.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
}

// NewGoogleProvider creates a Google Places provider.
func NewGoogleProvider(opts GoogleOptions) (*GoogleProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("google: API key is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = googleNearbySearchURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &GoogleProvider{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		region:     opts.Region,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
	}, nil
}

// Kind identifies the provider
func (g *GoogleProvider) Kind() providers.ProviderKind {
	return providers.ProviderGoogle
}

// TypeTokens returns Google place types for a category
func (g *GoogleProvider) TypeTokens(category entities.FacilityCategory) []string {
	return googleTokens[category]
}

// FetchPage fetches one page of nearby results. A continuation request carries only
// the page token and the key, as the API requires.
func (g *GoogleProvider) FetchPage(ctx context.Context, query providers.PlaceQuery, pageToken string) (*providers.PlacesPage, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	} else {
		params.Set("location", fmt.Sprintf("%f,%f", query.Latitude, query.Longitude))
		params.Set("radius", fmt.Sprintf("%.0f", query.RadiusMeters))
		params.Set("type", query.TypeToken)
		if g.region != "" {
			params.Set("region", g.region)
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	page, err := g.do(req, pageToken != "")
	observability.RecordProviderMetric(ctx, g.metrics, string(providers.ProviderGoogle), query.TypeToken, outcomeOf(err), time.Since(start))
	return page, err
}

func (g *GoogleProvider) do(req *http.Request, continuation bool) (*providers.PlacesPage, error) {
	endpoint := req.URL.Host + req.URL.Path

	body, err := doRequest(g.httpClient, providers.ProviderGoogle, req)
	if err != nil {
		return nil, err
	}

	var resp googleNearbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError(providers.ProviderGoogle, endpoint, err)
	}
	if err := resp.statusError(endpoint, continuation); err != nil {
		return nil, err
	}

	page := &providers.PlacesPage{
		Places:        make([]providers.PlaceRecord, 0, len(resp.Results)),
		NextPageToken: resp.NextPageToken,
	}
	for _, r := range resp.Results {
		if r.BusinessStatus == "CLOSED_PERMANENTLY" {
			continue
		}
		rec := r.toRecord()
		if rec.Validate() != nil {
			continue
		}
		page.Places = append(page.Places, rec)
	}
	return page, nil
}

type googleNearbyResponse struct {
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
	NextPageToken string        `json:"next_page_token"`
	Results       []googlePlace `json:"results"`
}

// statusError maps the API status field. INVALID_REQUEST on a continuation means the
// page token is not valid yet, which resolves itself after a short wait.
func (r googleNearbyResponse) statusError(endpoint string, continuation bool) error {
	pErr := &providers.ProviderError{
		Provider: providers.ProviderGoogle,
		Endpoint: endpoint,
		Status:   r.Status,
		Body:     r.ErrorMessage,
	}
	switch r.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		pErr.StatusCode = http.StatusTooManyRequests
		pErr.Temporary = true
	case "UNKNOWN_ERROR":
		pErr.StatusCode = http.StatusInternalServerError
	case "INVALID_REQUEST":
		pErr.StatusCode = http.StatusBadRequest
		pErr.Temporary = continuation
	case "REQUEST_DENIED":
		pErr.StatusCode = http.StatusForbidden
	default:
		pErr.StatusCode = http.StatusBadGateway
	}
	if pErr.Body == "" {
		pErr.Body = r.Status
	}
	return pErr
}

type googlePlace struct {
	PlaceID        string   `json:"place_id"`
	Name           string   `json:"name"`
	Vicinity       string   `json:"vicinity"`
	Types          []string `json:"types"`
	BusinessStatus string   `json:"business_status"`
	Geometry       struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (p googlePlace) toRecord() providers.PlaceRecord {
	return providers.PlaceRecord{
		Source:     providers.ProviderGoogle,
		ID:         p.PlaceID,
		Name:       strings.TrimSpace(p.Name),
		Latitude:   p.Geometry.Location.Lat,
		Longitude:  p.Geometry.Location.Lng,
		Categories: p.Types,
		Address:    strings.TrimSpace(p.Vicinity),
	}
}
