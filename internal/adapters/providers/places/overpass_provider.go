package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
)

const defaultOverpassQueryTimeout = 25

var overpassTokens = map[entities.FacilityCategory][]string{
	entities.CategoryHospital:   {"amenity=hospital"},
	entities.CategoryClinic:     {"amenity=clinic"},
	entities.CategoryDoctor:     {"amenity=doctors", "amenity=dentist"},
	entities.CategoryPharmacy:   {"amenity=pharmacy"},
	entities.CategoryLaboratory: {"amenity=laboratory", "amenity=medical_laboratory", "healthcare=laboratory"},
}

// OverpassOptions configures an OverpassProvider. Zero values get defaults.
type OverpassOptions struct {
	Endpoints    []string
	HTTPClient   *http.Client
	Limiter      *rate.Limiter
	Metrics      *observability.Metrics
	QueryTimeout int // seconds, sent to Overpass as [timeout:N]

	// Breaker tuning per mirror
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type overpassMirror struct {
	url     string
	breaker *gobreaker.CircuitBreaker
}

// OverpassProvider queries OpenStreetMap data through public Overpass mirrors.
// Each call goes to the next mirror whose circuit is not open.
type OverpassProvider struct {
	mirrors      []*overpassMirror
	next         atomic.Uint32
	httpClient   *http.Client
	limiter      *rate.Limiter
	metrics      *observability.Metrics
	queryTimeout int
}

// NewOverpassProvider creates an Overpass provider.
func NewOverpassProvider(opts OverpassOptions) (*OverpassProvider, error) {
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("overpass: at least one endpoint is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultOverpassQueryTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	p := &OverpassProvider{
		httpClient:   opts.HTTPClient,
		limiter:      opts.Limiter,
		metrics:      opts.Metrics,
		queryTimeout: opts.QueryTimeout,
	}
	for _, endpoint := range opts.Endpoints {
		failures := opts.BreakerFailures
		p.mirrors = append(p.mirrors, &overpassMirror{
			url: endpoint,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        endpoint,
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     opts.BreakerCooldown,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= failures
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.Warn().
						Str("mirror", name).
						Str("from", from.String()).
						Str("to", to.String()).
						Msg("Overpass mirror circuit changed state")
				},
			}),
		})
	}
	return p, nil
}

// Kind identifies the provider
func (p *OverpassProvider) Kind() providers.ProviderKind {
	return providers.ProviderOverpass
}

// TypeTokens returns key=value OSM tag filters for a category
func (p *OverpassProvider) TypeTokens(category entities.FacilityCategory) []string {
	return overpassTokens[category]
}

// FetchPage runs one Overpass query. Overpass has no pagination: a continuation
// token always yields an empty final page.
func (p *OverpassProvider) FetchPage(ctx context.Context, query providers.PlaceQuery, pageToken string) (*providers.PlacesPage, error) {
	if pageToken != "" {
		return &providers.PlacesPage{}, nil
	}

	key, value, ok := strings.Cut(query.TypeToken, "=")
	if !ok || key == "" || value == "" {
		return nil, fmt.Errorf("overpass: invalid type token %q", query.TypeToken)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	mirror := p.pickMirror()
	start := time.Now()
	body, err := p.execute(ctx, mirror, buildOverpassQuery(query, key, value, p.queryTimeout))
	observability.RecordProviderMetric(ctx, p.metrics, string(providers.ProviderOverpass), query.TypeToken, outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError(providers.ProviderOverpass, mirror.url, err)
	}
	if len(resp.Elements) == 0 && isOverpassRuntimeError(resp.Remark) {
		return nil, &providers.ProviderError{
			Provider:  providers.ProviderOverpass,
			Endpoint:  mirror.url,
			Status:    "remark",
			Body:      truncate(resp.Remark, maxErrorBody),
			Temporary: true,
		}
	}

	page := &providers.PlacesPage{Places: make([]providers.PlaceRecord, 0, len(resp.Elements))}
	dropped := 0
	for _, el := range resp.Elements {
		rec, ok := el.toRecord()
		if !ok || rec.Validate() != nil {
			dropped++
			continue
		}
		page.Places = append(page.Places, rec)
	}
	if dropped > 0 {
		log.Debug().
			Str("mirror", mirror.url).
			Str("token", query.TypeToken).
			Int("dropped", dropped).
			Msg("Dropped invalid Overpass elements")
	}
	return page, nil
}

// pickMirror returns the next mirror in rotation whose circuit is not open. When
// every circuit is open it returns the next mirror anyway and the breaker rejects it.
func (p *OverpassProvider) pickMirror() *overpassMirror {
	n := uint32(len(p.mirrors))
	start := p.next.Add(1) - 1
	for i := uint32(0); i < n; i++ {
		m := p.mirrors[(start+i)%n]
		if m.breaker.State() != gobreaker.StateOpen {
			return m
		}
	}
	return p.mirrors[start%n]
}

// rejected carries a 4xx response through the breaker without counting it as a
// mirror failure.
type rejected struct{ err error }

func (p *OverpassProvider) execute(ctx context.Context, mirror *overpassMirror, query string) ([]byte, error) {
	res, err := mirror.breaker.Execute(func() (interface{}, error) {
		form := url.Values{"data": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror.url, strings.NewReader(form.Encode()))
		if err != nil {
			return rejected{err: err}, nil
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgent)

		body, err := doRequest(p.httpClient, providers.ProviderOverpass, req)
		if err != nil {
			if !providers.IsRetryable(err) {
				return rejected{err: err}, nil
			}
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &providers.ProviderError{
				Provider: providers.ProviderOverpass,
				Endpoint: mirror.url,
				Err:      err,
			}
		}
		return nil, err
	}

	switch v := res.(type) {
	case rejected:
		return nil, v.err
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("overpass: unexpected result %T", res)
	}
}

func buildOverpassQuery(q providers.PlaceQuery, key, value string, timeoutSeconds int) string {
	filter := fmt.Sprintf("[%q=%q]", key, value)
	around := fmt.Sprintf("(around:%.0f,%.6f,%.6f)", q.RadiusMeters, q.Latitude, q.Longitude)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeoutSeconds)
	fmt.Fprintf(&b, "  node%s%s;\n", filter, around)
	fmt.Fprintf(&b, "  way%s%s;\n", filter, around)
	b.WriteString(");\nout center;")
	return b.String()
}

func isOverpassRuntimeError(remark string) bool {
	r := strings.ToLower(remark)
	return strings.Contains(r, "runtime error") || strings.Contains(r, "timed out")
}

type overpassResponse struct {
	Remark   string            `json:"remark"`
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (e overpassElement) toRecord() (providers.PlaceRecord, bool) {
	var lat, lon float64
	switch {
	case e.Lat != nil && e.Lon != nil:
		lat, lon = *e.Lat, *e.Lon
	case e.Center != nil:
		lat, lon = e.Center.Lat, e.Center.Lon
	default:
		return providers.PlaceRecord{}, false
	}

	tags := e.Tags
	if tags == nil {
		tags = map[string]string{}
	}

	rec := providers.PlaceRecord{
		Source:    providers.ProviderOverpass,
		ID:        fmt.Sprintf("%s/%d", e.Type, e.ID),
		Name:      firstNonEmpty(tags["name"], tags["name:fr"], tags["name:ar"], tags["brand"], tags["operator"]),
		Latitude:  lat,
		Longitude: lon,
		Phone:     firstNonEmpty(tags["phone"], tags["contact:phone"]),
		Address: firstNonEmpty(
			joinNonEmpty(", ", joinNonEmpty(" ", tags["addr:housenumber"], tags["addr:street"]), tags["addr:city"]),
			tags["addr:full"],
		),
		Website:      firstNonEmpty(tags["website"], tags["contact:website"]),
		OpeningHours: tags["opening_hours"],
		Wheelchair:   tags["wheelchair"],
		Emergency:    tags["emergency"] == "yes",
	}
	if e.ID == 0 || e.Type == "" {
		rec.ID = ""
	}

	for _, key := range []string{"amenity", "healthcare", "shop"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			rec.Categories = append(rec.Categories, v)
		}
	}

	for _, key := range []string{"healthcare:speciality", "medical_specialty"} {
		for _, s := range strings.Split(tags[key], ";") {
			if s = strings.TrimSpace(s); s != "" {
				rec.Specialties = append(rec.Specialties, s)
			}
		}
	}
	return rec, true
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if providers.IsRetryable(err) {
		return "retryable_error"
	}
	return "error"
}
