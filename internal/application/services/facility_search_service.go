package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/medlocator/hospital-map/backend/internal/classification"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	apperrors "github.com/medlocator/hospital-map/backend/pkg/errors"
	"github.com/medlocator/hospital-map/backend/pkg/geo"
)

const searchCachePrefix = "search:v1:"

// SearchOptions configures the facility search pipeline
type SearchOptions struct {
	LatitudeFilter    bool
	MaxLatitude       float64
	DedupRadiusMeters float64
	MaxRadiusMeters   float64
	Concurrency       int
	CacheTTLSeconds   int
	Pager             PagerConfig
}

// FacilitySearchService finds medical facilities around a reference point through an
// external places provider
type FacilitySearchService struct {
	provider   providers.PlacesProvider
	classifier *classification.Classifier
	dedup      *Deduplicator
	hospitals  repositories.HospitalRepository
	cache      providers.CacheProvider
	metrics    *observability.Metrics
	opts       SearchOptions
}

// NewFacilitySearchService creates a new facility search service. hospitals, cache
// and metrics may be nil.
func NewFacilitySearchService(
	provider providers.PlacesProvider,
	classifier *classification.Classifier,
	hospitals repositories.HospitalRepository,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
	opts SearchOptions,
) *FacilitySearchService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &FacilitySearchService{
		provider:   provider,
		classifier: classifier,
		dedup:      NewDeduplicator(opts.DedupRadiusMeters, classifier),
		hospitals:  hospitals,
		cache:      cache,
		metrics:    metrics,
		opts:       opts,
	}
}

// ReferenceFromHospital resolves a stored hospital into a search reference point
func (s *FacilitySearchService) ReferenceFromHospital(ctx context.Context, hospitalID int64) (entities.ReferencePoint, error) {
	if s.hospitals == nil {
		return entities.ReferencePoint{}, apperrors.NewInternalError("hospital lookup is not configured", nil)
	}
	h, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		return entities.ReferencePoint{}, err
	}
	return entities.ReferenceFromHospital(h), nil
}

// tokenRun is the outcome of one type token's page sequence
type tokenRun struct {
	places []providers.PlaceRecord
	err    error
}

// Search runs the full pipeline: fetch every type token of the requested categories,
// merge by provider id, drop results past the latitude cut-off, suppress near
// duplicates, classify, annotate and sort by distance. A category fails only when
// every one of its tokens failed; the search fails only when every category failed.
func (s *FacilitySearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "FacilitySearchService.Search")
	defer span.End()

	if err := s.validate(req); err != nil {
		return nil, err
	}

	wanted, queried := expandCategories(req.Categories)
	observability.SetSpanAttributes(span,
		attribute.Float64("search.radius", req.RadiusMeters),
		attribute.Int("search.categories", len(queried)),
	)

	cacheKey := s.cacheKey(req, wanted)
	if facilities, ok := s.cached(ctx, cacheKey); ok {
		// the key rounds the reference point, so distances belong to whoever filled it
		facilities = withDistancesFrom(req.Reference, facilities)
		observability.RecordSearchResults(ctx, s.metrics, len(facilities), true)
		return &entities.SearchResult{
			Reference:        req.Reference,
			Facilities:       facilities,
			FailedCategories: []entities.FacilityCategory{},
		}, nil
	}

	// one page sequence per distinct token, shared by every category that maps to it
	var tokens []string
	tokenCategories := map[string][]entities.FacilityCategory{}
	for _, c := range queried {
		for _, tok := range s.provider.TypeTokens(c) {
			if _, seen := tokenCategories[tok]; !seen {
				tokens = append(tokens, tok)
			}
			tokenCategories[tok] = append(tokenCategories[tok], c)
		}
	}

	runs := make([]tokenRun, len(tokens))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, tok := range tokens {
		g.Go(func() error {
			pager := NewPager(s.provider, providers.PlaceQuery{
				Latitude:     req.Reference.Lat,
				Longitude:    req.Reference.Lng,
				RadiusMeters: req.RadiusMeters,
				TypeToken:    tok,
			}, s.opts.Pager)
			out, err := pager.Run(ctx)
			if err != nil {
				runs[i] = tokenRun{err: err}
				return nil
			}
			runs[i] = tokenRun{places: out.Places}
			return nil
		})
	}
	_ = g.Wait()

	failed, failure := s.categoryFailures(ctx, queried, tokens, tokenCategories, runs)
	if len(failed) == len(queried) {
		observability.RecordError(span, failure)
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("La recherche a échoué pour toutes les catégories (%s)", joinCategories(failed)),
			failure,
		)
	}

	// a failed category contributes nothing, even through another category's tokens
	facilities := s.buildFacilities(req.Reference, withoutCategories(wanted, failed), mergeRuns(runs))

	if len(failed) == 0 {
		s.store(ctx, cacheKey, facilities)
	}
	observability.RecordSearchResults(ctx, s.metrics, len(facilities), false)

	return &entities.SearchResult{
		Reference:        req.Reference,
		Facilities:       facilities,
		FailedCategories: reportedFailures(failed, wanted),
	}, nil
}

func (s *FacilitySearchService) validate(req entities.SearchRequest) error {
	var fields []apperrors.FieldError
	ref := geo.Point{Latitude: req.Reference.Lat, Longitude: req.Reference.Lng}
	if !ref.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "location", Message: "Coordonnées de référence invalides"})
	}
	if math.IsNaN(req.RadiusMeters) || req.RadiusMeters <= 0 {
		fields = append(fields, apperrors.FieldError{Field: "radius", Message: "Le rayon doit être supérieur à 0"})
	} else if s.opts.MaxRadiusMeters > 0 && req.RadiusMeters > s.opts.MaxRadiusMeters {
		fields = append(fields, apperrors.FieldError{
			Field:   "radius",
			Message: fmt.Sprintf("Le rayon ne doit pas dépasser %.0f mètres", s.opts.MaxRadiusMeters),
		})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationErrorWithFields("Erreur de validation", fields)
	}
	return nil
}

// expandCategories returns the categories kept in the output and the medical
// categories to query. No categories means all of them, "other" included. "other"
// has no provider tokens of its own: it is whatever the queried tokens classify as
// other.
func expandCategories(requested []entities.FacilityCategory) (wanted, queried []entities.FacilityCategory) {
	if len(requested) == 0 {
		return entities.FacilityCategories, entities.MedicalCategories
	}

	seen := map[entities.FacilityCategory]bool{}
	otherRequested := false
	for _, c := range requested {
		if seen[c] {
			continue
		}
		seen[c] = true
		wanted = append(wanted, c)
		if c == entities.CategoryOther {
			otherRequested = true
			continue
		}
		queried = append(queried, c)
	}
	if otherRequested {
		queried = entities.MedicalCategories
	}
	return wanted, queried
}

func (s *FacilitySearchService) categoryFailures(
	ctx context.Context,
	queried []entities.FacilityCategory,
	tokens []string,
	tokenCategories map[string][]entities.FacilityCategory,
	runs []tokenRun,
) ([]entities.FacilityCategory, error) {
	succeeded := map[entities.FacilityCategory]bool{}
	errs := map[entities.FacilityCategory]*multierror.Error{}
	for i, tok := range tokens {
		for _, c := range tokenCategories[tok] {
			if runs[i].err == nil {
				succeeded[c] = true
				continue
			}
			errs[c] = multierror.Append(errs[c], fmt.Errorf("%s: %w", tok, runs[i].err))
		}
	}

	var failed []entities.FacilityCategory
	var all *multierror.Error
	for _, c := range queried {
		if succeeded[c] {
			continue
		}
		failed = append(failed, c)
		catErr := errs[c].ErrorOrNil()
		if catErr == nil {
			catErr = errors.New("no provider type for category")
		}
		all = multierror.Append(all, fmt.Errorf("%s: %w", c, catErr))
		observability.LoggerFromContext(ctx).Warn().
			Err(catErr).
			Str("provider", string(s.provider.Kind())).
			Str("category", string(c)).
			Msg("Facility category search failed")
	}
	return failed, all.ErrorOrNil()
}

// mergeRuns collects every record once per provider id, ordered by id so the result
// does not depend on goroutine scheduling.
func mergeRuns(runs []tokenRun) []providers.PlaceRecord {
	byID := map[string]providers.PlaceRecord{}
	for _, run := range runs {
		for _, p := range run.places {
			if existing, ok := byID[p.ID]; ok {
				existing.Categories = appendMissing(existing.Categories, p.Categories)
				byID[p.ID] = existing
				continue
			}
			byID[p.ID] = p
		}
	}

	merged := make([]providers.PlaceRecord, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}

func (s *FacilitySearchService) buildFacilities(ref entities.ReferencePoint, wanted []entities.FacilityCategory, records []providers.PlaceRecord) []entities.MedicalFacility {
	filtered := records[:0]
	for _, r := range records {
		if s.opts.LatitudeFilter && r.Latitude > s.opts.MaxLatitude {
			continue
		}
		filtered = append(filtered, r)
	}

	keep := map[entities.FacilityCategory]bool{}
	for _, c := range wanted {
		keep[c] = true
	}

	facilities := make([]entities.MedicalFacility, 0, len(filtered))
	for _, r := range s.dedup.Dedupe(filtered) {
		category := s.classifier.Classify(r.Categories, r.Name, r.Address)
		if !keep[category] {
			continue
		}
		facilities = append(facilities, entities.MedicalFacility{
			ID:           r.ID,
			Name:         r.Name,
			Type:         category,
			Lat:          r.Latitude,
			Lng:          r.Longitude,
			Phone:        r.Phone,
			Address:      r.Address,
			Website:      r.Website,
			OpeningHours: r.OpeningHours,
			Wheelchair:   r.Wheelchair,
			Emergency:    r.Emergency,
			Specialty:    classification.DeriveSpecialty(r.Specialties, r.Categories),
		})
	}

	return withDistancesFrom(ref, facilities)
}

// withDistancesFrom annotates every facility with its distance from ref and sorts
// nearest first. Ordering uses the exact distance; the stored value is rounded to
// the meter. Equal distances fall back to the name.
func withDistancesFrom(ref entities.ReferencePoint, facilities []entities.MedicalFacility) []entities.MedicalFacility {
	exact := make([]float64, len(facilities))
	for i := range facilities {
		exact[i] = geo.DistanceKm(ref.Lat, ref.Lng, facilities[i].Lat, facilities[i].Lng)
	}

	order := make([]int, len(facilities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if exact[a] != exact[b] {
			return exact[a] < exact[b]
		}
		return facilities[a].Name < facilities[b].Name
	})

	sorted := make([]entities.MedicalFacility, len(facilities))
	for i, idx := range order {
		f := facilities[idx]
		f.Distance = math.Round(exact[idx]*1000) / 1000
		sorted[i] = f
	}
	return sorted
}

// reportedFailures lists failed categories the caller asked for. When "other" was
// requested every medical category is queried, but only requested ones are reported.
func reportedFailures(failed, wanted []entities.FacilityCategory) []entities.FacilityCategory {
	out := []entities.FacilityCategory{}
	for _, f := range failed {
		for _, w := range wanted {
			if f == w {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func withoutCategories(from, drop []entities.FacilityCategory) []entities.FacilityCategory {
	out := make([]entities.FacilityCategory, 0, len(from))
	for _, c := range from {
		dropped := false
		for _, d := range drop {
			if c == d {
				dropped = true
				break
			}
		}
		if !dropped {
			out = append(out, c)
		}
	}
	return out
}

func joinCategories(categories []entities.FacilityCategory) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func (s *FacilitySearchService) cacheKey(req entities.SearchRequest, wanted []entities.FacilityCategory) string {
	cats := make([]string, len(wanted))
	for i, c := range wanted {
		cats[i] = string(c)
	}
	sort.Strings(cats)

	raw := fmt.Sprintf("%s|%.4f|%.4f|%.0f|%s|%t|%.4f",
		s.provider.Kind(),
		req.Reference.Lat, req.Reference.Lng,
		req.RadiusMeters,
		strings.Join(cats, ","),
		s.opts.LatitudeFilter, s.opts.MaxLatitude,
	)
	sum := sha256.Sum256([]byte(raw))
	return searchCachePrefix + hex.EncodeToString(sum[:])
}

func (s *FacilitySearchService) cached(ctx context.Context, key string) ([]entities.MedicalFacility, bool) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Search cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, "search")
		return nil, false
	}

	var facilities []entities.MedicalFacility
	if err := json.Unmarshal(data, &facilities); err != nil {
		observability.RecordCacheMiss(ctx, s.metrics, "search")
		return nil, false
	}
	observability.RecordCacheHit(ctx, s.metrics, "search")
	return facilities, true
}

func (s *FacilitySearchService) store(ctx context.Context, key string, facilities []entities.MedicalFacility) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return
	}
	data, err := json.Marshal(facilities)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Search cache write failed")
	}
}
