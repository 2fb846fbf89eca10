package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/medlocator/hospital-map/backend/internal/adapters/export"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

// DefaultSearchRadiusMeters applies when a search omits radius
const DefaultSearchRadiusMeters = 5000

// FacilitySearcher runs external facility searches
type FacilitySearcher interface {
	Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResult, error)
	ReferenceFromHospital(ctx context.Context, hospitalID int64) (entities.ReferencePoint, error)
}

// SearchHandler handles facility search and export requests
type SearchHandler struct {
	searcher FacilitySearcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher FacilitySearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// SearchFacilities handles GET /api/facilities/search
func (h *SearchHandler) SearchFacilities(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"reference":        result.Reference,
		"data":             result.Facilities,
		"count":            len(result.Facilities),
		"failedCategories": result.FailedCategories,
	})
}

// ExportFacilities handles GET /api/facilities/export
func (h *SearchHandler) ExportFacilities(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondWithError(w, r, fieldError("format", "Format d'export non supporté"), validationMessage)
		return
	}

	result, ok := h.run(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, result.Facilities); err != nil {
		respondWithError(w, r, err, "Échec de l'export")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	if len(result.FailedCategories) > 0 {
		w.Header().Set("X-Failed-Categories", joinFailed(result.FailedCategories))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *SearchHandler) run(w http.ResponseWriter, r *http.Request) (*entities.SearchResult, bool) {
	req, err := h.parseRequest(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return nil, false
	}

	result, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		respondWithError(w, r, err, "La recherche a échoué")
		return nil, false
	}
	return result, true
}

func (h *SearchHandler) parseRequest(r *http.Request) (entities.SearchRequest, error) {
	var req entities.SearchRequest
	q := r.URL.Query()

	if raw := q.Get("hospitalId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return req, fieldError("hospitalId", "Identifiant invalide")
		}
		ref, err := h.searcher.ReferenceFromHospital(r.Context(), id)
		if err != nil {
			return req, err
		}
		req.Reference = ref
	} else {
		lat, err := firstFloat(r, "lat", "latitude")
		if err != nil {
			return req, err
		}
		lng, err := firstFloat(r, "lng", "longitude")
		if err != nil {
			return req, err
		}
		if lat == nil || lng == nil {
			return req, fieldError("location", "Veuillez cliquer sur la carte pour choisir un emplacement")
		}
		req.Reference = entities.ReferencePoint{Lat: *lat, Lng: *lng, Name: q.Get("name")}
	}

	radius, err := queryFloat(r, "radius")
	if err != nil {
		return req, err
	}
	req.RadiusMeters = DefaultSearchRadiusMeters
	if radius != nil {
		req.RadiusMeters = *radius
	}

	if raw := q.Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := entities.ParseFacilityCategory(part)
			if err != nil {
				return req, fieldError("types", "Catégorie inconnue: "+strings.TrimSpace(part))
			}
			req.Categories = append(req.Categories, c)
		}
	}
	return req, nil
}

func joinFailed(categories []entities.FacilityCategory) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
