package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/medlocator/hospital-map/backend/internal/application/services"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

// HospitalService is the hospital use-case surface the handler depends on
type HospitalService interface {
	Create(ctx context.Context, input services.CreateHospitalInput) (*entities.Hospital, error)
	GetByID(ctx context.Context, id int64) (*entities.Hospital, error)
	List(ctx context.Context, input services.ListHospitalsInput) (*services.HospitalPage, error)
	Update(ctx context.Context, id int64, input services.UpdateHospitalInput) (*entities.Hospital, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context, hospitalType, status string) (int64, error)
}

// HospitalHandler handles hospital CRUD requests
type HospitalHandler struct {
	service HospitalService
}

// NewHospitalHandler creates a new hospital handler
func NewHospitalHandler(service HospitalService) *HospitalHandler {
	return &HospitalHandler{service: service}
}

type locationBody struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// hospitalBody accepts both the location object and the legacy top-level lat/lng.
type hospitalBody struct {
	Name     *string       `json:"name"`
	Type     *string       `json:"type"`
	Status   *string       `json:"status"`
	Location *locationBody `json:"location"`
	Lat      *float64      `json:"lat"`
	Lng      *float64      `json:"lng"`
}

func (b hospitalBody) coordinates() (*float64, *float64) {
	if b.Location != nil && (b.Location.Latitude != nil || b.Location.Longitude != nil) {
		return b.Location.Latitude, b.Location.Longitude
	}
	return b.Lat, b.Lng
}

func decodeHospitalBody(r *http.Request) (hospitalBody, error) {
	var body hospitalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fieldError("body", "Corps de requête JSON invalide")
	}
	return body, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// CreateHospital handles POST /api/hospitals
func (h *HospitalHandler) CreateHospital(w http.ResponseWriter, r *http.Request) {
	body, err := decodeHospitalBody(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}

	lat, lng := body.coordinates()
	hospital, err := h.service.Create(r.Context(), services.CreateHospitalInput{
		Name:      deref(body.Name),
		Type:      deref(body.Type),
		Status:    deref(body.Status),
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		respondWithError(w, r, err, "Erreur serveur lors de la création de l'hôpital")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Hôpital créé avec succès",
		"data":    hospital,
	})
}

// ListHospitals handles GET /api/hospitals
func (h *HospitalHandler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := services.ListHospitalsInput{
		Type:   q.Get("type"),
		Status: q.Get("status"),
	}

	var err error
	if input.Limit, err = queryInt(r, "limit"); err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}
	if input.Offset, err = queryInt(r, "offset"); err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}
	if input.Latitude, err = firstFloat(r, "latitude", "lat"); err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}
	if input.Longitude, err = firstFloat(r, "longitude", "lng"); err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}
	if input.Radius, err = queryFloat(r, "radius"); err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}

	page, err := h.service.List(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err, "Failed to get hospitals")
		return
	}

	var data interface{} = page.Hospitals
	if page.Nearby != nil {
		data = page.Nearby
	} else if page.Hospitals == nil {
		data = []*entities.Hospital{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"pagination": pagination{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

// GetHospital handles GET /api/hospitals/{id}
func (h *HospitalHandler) GetHospital(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}

	hospital, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, "Failed to get hospital")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    hospital,
	})
}

// UpdateHospital handles PUT /api/hospitals/{id}
func (h *HospitalHandler) UpdateHospital(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}
	body, err := decodeHospitalBody(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}

	lat, lng := body.coordinates()
	hospital, err := h.service.Update(r.Context(), id, services.UpdateHospitalInput{
		Name:      body.Name,
		Type:      body.Type,
		Status:    body.Status,
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		respondWithError(w, r, err, "Erreur serveur lors de la mise à jour de l'hôpital")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Hôpital mis à jour avec succès",
		"data":    hospital,
	})
}

// DeleteHospital handles DELETE /api/hospitals/{id}
func (h *HospitalHandler) DeleteHospital(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, r, err, validationMessage)
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, "Erreur serveur lors de la suppression de l'hôpital")
		return
	}
	if !deleted {
		respondWithJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"deleted": false,
			"message": "Hôpital non trouvé",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": true,
		"message": "Hôpital supprimé avec succès",
	})
}

// CountHospitals handles GET /api/hospitals/count
func (h *HospitalHandler) CountHospitals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := h.service.Count(r.Context(), q.Get("type"), q.Get("status"))
	if err != nil {
		respondWithError(w, r, err, "Failed to get hospital count")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
}
