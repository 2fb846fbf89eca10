package entities

import (
	"fmt"
	"strings"
)

// FacilityCategory is the closed set of categories external search results are sorted into.
type FacilityCategory string

const (
	CategoryHospital   FacilityCategory = "hospital"
	CategoryClinic     FacilityCategory = "clinic"
	CategoryDoctor     FacilityCategory = "doctor"
	CategoryPharmacy   FacilityCategory = "pharmacy"
	CategoryLaboratory FacilityCategory = "laboratory"
	CategoryOther      FacilityCategory = "other"
)

// MedicalCategories are the searchable categories, in display order.
var MedicalCategories = []FacilityCategory{
	CategoryHospital,
	CategoryClinic,
	CategoryDoctor,
	CategoryPharmacy,
	CategoryLaboratory,
}

// FacilityCategories is the full closed set, "other" last.
var FacilityCategories = append(append([]FacilityCategory{}, MedicalCategories...), CategoryOther)

// ParseFacilityCategory parses a category name case-insensitively.
func ParseFacilityCategory(s string) (FacilityCategory, error) {
	c := FacilityCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryHospital, CategoryClinic, CategoryDoctor, CategoryPharmacy, CategoryLaboratory, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown facility category %q", s)
}

// Label returns the French display label of the category.
func (c FacilityCategory) Label() string {
	switch c {
	case CategoryHospital:
		return "Hôpital"
	case CategoryClinic:
		return "Clinique privée"
	case CategoryDoctor:
		return "Cabinet médical"
	case CategoryPharmacy:
		return "Pharmacie"
	case CategoryLaboratory:
		return "Laboratoire"
	default:
		return "Autre"
	}
}

// MedicalFacility is one classified external search result. It is never persisted.
type MedicalFacility struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         FacilityCategory `json:"type"`
	Lat          float64          `json:"lat"`
	Lng          float64          `json:"lng"`
	Distance     float64          `json:"distance"`
	Phone        string           `json:"phone,omitempty"`
	Address      string           `json:"address,omitempty"`
	Website      string           `json:"website,omitempty"`
	OpeningHours string           `json:"openingHours,omitempty"`
	Wheelchair   string           `json:"wheelchair,omitempty"`
	Emergency    bool             `json:"emergency"`
	Specialty    string           `json:"specialty,omitempty"`
}

// DirectionsURL returns a Google Maps directions link to the facility.
func (f MedicalFacility) DirectionsURL() string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%f,%f", f.Lat, f.Lng)
}

// ReferencePoint is the origin of a radius search.
type ReferencePoint struct {
	Lat        float64         `json:"lat"`
	Lng        float64         `json:"lng"`
	Name       string          `json:"name"`
	HospitalID *int64          `json:"hospitalId,omitempty"`
	Status     *HospitalStatus `json:"status,omitempty"`
	// set only for stored hospitals
	MarkerColor string `json:"markerColor,omitempty"`
}

// ReferenceFromHospital builds a reference point from a stored hospital.
func ReferenceFromHospital(h *Hospital) ReferencePoint {
	id := h.ID
	status := h.Status
	return ReferencePoint{
		Lat:         h.Location.Latitude,
		Lng:         h.Location.Longitude,
		Name:        h.Name,
		HospitalID:  &id,
		Status:      &status,
		MarkerColor: status.MarkerColor(),
	}
}

// SearchRequest asks for facilities around a reference point.
// An empty Categories slice means every category, "other" included.
type SearchRequest struct {
	Reference    ReferencePoint
	RadiusMeters float64
	Categories   []FacilityCategory
}

// SearchResult is the outcome of a facility search. FailedCategories lists the requested
// categories whose provider queries all failed; the facilities of the other categories
// are still returned.
type SearchResult struct {
	Reference        ReferencePoint     `json:"reference"`
	Facilities       []MedicalFacility  `json:"data"`
	FailedCategories []FacilityCategory `json:"failedCategories"`
}
