package entities

import "time"

// HospitalType is the display category of a registered hospital.
type HospitalType string

const (
	HospitalTypeGeneral           HospitalType = "Générale"
	HospitalTypeSpecialized       HospitalType = "Spécialisée"
	HospitalTypeMultidisciplinary HospitalType = "Clinique Multidisciplinaire"
	HospitalTypeOncology          HospitalType = "Clinique d’Oncologie"
	HospitalTypeAesthetic         HospitalType = "Clinique de Beauté et d’Esthétique"
	HospitalTypeNephrology        HospitalType = "Clinique Néphrologique"
	HospitalTypeOphthalmology     HospitalType = "Clinique d’Ophtalmologie"
	HospitalTypeUniversity        HospitalType = "Universitaire"
)

// HospitalTypes lists every accepted hospital type in display order.
var HospitalTypes = []HospitalType{
	HospitalTypeGeneral,
	HospitalTypeSpecialized,
	HospitalTypeMultidisciplinary,
	HospitalTypeOncology,
	HospitalTypeAesthetic,
	HospitalTypeNephrology,
	HospitalTypeOphthalmology,
	HospitalTypeUniversity,
}

// Valid reports whether t is one of HospitalTypes.
func (t HospitalType) Valid() bool {
	for _, known := range HospitalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HospitalStatus is the lifecycle status of a registered hospital.
type HospitalStatus string

const (
	HospitalStatusActive             HospitalStatus = "Active"
	HospitalStatusUnderConstruction  HospitalStatus = "En construction"
	HospitalStatusUnderConsideration HospitalStatus = "En étude"
)

// HospitalStatuses lists every accepted status.
var HospitalStatuses = []HospitalStatus{
	HospitalStatusActive,
	HospitalStatusUnderConstruction,
	HospitalStatusUnderConsideration,
}

// Valid reports whether s is one of HospitalStatuses.
func (s HospitalStatus) Valid() bool {
	for _, known := range HospitalStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// MarkerColor is the map marker color used for a reference point with this status.
func (s HospitalStatus) MarkerColor() string {
	switch s {
	case HospitalStatusActive:
		return "green"
	case HospitalStatusUnderConstruction:
		return "orange"
	default:
		return "gray"
	}
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Hospital is a user-submitted facility persisted in the hospitals table.
type Hospital struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Type      HospitalType   `json:"type" db:"type"`
	Status    HospitalStatus `json:"status" db:"status"`
	Location  Location       `json:"location" db:"-"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// HospitalPatch carries a partial update. Nil fields are left untouched.
type HospitalPatch struct {
	Name     *string
	Type     *HospitalType
	Status   *HospitalStatus
	Location *Location
}

// IsEmpty reports whether the patch changes nothing.
func (p HospitalPatch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.Status == nil && p.Location == nil
}

// HospitalWithDistance is a hospital annotated with its distance to a search point.
type HospitalWithDistance struct {
	Hospital
	DistanceMeters float64 `json:"distance"`
}
