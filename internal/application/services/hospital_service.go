package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	apperrors "github.com/medlocator/hospital-map/backend/pkg/errors"
)

const (
	DefaultListLimit      = 20
	MaxListLimit          = 100
	MaxNearbyRadiusMeters = 100000
	MaxHospitalNameLength = 100
)

// CreateHospitalInput is the raw create request. Coordinates are pointers so a
// missing value is distinguishable from 0.
type CreateHospitalInput struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Type      string   `json:"type" validate:"omitempty,hospital_type"`
	Status    string   `json:"status" validate:"omitempty,hospital_status"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// UpdateHospitalInput is a partial update; nil fields are left untouched
type UpdateHospitalInput struct {
	Name      *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Type      *string  `json:"type" validate:"omitempty,hospital_type"`
	Status    *string  `json:"status" validate:"omitempty,hospital_status"`
	Latitude  *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
}

// ListHospitalsInput holds list filters, pagination and the optional radius search
type ListHospitalsInput struct {
	Type      string   `json:"type" validate:"omitempty,hospital_type"`
	Status    string   `json:"status" validate:"omitempty,hospital_status"`
	Limit     int      `json:"limit" validate:"gte=0,lte=100"`
	Offset    int      `json:"offset" validate:"gte=0"`
	Latitude  *float64 `json:"latitude" validate:"required_with=Radius,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required_with=Radius,omitempty,gte=-180,lte=180"`
	Radius    *float64 `json:"radius" validate:"omitempty,gt=0,lte=100000"`
}

// HospitalPage is one page of a hospital list. Nearby is set instead of Hospitals
// when the list was a radius search.
type HospitalPage struct {
	Hospitals []*entities.Hospital
	Nearby    []*entities.HospitalWithDistance
	Total     int64
	Limit     int
	Offset    int
	HasMore   bool
}

// HospitalService handles validation and persistence of registered hospitals
type HospitalService struct {
	repo     repositories.HospitalRepository
	validate *validator.Validate
}

// NewHospitalService creates a new hospital service
func NewHospitalService(repo repositories.HospitalRepository) *HospitalService {
	return &HospitalService{
		repo:     repo,
		validate: newHospitalValidator(),
	}
}

// Create validates input, applies defaults and stores the hospital
func (s *HospitalService) Create(ctx context.Context, input CreateHospitalInput) (*entities.Hospital, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.check(input); err != nil {
		return nil, err
	}

	hospital := &entities.Hospital{
		Name:   input.Name,
		Type:   entities.HospitalType(input.Type),
		Status: entities.HospitalStatus(input.Status),
		Location: entities.Location{
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
		},
	}
	if hospital.Type == "" {
		hospital.Type = entities.HospitalTypeGeneral
	}
	if hospital.Status == "" {
		hospital.Status = entities.HospitalStatusActive
	}

	created, err := s.repo.Create(ctx, hospital)
	if err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info().
		Int64("hospital_id", created.ID).
		Str("type", string(created.Type)).
		Msg("Hospital created")
	return created, nil
}

// GetByID retrieves a hospital by ID
func (s *HospitalService) GetByID(ctx context.Context, id int64) (*entities.Hospital, error) {
	if id <= 0 {
		return nil, apperrors.NewNotFoundError("Hôpital non trouvé")
	}
	return s.repo.FindByID(ctx, id)
}

// List returns a page of hospitals, or the hospitals within a radius when the
// input carries a point and radius. Radius results are closest first and not offset.
func (s *HospitalService) List(ctx context.Context, input ListHospitalsInput) (*HospitalPage, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	if input.Limit == 0 {
		input.Limit = DefaultListLimit
	}
	filter := repositories.HospitalFilter{
		Type:   entities.HospitalType(input.Type),
		Status: entities.HospitalStatus(input.Status),
	}

	if input.Radius != nil {
		nearby, err := s.repo.FindNearby(ctx, repositories.NearbyQuery{
			Latitude:     *input.Latitude,
			Longitude:    *input.Longitude,
			RadiusMeters: *input.Radius,
			Filter:       filter,
			Limit:        input.Limit,
		})
		if err != nil {
			return nil, err
		}
		return &HospitalPage{
			Nearby:  nearby,
			Total:   int64(len(nearby)),
			Limit:   input.Limit,
			Offset:  0,
			HasMore: len(nearby) == input.Limit,
		}, nil
	}

	hospitals, err := s.repo.FindAll(ctx, filter, repositories.Pagination{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &HospitalPage{
		Hospitals: hospitals,
		Total:     total,
		Limit:     input.Limit,
		Offset:    input.Offset,
		HasMore:   int64(input.Offset+len(hospitals)) < total,
	}, nil
}

// Update validates and applies a partial update
func (s *HospitalService) Update(ctx context.Context, id int64, input UpdateHospitalInput) (*entities.Hospital, error) {
	if id <= 0 {
		return nil, apperrors.NewNotFoundError("Hôpital non trouvé")
	}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}
	if err := s.check(input); err != nil {
		return nil, err
	}

	var patch entities.HospitalPatch
	patch.Name = input.Name
	if input.Type != nil {
		t := entities.HospitalType(*input.Type)
		patch.Type = &t
	}
	if input.Status != nil {
		st := entities.HospitalStatus(*input.Status)
		patch.Status = &st
	}
	if input.Latitude != nil && input.Longitude != nil {
		patch.Location = &entities.Location{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationErrorWithFields("Erreur de validation", []apperrors.FieldError{
			{Field: "body", Message: "Aucun champ à mettre à jour"},
		})
	}

	return s.repo.Update(ctx, id, patch)
}

// Delete removes a hospital and reports whether it existed
func (s *HospitalService) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.repo.Delete(ctx, id)
}

// Count counts hospitals matching the optional type and status filters
func (s *HospitalService) Count(ctx context.Context, hospitalType, status string) (int64, error) {
	if err := s.check(ListHospitalsInput{Type: hospitalType, Status: status}); err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, repositories.HospitalFilter{
		Type:   entities.HospitalType(hospitalType),
		Status: entities.HospitalStatus(status),
	})
}

func (s *HospitalService) check(input interface{}) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInternalError("validation failed", err)
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperrors.NewValidationErrorWithFields("Erreur de validation", fields)
}

func newHospitalValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hospital_type", func(fl validator.FieldLevel) bool {
		return entities.HospitalType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("hospital_status", func(fl validator.FieldLevel) bool {
		return entities.HospitalStatus(fl.Field().String()).Valid()
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		if fe.Tag() == "max" {
			return "Le nom de l'hôpital ne peut pas dépasser 100 caractères."
		}
		return "Le nom de l'hôpital est requis."
	case "type":
		return "Veuillez sélectionner un type valide"
	case "status":
		return "Veuillez sélectionner un statut valide"
	case "latitude", "longitude":
		if fe.Tag() == "required" || fe.Tag() == "required_with" {
			return "Veuillez cliquer sur la carte pour choisir un emplacement"
		}
		if fe.Field() == "latitude" {
			return "La latitude doit être comprise entre -90 et 90"
		}
		return "La longitude doit être comprise entre -180 et 180"
	case "radius":
		return "Le rayon doit être compris entre 0 et 100000 mètres"
	case "limit":
		return "La limite doit être comprise entre 1 et 100"
	case "offset":
		return "Le décalage doit être positif"
	default:
		return "Valeur invalide"
	}
}
