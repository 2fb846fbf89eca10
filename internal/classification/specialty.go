package classification

import (
	"strings"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/pkg/utils"
)

var specialtyLabels = map[string]string{
	"general":          "Médecine Générale",
	"general_practice": "Médecine Générale",
	"cardiology":       "Cardiologie",
	"pediatrics":       "Pédiatrie",
	"paediatrics":      "Pédiatrie",
	"gynaecology":      "Gynécologie",
	"gynecology":       "Gynécologie",
	"dermatology":      "Dermatologie",
	"ophthalmology":    "Ophtalmologie",
	"neurology":        "Neurologie",
	"psychiatry":       "Psychiatrie",
	"dentist":          "Dentiste",
	"orthodontics":     "Orthodontie",
	"surgery":          "Chirurgie",
	"radiology":        "Radiologie",
	"physiotherapy":    "Kinésithérapie",
	"ent":              "ORL",
	"otolaryngology":   "ORL",
	"gastroenterology": "Gastro-entérologie",
	"urology":          "Urologie",
	"nephrology":       "Néphrologie",
	"pulmonology":      "Pneumologie",
	"rheumatology":     "Rhumatologie",
	"oncology":         "Oncologie",
	"psychotherapy":    "Psychothérapie",
	"podiatry":         "Podologie",
	"analysis":         "Analyses Médicales",
}

// specialties implied by a provider tag when no explicit specialty is present
var tagSpecialties = map[string]string{
	"dentist":            "dentist",
	"physiotherapist":    "physiotherapy",
	"podiatrist":         "podiatry",
	"psychotherapist":    "psychotherapy",
	"laboratory":         "analysis",
	"medical_laboratory": "analysis",
}

// NormalizeSpecialty maps a raw specialty token to its display label. Unknown tokens
// are lowercased, trimmed and capitalized. It never fails.
func NormalizeSpecialty(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return ""
	}
	if label, ok := specialtyLabels[token]; ok {
		return label
	}
	return utils.Capitalize(token)
}

// DeriveSpecialty picks the display specialty of a place: the first explicit token,
// otherwise one implied by its provider tags.
func DeriveSpecialty(specialties, categories []string) string {
	for _, s := range specialties {
		if label := NormalizeSpecialty(s); label != "" {
			return label
		}
	}
	for _, c := range categories {
		if token, ok := tagSpecialties[strings.ToLower(c)]; ok {
			return NormalizeSpecialty(token)
		}
	}
	return ""
}

// DisplayType returns the category label, suffixed with the specialty for doctors.
func DisplayType(category entities.FacilityCategory, specialty string) string {
	if category == entities.CategoryDoctor && specialty != "" {
		return category.Label() + " - " + specialty
	}
	return category.Label()
}
