package classification

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/medlocator/hospital-map/backend/pkg/utils"
)

// Keywords holds every list the classifier consults. Category lists are matched
// against provider tags verbatim (lowercased); the other lists are matched against
// the normalized name and address with utils.ContainsWord.
type Keywords struct {
	// Provider tags that mark a place as non-medical regardless of its name
	ExcludedCategories []string `json:"excludedCategories"`
	// Text that marks a place as non-medical unless MedicalOverride also matches
	NonMedical []string `json:"nonMedical"`
	// Text that keeps a place medical despite a NonMedical match
	MedicalOverride []string `json:"medicalOverride"`

	ClinicNames []string `json:"clinicNames"`

	HospitalCategories []string `json:"hospitalCategories"`
	HospitalNames      []string `json:"hospitalNames"`

	ClinicCategories []string `json:"clinicCategories"`

	PharmacyCategories []string `json:"pharmacyCategories"`
	PharmacyNames      []string `json:"pharmacyNames"`
	// Text that disqualifies a pharmacy tag (hardware stores tagged as pharmacies)
	PharmacyExclusions []string `json:"pharmacyExclusions"`

	LaboratoryCategories []string `json:"laboratoryCategories"`
	LaboratoryNames      []string `json:"laboratoryNames"`

	DoctorCategories []string `json:"doctorCategories"`
	DoctorNames      []string `json:"doctorNames"`
	// Text that disqualifies a doctor tag
	DoctorExclusions []string `json:"doctorExclusions"`

	// Generic health tags that fall back to doctor
	HealthCategories []string `json:"healthCategories"`

	// Words removed from names before fuzzy duplicate comparison
	NamePrefixes []string `json:"namePrefixes"`
}

// DefaultKeywords returns the built-in keyword lists tuned for Moroccan OSM and Google data.
func DefaultKeywords() Keywords {
	return Keywords{
		ExcludedCategories: []string{
			"place_of_worship", "mosque", "church", "synagogue", "hindu_temple",
			"restaurant", "cafe", "bar", "fast_food", "food", "meal_takeaway", "bakery",
			"school", "primary_school", "secondary_school", "university", "kindergarten",
			"bank", "atm", "lodging", "hotel", "hardware_store", "doityourself",
			"supermarket", "gas_station", "fuel", "car_repair", "parking",
		},
		NonMedical: []string{
			"mosquee", "masjid", "jamaa", "eglise", "church",
			"restaurant", "snack", "cafe", "patisserie",
			"hotel", "riad", "ecole", "school", "lycee", "college",
			"banque", "bank", "droguerie", "quincaillerie", "hardware", "bricolage",
		},
		MedicalOverride: []string{
			"pharmacie", "pharmacy", "clinique", "clinic", "polyclinique",
			"laboratoire", "laboratory", "docteur", "doctor", "medical", "medecin",
			"hopital", "hospital", "sante", "dentiste",
		},
		ClinicNames: []string{
			"clinique", "polyclinique", "clinic", "polyclinic",
			"medical center", "medical centre", "centre medical",
		},
		HospitalCategories: []string{"hospital"},
		HospitalNames: []string{
			"hopital", "hospital", "centre hospitalier", "hospitalier",
		},
		ClinicCategories:   []string{"clinic"},
		PharmacyCategories: []string{"pharmacy", "drugstore", "chemist"},
		PharmacyNames:      []string{"pharmacie", "pharmacy", "parapharmacie"},
		PharmacyExclusions: []string{
			"droguerie", "quincaillerie", "hardware", "bricolage", "peinture", "materiaux",
		},
		LaboratoryCategories: []string{"laboratory", "medical_laboratory"},
		LaboratoryNames: []string{
			"laboratoire", "laboratory", "labo", "analyses medicales", "biologie medicale",
		},
		DoctorCategories: []string{"doctor", "doctors", "dentist"},
		DoctorNames: []string{
			"docteur", "cabinet medical", "cabinet dentaire", "dentiste",
		},
		DoctorExclusions: []string{
			"banque", "bank", "hotel", "ecole", "school", "lycee",
		},
		HealthCategories: []string{"health", "physiotherapist", "podiatrist", "psychotherapist"},
		NamePrefixes: []string{
			"pharmacie", "pharmacy", "parapharmacie",
			"clinique", "polyclinique", "clinic", "polyclinic",
			"hopital", "hospital", "centre", "center",
			"laboratoire", "laboratory", "labo",
			"cabinet", "medical", "docteur", "dr",
			"de", "du", "des", "la", "le", "les", "d", "l", "al", "el",
		},
	}
}

// LoadKeywords reads keyword lists from a JSON file. Lists present in the file
// replace the corresponding defaults; omitted lists keep their default values.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("failed to read keyword file: %w", err)
	}
	if err := json.Unmarshal(data, &kw); err != nil {
		return Keywords{}, fmt.Errorf("failed to parse keyword file: %w", err)
	}
	return kw, nil
}

func normalizeWords(list []string) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		if n := utils.NormalizeText(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func tagSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, t := range list {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
