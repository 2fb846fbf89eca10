package classification

import (
	"strings"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/pkg/utils"
)

// Classifier maps provider tags plus free text into one FacilityCategory.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	excludedCategories   map[string]struct{}
	hospitalCategories   map[string]struct{}
	clinicCategories     map[string]struct{}
	pharmacyCategories   map[string]struct{}
	laboratoryCategories map[string]struct{}
	doctorCategories     map[string]struct{}
	healthCategories     map[string]struct{}

	nonMedical         []string
	medicalOverride    []string
	clinicNames        []string
	hospitalNames      []string
	pharmacyNames      []string
	pharmacyExclusions []string
	laboratoryNames    []string
	doctorNames        []string
	doctorExclusions   []string
	namePrefixes       []string
}

// NewClassifier creates a classifier from keyword lists
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{
		excludedCategories:   tagSet(kw.ExcludedCategories),
		hospitalCategories:   tagSet(kw.HospitalCategories),
		clinicCategories:     tagSet(kw.ClinicCategories),
		pharmacyCategories:   tagSet(kw.PharmacyCategories),
		laboratoryCategories: tagSet(kw.LaboratoryCategories),
		doctorCategories:     tagSet(kw.DoctorCategories),
		healthCategories:     tagSet(kw.HealthCategories),

		nonMedical:         normalizeWords(kw.NonMedical),
		medicalOverride:    normalizeWords(kw.MedicalOverride),
		clinicNames:        normalizeWords(kw.ClinicNames),
		hospitalNames:      normalizeWords(kw.HospitalNames),
		pharmacyNames:      normalizeWords(kw.PharmacyNames),
		pharmacyExclusions: normalizeWords(kw.PharmacyExclusions),
		laboratoryNames:    normalizeWords(kw.LaboratoryNames),
		doctorNames:        normalizeWords(kw.DoctorNames),
		doctorExclusions:   normalizeWords(kw.DoctorExclusions),
		namePrefixes:       normalizeWords(kw.NamePrefixes),
	}
}

// Classify returns exactly one category for a place. Exclusion rules run before any
// positive match, and positive matches are tried in a fixed priority order.
func (c *Classifier) Classify(categories []string, name, address string) entities.FacilityCategory {
	tags := make([]string, 0, len(categories))
	for _, t := range categories {
		tags = append(tags, strings.ToLower(strings.TrimSpace(t)))
	}
	text := utils.NormalizeText(name + " " + address)

	if hasAnyTag(tags, c.excludedCategories) {
		return entities.CategoryOther
	}
	if utils.ContainsAnyWord(text, c.nonMedical) && !utils.ContainsAnyWord(text, c.medicalOverride) {
		return entities.CategoryOther
	}

	// Providers tag many private clinics as hospitals, so the name wins.
	if utils.ContainsAnyWord(text, c.clinicNames) {
		return entities.CategoryClinic
	}

	if hasAnyTag(tags, c.hospitalCategories) || utils.ContainsAnyWord(text, c.hospitalNames) {
		return entities.CategoryHospital
	}

	if hasAnyTag(tags, c.clinicCategories) {
		return entities.CategoryClinic
	}

	if hasAnyTag(tags, c.pharmacyCategories) || utils.ContainsAnyWord(text, c.pharmacyNames) {
		if utils.ContainsAnyWord(text, c.pharmacyExclusions) {
			return entities.CategoryOther
		}
		return entities.CategoryPharmacy
	}

	if hasAnyTag(tags, c.laboratoryCategories) || utils.ContainsAnyWord(text, c.laboratoryNames) {
		return entities.CategoryLaboratory
	}

	doctorLike := hasAnyTag(tags, c.doctorCategories) ||
		utils.ContainsAnyWord(text, c.doctorNames) ||
		hasAnyTag(tags, c.healthCategories)
	if doctorLike && !utils.ContainsAnyWord(text, c.doctorExclusions) {
		return entities.CategoryDoctor
	}

	return entities.CategoryOther
}

// ComparableName normalizes a facility name for duplicate detection: diacritics
// folded, punctuation dropped and common medical prefix words removed.
func (c *Classifier) ComparableName(name string) string {
	words := strings.Fields(utils.NormalizeText(name))
	kept := words[:0]
	for _, w := range words {
		if !c.isPrefixWord(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (c *Classifier) isPrefixWord(w string) bool {
	for _, p := range c.namePrefixes {
		if p == w {
			return true
		}
	}
	return false
}

func hasAnyTag(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
