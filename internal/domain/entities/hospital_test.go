package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHospitalStatus_MarkerColor(t *testing.T) {
	assert.Equal(t, "green", HospitalStatusActive.MarkerColor())
	assert.Equal(t, "orange", HospitalStatusUnderConstruction.MarkerColor())
	assert.Equal(t, "gray", HospitalStatusUnderConsideration.MarkerColor())
}

func TestReferenceFromHospital_CarriesMarkerColor(t *testing.T) {
	ref := ReferenceFromHospital(&Hospital{
		ID:       3,
		Name:     "Hôpital Cheikh Khalifa",
		Status:   HospitalStatusUnderConstruction,
		Location: Location{Latitude: 33.55, Longitude: -7.66},
	})

	assert.Equal(t, "orange", ref.MarkerColor)
	assert.Equal(t, HospitalStatusUnderConstruction, *ref.Status)
}

func TestFacilityCategories_IncludeOtherLast(t *testing.T) {
	assert.Len(t, FacilityCategories, len(MedicalCategories)+1)
	assert.Equal(t, CategoryOther, FacilityCategories[len(FacilityCategories)-1])
	assert.NotContains(t, MedicalCategories, CategoryOther)
}
