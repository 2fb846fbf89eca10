package classification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	tests := []struct {
		name       string
		categories []string
		placeName  string
		address    string
		want       entities.FacilityCategory
	}{
		{
			name:       "clinic name beats hospital tag",
			categories: []string{"hospital"},
			placeName:  "Polyclinique Al Amal",
			want:       entities.CategoryClinic,
		},
		{
			name:       "place of worship is excluded whatever the name",
			categories: []string{"place_of_worship"},
			placeName:  "Clinique de la Mosquée",
			want:       entities.CategoryOther,
		},
		{
			name:       "hardware store tagged as pharmacy",
			categories: []string{"pharmacy"},
			placeName:  "Droguerie Atlas",
			want:       entities.CategoryOther,
		},
		{
			name:       "pharmacy and hardware words in the name",
			categories: []string{"pharmacy"},
			placeName:  "Pharmacie Droguerie du Centre",
			want:       entities.CategoryOther,
		},
		{
			name:       "hospital tag",
			categories: []string{"hospital"},
			placeName:  "CHU Ibn Rochd",
			want:       entities.CategoryHospital,
		},
		{
			name:      "hospital by accented name",
			placeName: "Hôpital Moulay Youssef",
			want:      entities.CategoryHospital,
		},
		{
			name:       "clinic tag",
			categories: []string{"clinic"},
			placeName:  "Centre Al Yassmine",
			want:       entities.CategoryClinic,
		},
		{
			name:       "pharmacy tag",
			categories: []string{"pharmacy"},
			placeName:  "Pharmacie Ibn Sina",
			want:       entities.CategoryPharmacy,
		},
		{
			name:      "pharmacy by name only",
			placeName: "Pharmacie Anfa",
			want:      entities.CategoryPharmacy,
		},
		{
			name:      "laboratory by name",
			placeName: "Laboratoire d'Analyses Médicales Pasteur",
			want:      entities.CategoryLaboratory,
		},
		{
			name:       "laboratory tag",
			categories: []string{"medical_laboratory"},
			placeName:  "Bio Lab",
			want:       entities.CategoryLaboratory,
		},
		{
			name:       "dentist tag",
			categories: []string{"dentist"},
			placeName:  "Dr Benali",
			want:       entities.CategoryDoctor,
		},
		{
			name:       "doctor tag on a bank is rejected",
			categories: []string{"doctor"},
			placeName:  "Banque Populaire",
			want:       entities.CategoryOther,
		},
		{
			name:       "physiotherapist defaults to doctor",
			categories: []string{"physiotherapist"},
			placeName:  "Kiné Plus",
			want:       entities.CategoryDoctor,
		},
		{
			name:       "restaurant keyword without medical override",
			categories: []string{"establishment"},
			placeName:  "Restaurant Dar Naji",
			want:       entities.CategoryOther,
		},
		{
			name:       "non medical keyword overridden by medical keyword",
			categories: []string{"pharmacy"},
			placeName:  "Pharmacie de l'Hôtel de Ville",
			want:       entities.CategoryPharmacy,
		},
		{
			name:       "address contributes to exclusion",
			categories: []string{"point_of_interest"},
			placeName:  "Espace Atlas",
			address:    "Quincaillerie centrale, Rue 12",
			want:       entities.CategoryOther,
		},
		{
			name:       "tags are case insensitive",
			categories: []string{"Hospital"},
			placeName:  "Centre Hospitalier Provincial",
			want:       entities.CategoryHospital,
		},
		{
			name:      "nothing matches",
			placeName: "Espace Vert",
			want:      entities.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.categories, tt.placeName, tt.address))
		})
	}
}

func TestClassifier_ComparableName(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	assert.Equal(t, "ibn sina", c.ComparableName("Pharmacie Ibn Sina"))
	assert.Equal(t, "ibn sina", c.ComparableName("IBN SINA"))
	assert.Equal(t, "amal", c.ComparableName("Polyclinique Al-Amal"))
	assert.Equal(t, "", c.ComparableName("Pharmacie"))
}

func TestLoadKeywords(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		kw, err := LoadKeywords("")
		require.NoError(t, err)
		assert.Equal(t, DefaultKeywords(), kw)
	})

	t.Run("file overrides only listed keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keywords.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"clinicNames":["cabinet de groupe"]}`), 0o600))

		kw, err := LoadKeywords(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"cabinet de groupe"}, kw.ClinicNames)
		assert.Equal(t, DefaultKeywords().PharmacyNames, kw.PharmacyNames)

		c := NewClassifier(kw)
		assert.Equal(t, entities.CategoryClinic, c.Classify([]string{"doctor"}, "Cabinet de Groupe Anfa", ""))
		assert.Equal(t, entities.CategoryHospital, c.Classify([]string{"hospital"}, "Polyclinique Al Amal", ""))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadKeywords(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keywords.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		_, err := LoadKeywords(path)
		assert.Error(t, err)
	})
}
