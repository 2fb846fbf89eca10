package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"search", "migrate", "seed"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestMigrateCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range migrateCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"up", "down", "version"} {
		assert.True(t, names[name], "expected migrate subcommand %q not found", name)
	}
}

func TestSearchCommand_Flags(t *testing.T) {
	radius := searchCmd.Flags().Lookup("radius")
	require.NotNil(t, radius)
	assert.Equal(t, "5000", radius.DefValue)

	format := searchCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "table", format.DefValue)
}

func TestParseCategories(t *testing.T) {
	got, err := parseCategories("pharmacy, hospital,,")
	require.NoError(t, err)
	assert.Equal(t, []entities.FacilityCategory{entities.CategoryPharmacy, entities.CategoryHospital}, got)

	got, err = parseCategories("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseCategories("bakery")
	assert.Error(t, err)
}

func TestWriteResult_Table(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(&buf, "table", []entities.MedicalFacility{
		{Name: "Pharmacie Centrale", Type: entities.CategoryPharmacy, Distance: 0.42},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Pharmacie Centrale")
	assert.Contains(t, out, "0.42")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "1 établissement(s)"))
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	assert.Error(t, writeResult(&bytes.Buffer{}, "pdf", nil))
}

func TestReadSeedFile(t *testing.T) {
	inputs, err := readSeedFile(strings.NewReader(`[{"name":"CHU Ibn Rochd","type":"Universitaire","latitude":33.58,"longitude":-7.62}]`))
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "Universitaire", inputs[0].Type)
	require.NotNil(t, inputs[0].Latitude)
	assert.Equal(t, 33.58, *inputs[0].Latitude)

	_, err = readSeedFile(strings.NewReader(`{"name":"x"}`))
	assert.Error(t, err)
}

func TestSampleHospitals_AreValid(t *testing.T) {
	for _, h := range sampleHospitals {
		assert.NotEmpty(t, h.Name)
		require.NotNil(t, h.Latitude)
		require.NotNil(t, h.Longitude)
		if h.Type != "" {
			assert.True(t, entities.HospitalType(h.Type).Valid(), h.Type)
		}
		if h.Status != "" {
			assert.True(t, entities.HospitalStatus(h.Status).Valid(), h.Status)
		}
	}
}
