package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

func sampleFacilities() []entities.MedicalFacility {
	return []entities.MedicalFacility{
		{
			ID:       "node/1",
			Name:     "Hôpital Ibn Sina",
			Type:     entities.CategoryHospital,
			Lat:      34.0,
			Lng:      -6.85,
			Distance: 1.2345,
			Phone:    "+212 537 00 00 00",
			Address:  "Rue Ibn Sina, Rabat",
		},
		{
			ID:        "node/2",
			Name:      "Dr Alami",
			Type:      entities.CategoryDoctor,
			Lat:       34.01,
			Lng:       -6.84,
			Distance:  2,
			Specialty: "Cardiologie",
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "medical_facilities.xlsx", f.Filename())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	rows := Rows(sampleFacilities())
	require.Len(t, rows, 2)

	assert.Equal(t, "Hôpital", rows[0].Type)
	assert.Equal(t, "1.23", rows[0].Distance)
	assert.Equal(t, "-", rows[0].Website)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=34.000000,-6.850000", rows[0].Directions)

	assert.Equal(t, "Cabinet médical - Cardiologie", rows[1].Type)
	assert.Equal(t, "2.00", rows[1].Distance)
	assert.Equal(t, "-", rows[1].Phone)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleFacilities()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "Hôpital Ibn Sina", records[1][0])
	assert.Equal(t, "Rue Ibn Sina, Rabat", records[1][4])
}

func TestWriteCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Header, records[0])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleFacilities()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Nom", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Dr Alami", sheet.Rows[2].Cells[0].String())
	assert.Equal(t, "Cabinet médical - Cardiologie", sheet.Rows[2].Cells[1].String())
}
