package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/tealeg/xlsx/v2"

	"github.com/medlocator/hospital-map/backend/internal/classification"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	baseFilename = "medical_facilities"
	sheetName    = "Établissements"
	emptyCell    = "-"
	utf8BOM      = "\ufeff"
)

// ParseFormat parses a format name, defaulting to CSV when empty
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Filename is the download name for the format
func (f Format) Filename() string {
	return baseFilename + "." + string(f)
}

// ContentType is the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Row is one exported facility
type Row struct {
	Name         string `csv:"Nom"`
	Type         string `csv:"Type"`
	Distance     string `csv:"Distance (km)"`
	Phone        string `csv:"Téléphone"`
	Address      string `csv:"Adresse"`
	Website      string `csv:"Site web"`
	OpeningHours string `csv:"Horaires"`
	Directions   string `csv:"Itinéraire"`
}

// Header lists the column titles in order
var Header = []string{"Nom", "Type", "Distance (km)", "Téléphone", "Adresse", "Site web", "Horaires", "Itinéraire"}

func (r Row) cells() []string {
	return []string{r.Name, r.Type, r.Distance, r.Phone, r.Address, r.Website, r.OpeningHours, r.Directions}
}

// Rows converts facilities to export rows, keeping their order
func Rows(facilities []entities.MedicalFacility) []Row {
	rows := make([]Row, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, Row{
			Name:         orDash(f.Name),
			Type:         classification.DisplayType(f.Type, f.Specialty),
			Distance:     strconv.FormatFloat(f.Distance, 'f', 2, 64),
			Phone:        orDash(f.Phone),
			Address:      orDash(f.Address),
			Website:      orDash(f.Website),
			OpeningHours: orDash(f.OpeningHours),
			Directions:   f.DirectionsURL(),
		})
	}
	return rows
}

// Write encodes facilities in the given format
func Write(w io.Writer, format Format, facilities []entities.MedicalFacility) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, facilities)
	case FormatXLSX:
		return WriteXLSX(w, facilities)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteCSV writes a UTF-8 CSV with a byte order mark so spreadsheet tools detect the encoding
func WriteCSV(w io.Writer, facilities []entities.MedicalFacility) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	rows := Rows(facilities)
	if len(rows) == 0 {
		// Encode writes the header with the first row
		if err := enc.EncodeHeader(Row{}); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook
func WriteXLSX(w io.Writer, facilities []entities.MedicalFacility) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, title := range Header {
		cell := header.AddCell()
		cell.SetString(title)
		cell.GetStyle().Font.Bold = true
	}

	for _, row := range Rows(facilities) {
		r := sheet.AddRow()
		for _, value := range row.cells() {
			r.AddCell().SetString(value)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCell
	}
	return s
}
