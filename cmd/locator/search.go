package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medlocator/hospital-map/backend/internal/adapters/export"
	"github.com/medlocator/hospital-map/backend/internal/adapters/providers/places"
	"github.com/medlocator/hospital-map/backend/internal/application/services"
	"github.com/medlocator/hospital-map/backend/internal/classification"
	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
)

var searchFlags struct {
	lat    float64
	lng    float64
	radius float64
	types  string
	format string
	out    string
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search medical facilities around a point",
	Long:  "Queries the configured places provider around --lat/--lng and prints the classified facilities as a table, CSV or XLSX.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
			return fmt.Errorf("--lat and --lng are required")
		}
		categories, err := parseCategories(searchFlags.types)
		if err != nil {
			return err
		}

		keywords, err := classification.LoadKeywords(cfg.Search.KeywordsFile)
		if err != nil {
			return err
		}
		provider, err := places.NewPlacesProvider(cfg.Search, nil)
		if err != nil {
			return fmt.Errorf("init places provider: %w", err)
		}

		svc := services.NewFacilitySearchService(
			provider,
			classification.NewClassifier(keywords),
			nil,
			nil,
			nil,
			services.SearchOptionsFromConfig(cfg.Search),
		)

		result, err := svc.Search(ctx, entities.SearchRequest{
			Reference:    entities.ReferencePoint{Lat: searchFlags.lat, Lng: searchFlags.lng},
			RadiusMeters: searchFlags.radius,
			Categories:   categories,
		})
		if err != nil {
			return err
		}

		for _, c := range result.FailedCategories {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s search failed\n", c.Label())
		}

		out := cmd.OutOrStdout()
		if searchFlags.out != "" {
			f, err := os.Create(searchFlags.out)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		return writeResult(out, searchFlags.format, result.Facilities)
	},
}

func parseCategories(raw string) ([]entities.FacilityCategory, error) {
	var out []entities.FacilityCategory
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := entities.ParseFacilityCategory(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func writeResult(w io.Writer, format string, facilities []entities.MedicalFacility) error {
	if format == "" || format == "table" {
		return writeTable(w, facilities)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	return export.Write(w, f, facilities)
}

func writeTable(w io.Writer, facilities []entities.MedicalFacility) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NOM\tTYPE\tDISTANCE (KM)\tTÉLÉPHONE\tADRESSE")
	for _, r := range export.Rows(facilities) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Type, r.Distance, r.Phone, r.Address)
	}
	fmt.Fprintf(tw, "\n%d établissement(s)\n", len(facilities))
	return tw.Flush()
}

func init() {
	f := searchCmd.Flags()
	f.Float64Var(&searchFlags.lat, "lat", 0, "reference latitude")
	f.Float64Var(&searchFlags.lng, "lng", 0, "reference longitude")
	f.Float64Var(&searchFlags.radius, "radius", 5000, "search radius in meters")
	f.StringVar(&searchFlags.types, "types", "", "comma-separated categories (default: all)")
	f.StringVar(&searchFlags.format, "format", "table", "output format: table, csv or xlsx")
	f.StringVar(&searchFlags.out, "out", "", "write output to this file instead of stdout")
	rootCmd.AddCommand(searchCmd)
}
