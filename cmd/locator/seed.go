package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/medlocator/hospital-map/backend/internal/adapters/database"
	"github.com/medlocator/hospital-map/backend/internal/application/services"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/clients/postgres"
)

var seedFlags struct {
	file  string
	reset bool
}

func coord(v float64) *float64 { return &v }

// sampleHospitals is the default data set used when no --file is given.
var sampleHospitals = []services.CreateHospitalInput{
	{Name: "CHU Ibn Rochd", Type: "Universitaire", Latitude: coord(33.5806), Longitude: coord(-7.6192)},
	{Name: "Hôpital Cheikh Khalifa", Type: "Spécialisée", Latitude: coord(33.5487), Longitude: coord(-7.6497)},
	{Name: "CHU Ibn Sina", Type: "Universitaire", Latitude: coord(34.0007), Longitude: coord(-6.8567)},
	{Name: "Hôpital Mohammed V de Tanger", Latitude: coord(35.7714), Longitude: coord(-5.8039)},
	{Name: "Centre d'Oncologie Hassan II", Type: "Clinique d’Oncologie", Latitude: coord(34.6867), Longitude: coord(-1.9114)},
	{Name: "CHU Marrakech Mohammed VI", Type: "Universitaire", Status: "En construction", Latitude: coord(31.6418), Longitude: coord(-8.0230)},
	{Name: "Hôpital régional de Dakhla", Status: "En étude", Latitude: coord(23.6848), Longitude: coord(-15.9580)},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load hospitals into the database",
	Long:  "Inserts hospitals through the same validation as the API. Reads a JSON array from --file, or a built-in sample set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		inputs := sampleHospitals
		if seedFlags.file != "" {
			f, err := os.Open(seedFlags.file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()
			if inputs, err = readSeedFile(f); err != nil {
				return err
			}
		}

		client, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()

		if seedFlags.reset {
			log.Warn().Msg("--reset given, truncating hospitals before seeding")
			if _, err := client.DB().ExecContext(ctx, `TRUNCATE TABLE hospitals RESTART IDENTITY`); err != nil {
				return fmt.Errorf("reset hospitals: %w", err)
			}
		}

		svc := services.NewHospitalService(database.NewHospitalAdapter(client, nil))
		created := 0
		for _, in := range inputs {
			if _, err := svc.Create(ctx, in); err != nil {
				log.Error().Err(err).Str("name", in.Name).Msg("Failed to seed hospital")
				continue
			}
			created++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d/%d hospitals\n", created, len(inputs))
		return nil
	},
}

func readSeedFile(r io.Reader) ([]services.CreateHospitalInput, error) {
	var inputs []services.CreateHospitalInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return inputs, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.file, "file", "", "JSON array of {name,type,status,latitude,longitude}")
	seedCmd.Flags().BoolVar(&seedFlags.reset, "reset", false, "truncate the hospitals table first")
	rootCmd.AddCommand(seedCmd)
}
