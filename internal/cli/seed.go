package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nainya/howcatalog/internal/api"
)

func newSeedCommand(o *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load units and documents from a YAML seed file",
		Long: `Seed opens the database directly and creates every unit, then every
document, listed in the file. Units take the state given in the file,
or "define" when none is given. The server must not be running against
the same database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.cfg.Validate(); err != nil {
				return err
			}
			seed, err := ReadSeedFile(file)
			if err != nil {
				return err
			}
			initial, err := seed.ToInitialization()
			if err != nil {
				return err
			}

			app, err := NewApp(o.cfg, o.log)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Catalog.Initialize(cmd.Context(), initial); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d units and %d documents\n", len(initial.Units), len(initial.Documents))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ReadSeedFile parses a YAML seed file
func ReadSeedFile(path string) (api.SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed api.SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return api.SeedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(seed.Units) == 0 && len(seed.Documents) == 0 {
		return api.SeedFile{}, errors.New("seed file has no units or documents")
	}
	return seed, nil
}
