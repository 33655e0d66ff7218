package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nstehr/trackside/trackside-core/config"
	"github.com/nstehr/trackside/trackside-core/storage/sqlite"
)

func buildCatalogCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the race catalog",
	}
	cmd.AddCommand(buildCatalogImportCommand(load))
	cmd.AddCommand(buildCatalogListCommand(load))
	return cmd
}

func buildCatalogImportCommand(load configLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load races from a JSON catalog export",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open catalog file: %w", err)
			}
			defer f.Close()

			races, err := sqlite.DecodeRaces(f)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), load, func(_ config.Config, store *sqlite.Store) error {
				if err := store.UpsertRaces(cmd.Context(), races); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d races\n", len(races))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildCatalogListCommand(load configLoader) *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print catalog races in a turn range",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), load, func(_ config.Config, store *sqlite.Store) error {
				races, err := store.RacesBetween(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				for _, r := range races {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\t%d\n",
						r.TurnNumber, r.Grade, r.Terrain, r.Distance, r.Name, r.Fans)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&from, "from", 1, "first turn")
	cmd.Flags().IntVar(&to, "to", 72, "last turn")
	return cmd
}
