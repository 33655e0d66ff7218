package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/trackside/trackside-core/config"
	"github.com/nstehr/trackside/trackside-core/model"
	"github.com/nstehr/trackside/trackside-core/racing"
	"github.com/nstehr/trackside/trackside-core/storage/sqlite"
)

func buildPlanCommand(load configLoader) *cobra.Command {
	var turn int
	var aptitudes []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Evaluate the racing plan for a turn",
		Long: `Evaluate the stored racing plan as the sidecar would on the given turn.
Aptitudes are given as key=grade pairs, e.g. --aptitude turf=A --aptitude mile=B.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			apt, err := parseAptitudes(aptitudes)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), load, func(cfg config.Config, store *sqlite.Store) error {
				d, err := evaluatePlan(cmd, cfg, store, turn, apt)
				if err != nil {
					return err
				}
				printDecision(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&turn, "turn", 1, "current turn number")
	cmd.Flags().StringArrayVar(&aptitudes, "aptitude", nil, "terrain or distance aptitude as key=grade")

	cmd.AddCommand(buildPlanSetCommand(load))
	cmd.AddCommand(buildPlanShowCommand(load))
	return cmd
}

func evaluatePlan(cmd *cobra.Command, cfg config.Config, store *sqlite.Store, turn int, apt model.Aptitudes) (racing.Decision, error) {
	ctx := cmd.Context()
	filter, err := racing.CompileFilter(cfg.Racing.Preferences())
	if err != nil {
		return racing.Decision{}, err
	}
	plan, err := store.PlannedRaces(ctx)
	if err != nil {
		return racing.Decision{}, err
	}
	names := make([]string, 0, len(plan))
	for _, p := range plan {
		names = append(names, p.RaceName)
	}
	catalog, err := store.RacesByName(ctx, names)
	if err != nil {
		return racing.Decision{}, err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Debug)
	s := racing.NewScheduler(cfg.Racing.Scheduler(), racing.Scorer{Aptitudes: apt}, filter, log)
	return s.Decide(plan, catalog, turn)
}

func printDecision(w io.Writer, d racing.Decision) {
	fmt.Fprintf(w, "action: %s\n", d.Action)
	if d.Race != nil {
		fmt.Fprintf(w, "race:   %s (turn %d, score %.2f)\n", d.Race.Race.Name, d.Race.Race.TurnNumber, d.Race.Score)
	}
	if d.BestFuture != nil {
		fmt.Fprintf(w, "next:   %s (turn %d, discounted %.2f)\n", d.BestFuture.Race.Name, d.NextRaceTurn, *d.DiscountedFutureScore)
	}
	fmt.Fprintf(w, "reason: %s\n", d.Reason)
}

// parseAptitudes reads key=grade pairs; keys are terrains or distances.
func parseAptitudes(pairs []string) (model.Aptitudes, error) {
	apt := model.Aptitudes{
		Terrain:  map[model.Terrain]model.Aptitude{},
		Distance: map[model.Distance]model.Aptitude{},
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return model.Aptitudes{}, fmt.Errorf("aptitude %q: want key=grade", pair)
		}
		grade, err := model.ParseAptitude(value)
		if err != nil {
			return model.Aptitudes{}, err
		}
		if t, err := model.ParseTerrain(key); err == nil {
			apt.Terrain[t] = grade
			continue
		}
		dist, err := model.ParseDistance(key)
		if err != nil {
			return model.Aptitudes{}, fmt.Errorf("aptitude %q: unknown terrain or distance", pair)
		}
		apt.Distance[dist] = grade
	}
	return apt, nil
}

func buildPlanSetCommand(load configLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the racing plan from a YAML or JSON file",
		Long: `Replace the racing plan. The file is a list of entries:

  - raceName: Japanese Derby
    priority: 1
    turnNumber: 34`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read plan file: %w", err)
			}
			var plan []model.PlannedRace
			if err := yaml.Unmarshal(data, &plan); err != nil {
				return fmt.Errorf("failed to parse plan file: %w", err)
			}
			return withStore(cmd.Context(), load, func(_ config.Config, store *sqlite.Store) error {
				if err := store.SavePlannedRaces(cmd.Context(), plan); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %d planned races\n", len(plan))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "plan file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildPlanShowCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the racing plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), load, func(_ config.Config, store *sqlite.Store) error {
				plan, err := store.PlannedRaces(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range plan {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\n", p.Priority, p.TurnNumber, p.RaceName)
				}
				return nil
			})
		},
	}
}
