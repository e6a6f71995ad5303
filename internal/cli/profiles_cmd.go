package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/taskswarm/internal/behavior"
	"github.com/wesleyorama2/taskswarm/internal/config"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the user profiles, their weights and tasks",
		Long: `List the built-in user profiles. With --profiles, show the mix that
file selects instead, with its overrides applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("profiles")

			var mix *config.ProfileMix
			if path != "" {
				var err error
				mix, err = config.LoadProfileMix(path)
				if err != nil {
					return fmt.Errorf("error loading profiles: %w", err)
				}
			}

			profiles, err := behavior.Resolve(mix, behavior.DefaultOptions())
			if err != nil {
				return err
			}
			printProfiles(cmd.OutOrStdout(), profiles)
			return nil
		},
	}

	cmd.Flags().StringP("profiles", "p", "", "YAML file selecting profiles and overriding weights")
	return cmd
}

func printProfiles(w io.Writer, profiles []*swarm.Profile) {
	total := 0
	for _, p := range profiles {
		total += p.Weight
	}

	for i, p := range profiles {
		if i > 0 {
			fmt.Fprintln(w)
		}
		share := 0.0
		if total > 0 {
			share = float64(p.Weight) / float64(total) * 100
		}
		fmt.Fprintf(w, "%s (weight %d, %.0f%% of users)\n", p.Name, p.Weight, share)
		fmt.Fprintf(w, "  wait: %s - %s\n", p.MinWait, p.MaxWait)

		taskTotal := 0
		for _, t := range p.Tasks {
			taskTotal += t.Weight
		}
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "  %-28s %3d  %s\n", t.Name, t.Weight,
				strings.Repeat("▪", t.Weight*20/taskTotal))
		}
	}
}
