package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/spf13/cobra"
)

// NewProfilesCommand выводит таблицу профилей параметров
func NewProfilesCommand(tables **service.Tables) (cmd *cobra.Command) {
	var asJSON bool

	cmd = &cobra.Command{
		Use:   "profiles",
		Short: "list telemetry parameter profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := (*tables).Profiles
			names := registry.Names()

			if asJSON {
				profiles := make([]service.ParameterProfile, 0, len(names))
				for _, name := range names {
					p, _ := registry.Lookup(name)
					profiles = append(profiles, p)
				}
				return printJSON(cmd.OutOrStdout(), profiles)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PARAMETER\tUNIT\tLOW\tHIGH\tVARIANCE")
			for _, name := range names {
				p, _ := registry.Lookup(name)
				fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\n", name, p.Unit, p.Range.Low, p.Range.High, p.VarianceThreshold)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print profiles as JSON")

	return cmd
}
