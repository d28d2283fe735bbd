// Package cmd команды офлайн-CLI guardctl: прогон детектора и анализа
// маршрута на встроенных (или переданных) таблицах без сервисов.
package cmd

import (
	"encoding/json"
	"io"

	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/spf13/cobra"
)

// NewCommand возвращает корневую команду guardctl
func NewCommand() (cmd *cobra.Command) {
	var profilesPath, weightsPath string
	var tables *service.Tables

	cmd = &cobra.Command{
		Use:          "guardctl",
		Short:        "vessel guard engine CLI",
		Long:         `guardctl runs the anomaly detector and the safety scorer locally against the engine tables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := service.LoadTables(profilesPath, weightsPath)
			if err != nil {
				return err
			}
			tables = loaded
			return nil
		},
	}

	cmd.AddCommand(
		NewProfilesCommand(&tables),
		NewEvaluateCommand(&tables),
		NewRouteCommand(&tables),
	)

	cmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "parameter profiles YAML (embedded table when empty)")
	cmd.PersistentFlags().StringVar(&weightsPath, "weights", "", "safety weights YAML (embedded table when empty)")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
