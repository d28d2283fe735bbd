package cmd

import (
	"fmt"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/spf13/cobra"
)

// NewRouteCommand оценивает переход без погоды и справочника зон
func NewRouteCommand(tables **service.Tables) (cmd *cobra.Command) {
	var from, to []float64
	var vesselID string

	cmd = &cobra.Command{
		Use:     "route",
		Short:   "score a passage between two positions",
		Example: "  guardctl route --from 43.73,7.42 --to 43.55,7.02",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := positionFlag("from", from)
			if err != nil {
				return err
			}
			destination, err := positionFlag("to", to)
			if err != nil {
				return err
			}

			assessment, err := service.NewSafetyScorer((*tables).Weights).AnalyzeRoute(service.RouteInput{
				VesselID:      vesselID,
				Origin:        origin,
				Destination:   destination,
				SkippedChecks: []string{usecase.CheckWeather, usecase.CheckHazardZones},
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.FromAssessment(assessment))
		},
	}

	cmd.Flags().Float64SliceVar(&from, "from", nil, "origin as lat,lon")
	cmd.Flags().Float64SliceVar(&to, "to", nil, "destination as lat,lon")
	cmd.Flags().StringVar(&vesselID, "vessel", "", "vessel id attached to the assessment")
	for _, name := range []string{"from", "to"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}

func positionFlag(name string, values []float64) (valueobject.Position, error) {
	if len(values) != 2 {
		return valueobject.Position{}, fmt.Errorf("--%s expects lat,lon", name)
	}
	position, err := valueobject.NewPosition(values[0], values[1])
	if err != nil {
		return valueobject.Position{}, fmt.Errorf("--%s: %w", name, err)
	}
	return position, nil
}
