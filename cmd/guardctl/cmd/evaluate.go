package cmd

import (
	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/spf13/cobra"
)

// NewEvaluateCommand прогоняет окно показаний через детектор аномалий.
// Без базы показаний историческое сравнение не выполняется.
func NewEvaluateCommand(tables **service.Tables) (cmd *cobra.Command) {
	var (
		parameter       string
		vesselID        string
		samples         []float64
		roughWeather    bool
		highPerformance bool
	)

	cmd = &cobra.Command{
		Use:     "evaluate",
		Short:   "evaluate a window of samples with the anomaly detector",
		Example: "  guardctl evaluate --parameter oil_pressure --samples 400,390,100",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.AnomalyInput{
				VesselID:      vesselID,
				ParameterName: parameter,
				Samples:       samples,
			}
			if roughWeather || highPerformance {
				in.Context = &service.DeviceContext{
					RoughWeather:        roughWeather,
					HighPerformanceMode: highPerformance,
				}
			}

			verdict, err := service.NewAnomalyDetector((*tables).Profiles).Evaluate(in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.FromVerdict(verdict))
		},
	}

	cmd.Flags().StringVar(&parameter, "parameter", "", "telemetry parameter name")
	cmd.Flags().StringVar(&vesselID, "vessel", "", "vessel id attached to the verdict")
	cmd.Flags().Float64SliceVar(&samples, "samples", nil, "comma separated samples, oldest first")
	cmd.Flags().BoolVar(&roughWeather, "rough-weather", false, "device operates in rough weather")
	cmd.Flags().BoolVar(&highPerformance, "high-performance", false, "device runs in high performance mode")
	for _, name := range []string{"parameter", "samples"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}
