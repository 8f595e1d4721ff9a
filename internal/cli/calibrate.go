package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vector-Wangel/lerobot/internal/app"
)

type calibrateOptions struct {
	Assembly  string
	Component string
}

func newCalibrateCommand() *cobra.Command {
	opts := calibrateOptions{}
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run the interactive calibration flow for one component",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalibrate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Assembly, "assembly", "", "Assembly file path")
	cmd.Flags().StringVar(&opts.Component, "component", "", "Component name or alias")
	_ = viper.BindPFlag("assembly", cmd.Flags().Lookup("assembly"))
	return cmd
}

func runCalibrate(ctx context.Context, cmd *cobra.Command, opts calibrateOptions) error {
	service := newAppService()
	result, err := service.Calibrate(ctx, app.CalibrateRequest{
		AssemblyPath: resolveString(cmd, opts.Assembly, "assembly", "assembly"),
		Component:    opts.Component,
	})
	if err != nil {
		return err
	}
	fmt.Printf("calibrated %s:\n", result.Component)
	motors := make([]string, 0, len(result.Calibration))
	for motor := range result.Calibration {
		motors = append(motors, motor)
	}
	sort.Strings(motors)
	for _, motor := range motors {
		cal := result.Calibration[motor]
		fmt.Printf("  %-24s homing=%6d range=[%d, %d]\n",
			motor, cal.HomingOffset, cal.RangeMin, cal.RangeMax)
	}
	return nil
}
