package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vector-Wangel/lerobot/internal/app"
)

type statusOptions struct {
	Assembly string
}

func newStatusCommand() *cobra.Command {
	opts := statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Connect the assembly and report every motor's position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Assembly, "assembly", "", "Assembly file path")
	_ = viper.BindPFlag("assembly", cmd.Flags().Lookup("assembly"))
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	service := newAppService()
	statuses, err := service.Status(ctx, app.StatusRequest{
		AssemblyPath: resolveString(cmd, opts.Assembly, "assembly", "assembly"),
	})
	if err != nil {
		return err
	}
	for _, status := range statuses {
		fmt.Printf("%s (bus %s) connected=%t calibrated=%t\n",
			status.Name, status.Bus, status.Connected, status.Calibrated)
		motors := make([]string, 0, len(status.Positions))
		for motor := range status.Positions {
			motors = append(motors, motor)
		}
		sort.Strings(motors)
		for _, motor := range motors {
			fmt.Printf("  %-24s %8.2f\n", motor, status.Positions[motor])
		}
	}
	return nil
}
