package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vector-Wangel/lerobot/internal/app"
)

type setupMotorOptions struct {
	Assembly  string
	Component string
	Motor     string
	Baudrate  int
	InitialID int
}

func newSetupMotorCommand() *cobra.Command {
	opts := setupMotorOptions{}
	cmd := &cobra.Command{
		Use:   "setup-motor",
		Short: "Program a factory-fresh servo to its target id",
		Long: "Connect exactly one factory-fresh servo to the component's bus, " +
			"then run this command once per motor. The servo is re-addressed " +
			"from its factory id to the id the motor occupies on the bus.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetupMotor(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Assembly, "assembly", "", "Assembly file path")
	cmd.Flags().StringVar(&opts.Component, "component", "", "Component name or alias")
	cmd.Flags().StringVar(&opts.Motor, "motor", "", "Local motor name")
	cmd.Flags().IntVar(&opts.Baudrate, "baudrate", 1000000, "Baudrate the fresh servo currently uses")
	cmd.Flags().IntVar(&opts.InitialID, "initial-id", 1, "Id the fresh servo currently answers at")
	_ = viper.BindPFlag("assembly", cmd.Flags().Lookup("assembly"))
	return cmd
}

func runSetupMotor(ctx context.Context, cmd *cobra.Command, opts setupMotorOptions) error {
	service := newAppService()
	return service.SetupMotor(ctx, app.SetupMotorRequest{
		AssemblyPath:    resolveString(cmd, opts.Assembly, "assembly", "assembly"),
		Component:       opts.Component,
		Motor:           opts.Motor,
		InitialBaudrate: opts.Baudrate,
		InitialID:       opts.InitialID,
	})
}
