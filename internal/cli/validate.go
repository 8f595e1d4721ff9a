package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vector-Wangel/lerobot/internal/app"
)

type validateOptions struct {
	Assembly string
}

func newValidateCommand() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an assembly file without touching hardware",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Assembly, "assembly", "", "Assembly file path")
	_ = viper.BindPFlag("assembly", cmd.Flags().Lookup("assembly"))
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, opts validateOptions) error {
	service := newAppService()
	result, err := service.Validate(ctx, app.ValidateRequest{
		AssemblyPath: resolveString(cmd, opts.Assembly, "assembly", "assembly"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("validated: mode=%s buses=[%s] components=[%s]\n",
		result.Mode,
		strings.Join(result.Buses, ", "),
		strings.Join(result.Components, ", "))
	return nil
}
