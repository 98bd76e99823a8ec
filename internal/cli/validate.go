package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"capresolve/internal/app"
)

type validateOptions struct {
	Run string
}

func newValidateCommand() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run descriptor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Run, "run", "", "Run descriptor path")
	_ = viper.BindPFlag("run", cmd.Flags().Lookup("run"))
	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	service := newService(cmd)
	result, err := service.Validate(commandContext(cmd), app.ValidateRequest{
		RunPath: resolveString(cmd, opts.Run, "run", "run"),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "validated: %s (%d requirements, %d repositories, %d workspace roots)\n",
		result.Name, result.Requirements, result.Repositories, result.Workspace)
	return err
}
