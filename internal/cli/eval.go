package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"capresolve/internal/app"
)

type evalOptions struct {
	Filter     string
	Attributes []string
}

func newEvalCommand() *cobra.Command {
	opts := evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a filter against attributes",
		Example: `  capresolve eval --filter "(&(osgi.wiring.package=com.acme)(version>=1.0))" \
    --attr osgi.wiring.package=com.acme --attr version=1.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Filter expression")
	// StringArray keeps commas inside List values intact.
	cmd.Flags().StringArrayVar(&opts.Attributes, "attr", nil, "Attribute as name=value or name:Type=value (repeatable)")
	return cmd
}

func runEval(cmd *cobra.Command, opts evalOptions) error {
	service := newService(cmd)
	result, err := service.Eval(commandContext(cmd), app.EvalRequest{
		Filter:     opts.Filter,
		Attributes: opts.Attributes,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "match: %t\nfilter: %s\nquery: %s\n",
		result.Match, result.Normalized, result.Query)
	return err
}
