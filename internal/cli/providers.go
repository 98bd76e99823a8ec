package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"capresolve/internal/app"
	"capresolve/internal/types"
)

type providersOptions struct {
	Run          string
	Repositories []string
	Workspace    []string
	Namespace    string
	Filter       string
	Alias        string
	ID           string
	Version      string
	Limit        int
}

func newProvidersCommand() *cobra.Command {
	opts := providersOptions{}
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the ranked providers of one requirement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProviders(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "Run descriptor path")
	cmd.Flags().StringSliceVar(&opts.Repositories, "repo", nil, "Repository index file(s)")
	cmd.Flags().StringSliceVar(&opts.Workspace, "workspace", nil, "Workspace root(s)")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Requirement namespace")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Requirement filter")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "Alias namespace: bnd.identity or bnd.literal")
	cmd.Flags().StringVar(&opts.ID, "id", "", "Identity for the bnd.identity alias")
	cmd.Flags().StringVar(&opts.Version, "range", "", "Version range for the bnd.identity alias")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Show at most this many providers (0 for all)")

	_ = viper.BindPFlag("run", cmd.Flags().Lookup("run"))
	_ = viper.BindPFlag("repositories", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("workspace", cmd.Flags().Lookup("workspace"))
	_ = viper.BindPFlag("limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runProviders(cmd *cobra.Command, opts providersOptions) error {
	service := newService(cmd)
	result, err := service.Providers(commandContext(cmd), app.ProvidersRequest{
		RunPath:      resolveString(cmd, opts.Run, "run", "run"),
		Repositories: resolveStrings(cmd, opts.Repositories, "repositories", "repo"),
		Workspace:    resolveStrings(cmd, opts.Workspace, "workspace", "workspace"),
		Requirement: types.RequirementRef{
			Namespace: opts.Namespace,
			Filter:    opts.Filter,
			Alias:     opts.Alias,
			ID:        opts.ID,
			Version:   opts.Version,
		},
	})
	if err != nil {
		return err
	}
	return printProviders(cmd.OutOrStdout(), result, resolveInt(cmd, opts.Limit, "limit", "limit"))
}

func printProviders(w io.Writer, result app.ProvidersResult, limit int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "requirement: %s\n", result.Requirement)
	if len(result.Providers) == 0 {
		b.WriteString("no providers\n")
	}
	for i, p := range result.Providers {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&b, "... %d more\n", len(result.Providers)-limit)
			break
		}
		fmt.Fprintf(&b, "%3d. %s\n     %s\n", i+1, p.Resource, p.Capability)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
