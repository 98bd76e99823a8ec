package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"capresolve/internal/app"
	"capresolve/internal/types"
)

type resolveOptions struct {
	Run          string
	Repositories []string
	Workspace    []string
	Preferences  []string
	Effective    string
	Singleton    bool
	Lock         string
	OutDir       string
	Output       string
	MetricsFile  string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the requirements of a run descriptor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "Run descriptor path")
	cmd.Flags().StringSliceVar(&opts.Repositories, "repo", nil, "Additional repository index file(s)")
	cmd.Flags().StringSliceVar(&opts.Workspace, "workspace", nil, "Additional workspace root(s)")
	cmd.Flags().StringSliceVar(&opts.Preferences, "prefer", nil, "Preferred identities, in order")
	cmd.Flags().StringVar(&opts.Effective, "effective", "", "Effective clauses, e.g. active;skip:=\"osgi.service\"")
	cmd.Flags().BoolVar(&opts.Singleton, "singleton", false, "Select at most one version per identity")
	cmd.Flags().StringVar(&opts.Lock, "lock", "", "Lock file whose resources are pinned")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Directory for resolution.yaml and resolution.lock")
	cmd.Flags().StringVar(&opts.Output, "output", string(types.OutputFormatText), "Output format: text or yaml")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")

	_ = viper.BindPFlag("run", cmd.Flags().Lookup("run"))
	_ = viper.BindPFlag("repositories", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("workspace", cmd.Flags().Lookup("workspace"))
	_ = viper.BindPFlag("preferences", cmd.Flags().Lookup("prefer"))
	_ = viper.BindPFlag("effective", cmd.Flags().Lookup("effective"))
	_ = viper.BindPFlag("singleton", cmd.Flags().Lookup("singleton"))
	_ = viper.BindPFlag("lock", cmd.Flags().Lookup("lock"))
	_ = viper.BindPFlag("out_dir", cmd.Flags().Lookup("out-dir"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("metrics_file", cmd.Flags().Lookup("metrics-file"))

	return cmd
}

func runResolve(cmd *cobra.Command, opts resolveOptions) error {
	format, err := outputFormat(resolveString(cmd, opts.Output, "output", "output"))
	if err != nil {
		return err
	}
	service := newService(cmd)
	result, err := service.Resolve(commandContext(cmd), app.ResolveRequest{
		RunPath:      resolveString(cmd, opts.Run, "run", "run"),
		Repositories: resolveStrings(cmd, opts.Repositories, "repositories", "repo"),
		Workspace:    resolveStrings(cmd, opts.Workspace, "workspace", "workspace"),
		Preferences:  resolveStrings(cmd, opts.Preferences, "preferences", "prefer"),
		Effective:    resolveString(cmd, opts.Effective, "effective", "effective"),
		Singleton:    resolveBool(cmd, opts.Singleton, "singleton", "singleton"),
		LockFile:     resolveString(cmd, opts.Lock, "lock", "lock"),
		OutputDir:    resolveString(cmd, opts.OutDir, "out_dir", "out-dir"),
	})
	// Metrics are written for failed resolutions too.
	if metricsFile := resolveString(cmd, opts.MetricsFile, "metrics_file", "metrics-file"); metricsFile != "" {
		if werr := service.Metrics.WriteTextfile(metricsFile); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return err
	}
	return printResolution(cmd.OutOrStdout(), format, result)
}

func outputFormat(raw string) (types.OutputFormat, error) {
	switch format := types.OutputFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "", types.OutputFormatText:
		return types.OutputFormatText, nil
	case types.OutputFormatYAML:
		return format, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown output format %q", raw))
	}
}

func printResolution(w io.Writer, format types.OutputFormat, result app.ResolveResult) error {
	if format == types.OutputFormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result.Report()); err != nil {
			return err
		}
		return enc.Close()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "resolved: %s (%d resources)\n", result.Name, len(result.Resources))
	for _, r := range result.Resources {
		fmt.Fprintf(&b, "  %s %s\n", r.Identity, r.Version)
	}
	if result.OutputDir != "" {
		fmt.Fprintf(&b, "written to %s\n", result.OutputDir)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
