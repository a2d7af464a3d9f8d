package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/manager"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/validation"
)

// mutateOptions are shared by the commands that change the document.
type mutateOptions struct {
	file       string
	noValidate bool
}

func (o *mutateOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "read the YAML value from a file (\"-\" for stdin)")
	cmd.Flags().BoolVar(&o.noValidate, "no-validate", false, "persist the change even when validation reports blocking problems")
}

// value returns the inline argument, the file contents or stdin, in that
// order of preference.
func (o *mutateOptions) value(cmd *cobra.Command, inline []string) ([]byte, error) {
	switch {
	case o.file == "-":
		return io.ReadAll(cmd.InOrStdin())
	case o.file != "":
		return os.ReadFile(o.file)
	case len(inline) > 0:
		return []byte(inline[0]), nil
	default:
		return io.ReadAll(cmd.InOrStdin())
	}
}

func newInitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init NAME",
		Short: "Create a deployment with default settings and make it current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				name := args[0]
				if _, err := a.manager.Add(ctx, "", types.NewDeploymentConfiguration(name), manager.Options{}); err != nil {
					return err
				}
				if err := a.manager.UseDeployment(ctx, name); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format.Success("✓ deployment %s created in %s", name, a.cfg.BaseDir))
				return nil
			})
		},
	}
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get [PATH]",
		Short: "Print a node of the configuration",
		Long: `Print the node at PATH. Paths are relative to the deployment unless
they start with "/", in which case they are taken from the document root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				p := ""
				if len(args) > 0 {
					p = args[0]
				}
				path, err := a.resolvePath(ctx, opts, p)
				if err != nil {
					return err
				}
				n, err := a.manager.Get(ctx, path)
				if err != nil {
					return err
				}
				return printNode(cmd.OutOrStdout(), n, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

func printNode(w io.Writer, n types.Node, output string) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	switch output {
	case "yaml", "":
		_, err = w.Write(data)
		return err
	case "json":
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return types.IllegalArgumentf("unsupported output format %q", output)
	}
}

func newSetCmd(opts *globalOptions) *cobra.Command {
	mo := &mutateOptions{}
	cmd := &cobra.Command{
		Use:   "set PATH [VALUE]",
		Short: "Replace the node at PATH with a YAML value",
		Example: `  keel set canary 'enabled: true
defaultMetricsStore: prometheus'
  keel set security/apiSecurity -f api.yml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				path, err := a.resolvePath(ctx, opts, args[0])
				if err != nil {
					return err
				}
				value, err := mo.value(cmd, args[1:])
				if err != nil {
					return err
				}
				ps, err := a.manager.SetYAML(ctx, path, value, manager.Options{NoValidate: mo.noValidate})
				return reportMutation(cmd, ps, err, "updated "+path)
			})
		},
	}
	mo.addFlags(cmd)
	return cmd
}

func newAddCmd(opts *globalOptions) *cobra.Command {
	mo := &mutateOptions{}
	cmd := &cobra.Command{
		Use:   "add COLLECTION [VALUE]",
		Short: "Add an item to the collection at COLLECTION",
		Example: `  keel add ci/jenkins/masters 'name: main
address: https://jenkins.example.com'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				path, err := a.resolvePath(ctx, opts, args[0])
				if err != nil {
					return err
				}
				value, err := mo.value(cmd, args[1:])
				if err != nil {
					return err
				}
				ps, err := a.manager.AddYAML(ctx, path, value, manager.Options{NoValidate: mo.noValidate})
				return reportMutation(cmd, ps, err, "added to "+path)
			})
		},
	}
	mo.addFlags(cmd)
	return cmd
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	mo := &mutateOptions{}
	cmd := &cobra.Command{
		Use:     "remove COLLECTION NAME",
		Aliases: []string{"rm"},
		Short:   "Remove the named item from the collection at COLLECTION",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				path, err := a.resolvePath(ctx, opts, args[0])
				if err != nil {
					return err
				}
				ps, err := a.manager.Remove(ctx, path, args[1], manager.Options{NoValidate: mo.noValidate})
				return reportMutation(cmd, ps, err, fmt.Sprintf("removed %s from %s", args[1], path))
			})
		},
	}
	cmd.Flags().BoolVar(&mo.noValidate, "no-validate", false, "persist the change even when validation reports blocking problems")
	return cmd
}

// reportMutation prints the problems of a mutation. Rejected mutations
// print every problem, accepted ones only warnings and above.
func reportMutation(cmd *cobra.Command, ps *validation.ProblemSet, err error, done string) error {
	out := cmd.OutOrStdout()
	if ps != nil && !ps.Empty() {
		min := validation.SeverityWarning
		if err != nil {
			min = validation.SeverityInfo
		}
		if len(ps.Filter(min)) > 0 {
			format.PrintProblems(out, ps, min)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, format.Success("✓ %s", done))
	return nil
}
