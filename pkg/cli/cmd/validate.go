package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/validation"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		asJSON   bool
		severity string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the deployment without changing anything",
		Long: `Run every validator against the deployment and print the problems found.
The command fails when an error or fatal problem is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := validation.ParseSeverity(severity)
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				dep, err := a.deployment(ctx, opts)
				if err != nil {
					return err
				}
				ps, err := a.manager.Validate(ctx, dep)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if err := format.WriteProblemsJSON(out, ps, min); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, format.Header("Validating %s", dep))
					format.PrintProblems(out, ps, min)
				}
				return ps.Err()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print problems as JSON")
	cmd.Flags().StringVar(&severity, "severity", "info", "minimum severity to print (info, warning, error, fatal)")
	return cmd
}
