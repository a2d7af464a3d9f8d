package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/manager"
	"github.com/rzbill/keel/pkg/profile"
	"github.com/rzbill/keel/pkg/validation"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var noValidate bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Validate the deployment and stage the profile of every service",
		Long: `Validate the deployment, then render the configuration files of every
enabled service into the deployment's staging directory. The staging
directory is rebuilt from scratch on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				dep, err := a.deployment(ctx, opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				rc, ps, err := a.manager.Generate(ctx, dep, manager.Options{NoValidate: noValidate})
				if ps != nil && len(ps.Filter(validation.SeverityWarning)) > 0 {
					format.PrintProblems(out, ps, validation.SeverityWarning)
				}
				if err != nil {
					return err
				}
				return printResolved(out, rc)
			})
		},
	}
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "generate even when validation reports blocking problems")
	return cmd
}

func printResolved(w io.Writer, rc *profile.ResolvedConfiguration) error {
	var rows [][]string
	for _, t := range rc.Settings.Types() {
		s, _ := rc.Settings.Get(t)
		var files []string
		for _, p := range rc.Profiles[t] {
			files = append(files, p.OutputFile)
		}
		address := "-"
		if s.Enabled {
			address = s.BaseURL()
		}
		rows = append(rows, []string{string(t), format.StatusSymbol(s.Enabled), address, strings.Join(files, ", ")})
	}
	if err := renderTable(w, []string{"SERVICE", "ENABLED", "ADDRESS", "FILES"}, rows); err != nil {
		return err
	}
	fmt.Fprintln(w, format.Label("Staged", rc.StagingPath))
	fmt.Fprintln(w, format.Label("Run", rc.RunID))
	if len(rc.Overrides) > 0 {
		fmt.Fprintln(w, format.Label("Overrides", strings.Join(rc.Overrides, ", ")))
	}
	return nil
}
