package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/profile"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved revisions of the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				revs, err := a.history.Revisions(cmd.Context())
				if err != nil {
					return err
				}
				if len(revs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No revisions recorded")
					return nil
				}
				rows := make([][]string, 0, len(revs))
				for _, r := range revs {
					rows = append(rows, []string{r.ID, r.Timestamp.Local().Format(time.RFC3339), r.Summary})
				}
				return renderTable(cmd.OutOrStdout(), []string{"ID", "SAVED", "CHANGE"}, rows)
			})
		},
	}
	cmd.AddCommand(newHistoryShowCmd(opts), newHistoryRevertCmd(opts), newHistoryRunsCmd(opts))
	return cmd
}

func newHistoryShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the document saved by a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				cfg, err := a.manager.Store().Revision(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printNode(cmd.OutOrStdout(), cfg, "yaml")
			})
		},
	}
}

func newHistoryRevertCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert ID",
		Short: "Replace the document with a saved revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if err := a.manager.Revert(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format.Success("✓ reverted to %s", args[0]))
				return nil
			})
		},
	}
}

func newHistoryRunsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs [RUN]",
		Short: "List archived generation runs, or print the settings of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				dep, err := a.deployment(cmd.Context(), opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				gen := a.manager.Generator()
				if len(args) == 1 {
					settings, err := gen.RunSettings(dep, args[0])
					if err != nil {
						return err
					}
					return printRunSettings(out, settings, opts.verbose)
				}
				runs, err := gen.Runs(dep)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No generation runs archived")
					return nil
				}
				for _, run := range runs {
					fmt.Fprintln(out, run)
				}
				return nil
			})
		},
	}
}

func printRunSettings(w io.Writer, settings map[profile.ServiceType]profile.ServiceSettings, verbose bool) error {
	names := make([]string, 0, len(settings))
	for t := range settings {
		names = append(names, string(t))
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := settings[profile.ServiceType(name)]
		rows = append(rows, []string{name, format.StatusSymbol(s.Enabled), s.BaseURL(), s.Artifact})
	}
	if err := renderTable(w, []string{"SERVICE", "ENABLED", "ADDRESS", "ARTIFACT"}, rows); err != nil {
		return err
	}
	if verbose {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return nil
}
