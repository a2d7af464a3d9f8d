package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/keel/pkg/backup"
	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/log"
)

func newBackupCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore the configuration",
	}
	cmd.AddCommand(newBackupCreateCmd(opts), newBackupRestoreCmd(opts), newBackupListCmd(opts))
	return cmd
}

func newBackupCreateCmd(opts *globalOptions) *cobra.Command {
	var archive string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Copy the document to its backup location, or archive the base directory",
		Long: `Without --archive the document and its required files are copied to the
backup location inside the base directory. With --archive the whole base
directory, minus transient directories, is written to a compressed tar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if archive == "" {
					dir, err := a.manager.Backup(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, format.Success("✓ backup written to %s", dir))
					return nil
				}
				n, err := backup.CreateFile(ctx, a.cfg.BaseDir, archive, a.cfg.Backup.Excludes)
				a.metrics.RecordBackup("archive", err)
				if err != nil {
					return err
				}
				a.logger.Info("Archive created", log.Path(archive), log.Int("entries", n))
				fmt.Fprintln(out, format.Success("✓ archived %d entries to %s", n, archive))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "write a compressed tar of the base directory to this path")
	return cmd
}

func newBackupRestoreCmd(opts *globalOptions) *cobra.Command {
	var archive string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the document from its backup location or from an archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if archive == "" {
					if err := a.manager.RestoreBackup(ctx); err != nil {
						return err
					}
					fmt.Fprintln(out, format.Success("✓ document restored from backup"))
					return nil
				}
				n, err := backup.RestoreFile(ctx, archive, a.cfg.BaseDir)
				a.metrics.RecordBackup("extract", err)
				if err != nil {
					return err
				}
				a.manager.Reload()
				a.logger.Info("Archive restored", log.Path(archive), log.Int("entries", n))
				fmt.Fprintln(out, format.Success("✓ restored %d entries from %s", n, archive))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "extract this archive into the base directory")
	return cmd
}

func newBackupListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the files an archive would contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				entries, err := backup.Walk(a.cfg.BaseDir, a.cfg.Backup.Excludes)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					size := "-"
					if !e.Info.IsDir() {
						size = fmt.Sprintf("%d", e.Info.Size())
					}
					rows = append(rows, []string{e.Rel, e.Info.Mode().String(), size, e.Info.ModTime().Format(time.RFC3339)})
				}
				return renderTable(cmd.OutOrStdout(), []string{"PATH", "MODE", "SIZE", "MODIFIED"}, rows)
			})
		},
	}
}
