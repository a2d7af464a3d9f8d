package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rzbill/keel/pkg/cli/format"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile   string
	baseDir      string
	deployment   string
	logLevel     string
	verbose      bool
	noColor      bool
	remoteChecks bool
}

// NewRootCmd builds the keel command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "keel",
		Short: "keel - configuration manager for multi-service platform deployments",
		Long: `keel keeps the configuration of platform deployments in a single
versioned document, validates every change against the deployment it
touches and renders per-service profiles ready to install.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || color.NoColor {
				format.EnableColor(false)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is ./keel.yaml, $HOME/.keel/keel.yaml or /etc/keel/keel.yaml)")
	flags.StringVar(&opts.baseDir, "base-dir", "", "directory holding the configuration document (overrides base_dir)")
	flags.StringVarP(&opts.deployment, "deployment", "d", "", "deployment to operate on (default is the document's current deployment)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&opts.remoteChecks, "remote-checks", false, "run validation checks that call external APIs")

	root.AddCommand(
		newInitCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newAddCmd(opts),
		newRemoveCmd(opts),
		newValidateCmd(opts),
		newGenerateCmd(opts),
		newBackupCmd(opts),
		newSecretsCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree and exits with a code derived from the
// error: 2 for rejected validation, 1 for everything else.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, format.Error("Error: %v", err))
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, types.ErrValidationFailed) {
		return 2
	}
	return 1
}
