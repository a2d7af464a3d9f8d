package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSecretsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage encrypted secret references",
	}
	cmd.AddCommand(newSecretsEncryptCmd(opts), newSecretsEnginesCmd(opts))
	return cmd
}

func newSecretsEncryptCmd(opts *globalOptions) *cobra.Command {
	var file, outPath, aad string
	cmd := &cobra.Command{
		Use:   "encrypt [VALUE]",
		Short: "Encrypt a value or file with the local master key",
		Long: `Encrypt a value or a file with the local master key and print the
reference to store in the configuration in place of the plain value.

The value is read from the argument, or from stdin when omitted. On a
terminal the input is not echoed.`,
		Example: `  keel secrets encrypt
  keel secrets encrypt --file kubeconfig --out kubeconfig.enc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				var (
					ref string
					err error
				)
				if file != "" {
					if outPath == "" {
						outPath = file + ".enc"
					}
					ref, err = a.local.EncryptFile(file, outPath, aad)
				} else {
					var value []byte
					value, err = readSecret(cmd, args)
					if err != nil {
						return err
					}
					ref, err = a.local.Encrypt(value, aad)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "encrypt the contents of this file")
	cmd.Flags().StringVar(&outPath, "out", "", "where to write the encrypted file (default is <file>.enc)")
	cmd.Flags().StringVar(&aad, "aad", "", "associated data bound to the ciphertext")
	return cmd
}

func readSecret(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Secret: ")
		value, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return value, err
	}
	value, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(value, "\r\n"), nil
}

func newSecretsEnginesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the engines secret references can name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				for _, name := range a.secrets.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
