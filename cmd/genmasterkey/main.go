package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/listqr/internal/crypto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:          "genmasterkey",
		Short:        "Generate the master key the session cookie keys are derived from",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists; refusing to overwrite without --force", out)
			}
			hexKey := crypto.GenerateMasterKey()
			if err := os.WriteFile(out, []byte(hexKey+"\n"), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Master key written to %s\n", out)
			fmt.Fprintf(cmd.OutOrStdout(), "Or export it instead: MASTER_KEY_HEX=%s\n", hexKey)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "master.key", "file to write the hex key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}
