package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartwise/backend/internal/app"
)

func newMerchantCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merchant <id>",
		Short: "Show a merchant's display name and logo URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			m := app.NewMerchantDirectory(cfg).Lookup(args[0])
			if opts.output != outputText {
				return writeStructured(cmd.OutOrStdout(), opts.output, m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Name, m.LogoURL)
			return nil
		},
	}
}
