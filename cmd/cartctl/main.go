// Package main is the entry point for the cartctl CLI, which runs cart
// optimization and catalog lookups without the HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cartwise/backend/config"
	"github.com/cartwise/backend/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
	output     string
}

// loadConfig reads the configuration and builds a stderr logger
func (o *rootOptions) loadConfig(stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logging.New(logging.Config{Level: o.logLevel, Pretty: true, Output: stderr})
	return cfg, log, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Optimize grocery lists across merchants",
		Long: `cartctl runs the Cartwise optimization pipeline from the command line.

It reads the same configuration as the server (config.yaml, .env and
CARTWISE_* environment variables) and talks to the configured catalog API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (use text, json or yaml)", opts.output)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/cartwise/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json, yaml")

	rootCmd.AddCommand(newOptimizeCmd(opts))
	rootCmd.AddCommand(newSearchCmd(opts))
	rootCmd.AddCommand(newMerchantCmd(opts))

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
