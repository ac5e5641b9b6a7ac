// Package cli is the colleshop command line: serve (default) and seed.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Zhima-Mochi/colleshop/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// NewRootCommand builds the command tree. Running it without a subcommand serves HTTP.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "colleshop",
		Short: "ColleShop checkout and order fulfillment service",
		Long: `colleshop prices carts against the catalog, reserves stock, obtains payment intents
and drives the order lifecycle. Configuration comes from the environment and an optional YAML file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, version)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCommand(opts, version))
	root.AddCommand(newSeedCommand(opts))
	return root
}

// Execute runs the root command
func Execute(ctx context.Context, version string) error {
	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
