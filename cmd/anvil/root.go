package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Schema-driven admin backend",
	Long: `anvil serves create, list, update and delete endpoints for
resources declared as YAML forms and tables.

Quick start:
  anvil validate    # Check configuration and resource files
  anvil resources   # Show the resources that will be served
  anvil serve       # Start the admin server`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "anvil.yaml", "config file path")
}
