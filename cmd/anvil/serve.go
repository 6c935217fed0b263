package main

import (
	"context"
	"fmt"

	"github.com/artpar/anvil/bootstrap"
	"github.com/spf13/cobra"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin server",
	Long: `Start the anvil admin server.

The server will:
  - Load configuration from anvil.yaml (or --config)
  - Apply ANVIL_* environment overrides
  - Load resource definitions from resources.dir
  - Create missing tables in the configured database
  - Serve the admin API, health checks and metrics

Environment variables:
  ANVIL_SERVER_PORT       - Server port (default: 8080)
  ANVIL_DATABASE_DRIVER   - memory, sqlite3, sqlite or postgres
  ANVIL_DATABASE_DSN      - Database path or connection string
  ANVIL_RESOURCES_DIR     - Resource definitions directory
  ANVIL_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  anvil serve
  anvil serve --config /etc/anvil/anvil.yaml
  anvil serve --hot-reload=false
  ANVIL_DATABASE_DRIVER=memory anvil serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload logging.level when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: cfgFile,
		HotReload:  hotReload,
		Version:    version,
		Commit:     commit,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return app.Run()
}
