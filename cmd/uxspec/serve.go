package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/config"
	"github.com/v0xg/uxspec/internal/logging"
	"github.com/v0xg/uxspec/internal/server"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan operations over HTTP and MCP",
		Long: `Starts the HTTP server used by the design plugin and MCP clients.
Operations are exposed under /mcp/ as JSON endpoints and as MCP tools on
/mcp/rpc. Without a Cloudinary cloud, screenshot uploads are queued for the
plugin on /plugin/messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger := logging.Setup(os.Stderr, "uxspec", cfg.Log.Level)

			build := func(c *config.Config) (*app.Deps, error) {
				return app.Build(c, logger, true)
			}
			srv, err := server.New(cfg, build, server.Options{Version: version, Logger: logger})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "✓ Listening on %s\n", cfg.Addr())
			if err := srv.Run(ctx, cfg.Addr()); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 3000, "Port to listen on")
	return cmd
}

