// ABOUTME: Serve command exposes the mediator over HTTP
// ABOUTME: Runs until interrupted, then drains in-flight requests
package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/server"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat2db HTTP API",
		Long: `Serve the chat2db HTTP API.

Endpoints:
  GET  /healthz
  POST /v1/chat        {"username", "message", "database"}
  POST /v1/execute     {"username", "sql"}      (admin only)
  GET  /v1/schema      ?database=NAME
  GET  /v1/databases`,
		Example: `  chat2db serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{requireCompleter: true, logFormat: "json"})
			if err != nil {
				return err
			}
			defer a.Close()

			addr := serveAddr
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(a.mediator, a.users, a.schema, a.log).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default HTTP_ADDR or :8080)")

	return cmd
}
