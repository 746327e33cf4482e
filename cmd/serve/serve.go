// Package serve runs the HTTP API
package serve

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/root"
	"fjacquet/finagent/internal/container"
	"fjacquet/finagent/internal/httpapi"
	"fjacquet/finagent/internal/logging"
)

// ShutdownTimeout bounds graceful shutdown after an interrupt.
const ShutdownTimeout = 30 * time.Second

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API exposing accounts, transaction fetches, adjusted transactions,
insights and the dashboard. The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	cfg := c.GetConfig()
	logger := c.GetLogger()

	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}

	server := httpapi.NewServer(listen, newRouter(c), cfg.ReadTimeout(), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting API server",
		logging.F("addr", listen),
		logging.F(logging.FieldSource, c.GetService().SourceName()))
	if err := server.Run(ctx, ShutdownTimeout); err != nil {
		return err
	}
	logger.Info("Server exited")
	return nil
}

// newRouter builds the API handler. /health reports the Plaid environment.
func newRouter(c *container.Container) http.Handler {
	cfg := c.GetConfig()
	handlers := httpapi.NewHandlers(c.GetService(), cfg.Provider.Plaid.Environment, c.GetLogger())
	return httpapi.NewRouter(handlers, cfg.Server.AllowedOrigins, c.GetLogger())
}
