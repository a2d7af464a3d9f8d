package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rzbill/keel/pkg/api/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		address string
		apiKeys []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with health and metrics endpoints",
		Long: `Serve the configuration over HTTP:

  GET  /healthz                     liveness
  GET  /metrics                     Prometheus metrics
  GET  /v1/deployments              deployment names
  GET  /v1/config/{path}            a node of the document as JSON
  GET  /v1/validate/{deployment}    validation problems
  POST /v1/generate/{deployment}    stage the deployment's profiles`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if address == "" {
					address = a.cfg.Metrics.Address
				}
				if len(apiKeys) == 0 {
					if key := os.Getenv("KEEL_API_KEY"); key != "" {
						apiKeys = []string{key}
					}
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				srv := server.New(a.manager,
					server.WithAddr(address),
					server.WithAuth(apiKeys),
					server.WithMetrics(a.metrics),
					server.WithLogger(a.logger))
				return srv.Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (default is metrics.address from the config)")
	cmd.Flags().StringSliceVar(&apiKeys, "api-key", nil, "bearer tokens accepted by /v1 endpoints (default is $KEEL_API_KEY)")
	return cmd
}
