package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP compile service",
		Long: `Serve the compiler over HTTP.

Endpoints:
  POST /v1/compile            compile a policy (JSON body)
  POST /v1/lint               lint a policy (JSON body)
  GET  /v1/dialects           list supported dialects
  GET  /v1/compilations       list recorded compilations
  GET  /v1/compilations/{id}  show one recorded compilation
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics

Requests without a dialect, entry point, or windowDays option use the
configured defaults. Canonicalization is available to requests only when
it is enabled in the configuration; history endpoints only when
record_history is.`,
		Example: `  leapdecide serve --addr :9090
  leapdecide serve --canonicalize --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			ctx := cmd.Context()

			compiler, cleanup, err := cc.Compiler(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			linter, err := cc.Cfg.Lint.Analyzer()
			if err != nil {
				return err
			}

			cfg := server.Config{
				Compiler: compiler,
				Linter:   linter,
				Defaults: server.Defaults{
					Dialect:    cc.Cfg.Dialect,
					EntryPoint: cc.Cfg.EntryPoint,
					WindowDays: cc.Cfg.WindowDays,
				},
				Addr:         cc.Cfg.Server.Addr,
				ReadTimeout:  cc.Cfg.Server.ReadTimeout,
				WriteTimeout: cc.Cfg.Server.WriteTimeout,
				Logger:       cc.Logger,
				Registry:     prometheus.NewRegistry(),
			}

			if cc.Cfg.Canonicalize.Enabled {
				canonical, closeCanonical, err := cc.Compiler(ctx, true)
				if err != nil {
					return err
				}
				defer closeCanonical()
				cfg.Canonical = canonical
			}

			if cc.Cfg.RecordHistory {
				store, err := cc.OpenStore()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				cfg.Store = store
				cfg.RecordAll = true
			}

			return server.New(cfg).Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from server.addr)")

	return cmd
}
