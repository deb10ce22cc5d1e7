package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/betbot/degiro/internal/gateway"
	"github.com/betbot/degiro/internal/metrics"
	"github.com/betbot/degiro/pkg/logger"
	"github.com/betbot/degiro/pkg/shutdown"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen        string
		metricsListen string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local read-only HTTP and websocket gateway",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if listen == "" {
				listen = a.cfg.Gateway.Listen
			}
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			gwCfg := gateway.Config{
				Trader:        c,
				QuoteInterval: a.cfg.Gateway.QuoteInterval.Duration,
				Log:           logger.Logger,
			}
			if j != nil {
				gwCfg.Journal = j
			}
			gw, err := gateway.New(gwCfg)
			if err != nil {
				return err
			}

			stop := shutdown.NewManager()
			if metricsListen != "" {
				mctx, cancel := context.WithCancel(context.Background())
				srv, err := metrics.StartAsync(mctx, metricsListen)
				if err != nil {
					cancel()
					return err
				}
				logger.Infof("metrics listening on %s", srv.Addr)
				stop.OnShutdown("metrics", func(ctx context.Context) error {
					cancel()
					return nil
				})
			}

			httpSrv := &http.Server{
				Addr:              listen,
				Handler:           gw.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			stop.OnShutdown("gateway", httpSrv.Shutdown)

			errCh := make(chan error, 1)
			go func() {
				logger.Infof("gateway listening on %s", listen)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stop.Shutdown(shutdownCtx); err != nil && serveErr == nil {
				serveErr = err
			}
			logger.Infof("gateway stopped")
			return serveErr
		}),
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config, 127.0.0.1:8088)")
	cmd.Flags().StringVar(&metricsListen, "metrics", "", "serve expvar and pprof on this address, e.g. 127.0.0.1:6060")
	return cmd
}
