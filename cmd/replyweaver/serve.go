package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/drblury/replyweaver/config"
	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/responder"
	"github.com/drblury/replyweaver/router"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr        string
	openAPIPath string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo API with Prometheus metrics on /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, err := newServerHandler(cfg, opts.openAPIPath, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			return serve(ctx, cfg.Server.Addr, handler, logger)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.openAPIPath, "openapi", "", "OpenAPI document used to validate requests")
	return cmd
}

// newServerHandler wires the responder, router and metrics endpoint.
func newServerHandler(cfg config.Config, openAPIPath string, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sink, err := metrics.NewPrometheusSink(reg, metrics.Options{
		Namespace: cfg.Metrics.Namespace,
		Buckets:   cfg.Metrics.Buckets,
	})
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	res := responder.NewResponder(
		responder.WithLogger(logger),
		responder.WithMetricsSink(sink),
		responder.WithTraceVendor(cfg.Tracing.Vendor),
	)

	routerOpts := []router.Option{
		router.WithLogger(logger),
		router.WithConfig(cfg.Server.Config),
		router.WithResponder(res),
	}
	if openAPIPath != "" {
		doc, err := openapi3.NewLoader().LoadFromFile(openAPIPath)
		if err != nil {
			return nil, fmt.Errorf("load openapi document: %w", err)
		}
		if err := doc.Validate(context.Background()); err != nil {
			return nil, fmt.Errorf("invalid openapi document: %w", err)
		}
		routerOpts = append(routerOpts, router.WithSwagger(doc))
	}

	mux := router.New(newAPI(res), routerOpts...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux, nil
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
