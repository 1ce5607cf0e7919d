package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KasperOmsK/rxfn"
	"github.com/KasperOmsK/rxfn/internal/config"
	"github.com/KasperOmsK/rxfn/internal/scenario"
	"github.com/KasperOmsK/rxfn/natsrx"
)

// run executes the configured scenarios one after the other. It stops at the
// first scenario that fails or when ctx is done.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	scenarios, err := scenario.Select(cfg.Run.Scenarios)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rxfn.Configure(
		rxfn.WithLogger(rxfn.NewSlogLogger(logger)),
		rxfn.WithMetrics(rxfn.NewPrometheusMetrics(reg, cfg.Metrics.Namespace)),
	)
	defer rxfn.ResetConfiguration()

	if cfg.Metrics.Listen != "" {
		srv := startMetricsServer(cfg.Metrics.Listen, reg, logger)
		defer shutdownMetricsServer(srv, logger)
	}

	nc, closeNATS, err := connectNATS(cfg.NATS)
	if err != nil {
		return err
	}
	defer closeNATS()
	if nc != nil {
		echo := natsrx.Subscribe(nc, cfg.NATS.Subject+".>").SubscribeFunc(func(m *nats.Msg) {
			logger.Debug("published", "subject", m.Subject, "data", string(m.Data))
		}, func(err error) {
			logger.Warn("cannot follow published emissions", "error", err)
		}, nil)
		defer echo.Unsubscribe()
	}

	sched := rxfn.NewAsyncScheduler()
	defer sched.Close()

	r := &runner{
		env:     scenario.Env{Scheduler: sched, Tick: cfg.Run.Tick},
		timeout: cfg.Run.Timeout,
		logger:  logger,
		nc:      nc,
		subject: cfg.NATS.Subject,
	}
	for _, s := range scenarios {
		if err := r.run(ctx, s); err != nil {
			return err
		}
	}

	logger.Info("all scenarios completed", "count", len(scenarios))

	return nil
}

type runner struct {
	env     scenario.Env
	timeout time.Duration
	logger  *slog.Logger
	nc      *nats.Conn // nil when publishing is off
	subject string
}

func (r *runner) run(ctx context.Context, s scenario.Scenario) error {
	logger := r.logger.With("scenario", s.Name, "group", s.Group)
	logger.Info("scenario started", "description", s.Description)

	out := s.Build(r.env)
	if r.nc != nil {
		subject := r.subject + "." + s.Name
		raw := rxfn.Map(out, func(v string) []byte { return []byte(v) })
		out = rxfn.Map(natsrx.Publish(r.nc, subject, raw), func(b []byte) string { return string(b) })
	}
	out = rxfn.Tap(out, func(v string) {
		logger.Info("emission", "value", v)
	}, nil, nil)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	values, err := rxfn.Collect(ctx, out)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("scenario %s did not complete within %s: %w", s.Name, r.timeout, err)
		}
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	logger.Info("scenario completed", "values", len(values), "elapsed", time.Since(start).Round(time.Millisecond))

	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr, "path", "/metrics")

	return srv
}

func shutdownMetricsServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}
