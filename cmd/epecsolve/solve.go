// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/epec/epec"
	"github.com/katalvlaran/epec/instance"
	"github.com/katalvlaran/epec/metrics"
)

type solveOptions struct {
	workers     int
	timeLimit   time.Duration
	metricsAddr string
}

func newSolveCommand(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve <instance.yaml>",
		Short: "Compute an equilibrium and write the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel workers, 0 keeps the instance setting")
	cmd.Flags().DurationVar(&opts.timeLimit, "time-limit", 0, "wall-clock limit, 0 keeps the instance setting")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while solving")

	return cmd
}

func runSolve(cmd *cobra.Command, root *rootOptions, opts *solveOptions, path string) error {
	ctx := cmd.Context()
	log, err := root.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if opts.workers < 0 {
		return fmt.Errorf("invalid --workers %d", opts.workers)
	}
	if opts.timeLimit < 0 {
		return fmt.Errorf("invalid --time-limit %s", opts.timeLimit)
	}

	f, err := instance.Load(path)
	if err != nil {
		return err
	}
	leaders, err := instance.Build(f, log)
	if err != nil {
		return err
	}
	eopts, err := f.Solver.Options()
	if err != nil {
		return err
	}
	eopts = append(eopts, epec.WithLogger(log))
	if opts.workers > 0 {
		eopts = append(eopts, epec.WithWorkers(opts.workers))
	}
	if opts.timeLimit > 0 {
		eopts = append(eopts, epec.WithTimeLimit(opts.timeLimit))
	}
	if opts.metricsAddr != "" {
		m, shutdown, err := serveMetrics(ctx, opts.metricsAddr, log)
		if err != nil {
			return err
		}
		defer shutdown()
		eopts = append(eopts, epec.WithMetrics(m))
	}

	c, err := epec.New(leaders, eopts...)
	if err != nil {
		return err
	}
	log.Info("solving", "instance", f.Name, "leaders", len(leaders))
	rep, err := c.Solve(ctx)
	if err != nil {
		return err
	}
	log.Info("finished", "run_id", rep.RunID, "status", rep.Status, "passes", rep.Stats.Passes)

	w, closeFn, err := root.writer(cmd)
	if err != nil {
		return err
	}
	if err := instance.WriteReport(w, f.Name, rep); err != nil {
		_ = closeFn()
		return err
	}

	return closeFn()
}

// serveMetrics exposes a fresh registry on addr until shutdown is called.
func serveMetrics(ctx context.Context, addr string, log *slog.Logger) (*metrics.Metrics, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return m, func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}
