package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/taskswarm/internal/behavior"
	"github.com/wesleyorama2/taskswarm/internal/config"
	"github.com/wesleyorama2/taskswarm/internal/metrics"
	"github.com/wesleyorama2/taskswarm/internal/output"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

// Live view cadence. Line-per-update output is throttled so logs stay
// readable in CI.
const (
	liveUpdateInterval = time.Second
	lineUpdateInterval = 5 * time.Second
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test against the task API",
		Long: `Spawn virtual users against the task API and report response time
statistics when the run ends.

Configuration comes from TASKSWARM_* environment variables; flags override
them. Examples:

  taskswarm run --host http://localhost:3000 --users 50 --spawn-rate 5 --run-time 10m
  TASKSWARM_HEADLESS=true taskswarm run -u 20 -t 300 -o result.json
  taskswarm run --profiles mix.yaml --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLoad(ctx, cfg, runOptions{
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
				quiet:  quiet,
			})
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().BoolP("quiet", "q", false, "Disable live progress output, show only the final totals")
	return cmd
}

type runOptions struct {
	stdout io.Writer
	stderr io.Writer
	quiet  bool
}

// runLoad executes one load run with a resolved configuration.
func runLoad(ctx context.Context, cfg config.RunConfig, opts runOptions) error {
	logger, err := newLogger(cfg.LogLevel, opts.stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var mix *config.ProfileMix
	if cfg.ProfileFile != "" {
		mix, err = config.LoadProfileMix(cfg.ProfileFile)
		if err != nil {
			return fmt.Errorf("error loading profiles: %w", err)
		}
	}
	profiles, err := behavior.Resolve(mix, behavior.Options{
		RequestTimeout:     cfg.RequestTimeout.Std(),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return err
	}

	engine := metrics.NewEngine()
	if cfg.MetricsAddr != "" {
		_, shutdown, err := serveMetrics(cfg.MetricsAddr, engine, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	console := output.NewConsoleOutput(output.ConsoleOutputConfig{
		Host:     cfg.Host,
		RunTime:  cfg.RunDuration,
		Writer:   opts.stdout,
		Headless: cfg.Headless,
		Quiet:    opts.quiet,
	})

	hooks := swarm.NewHooks()
	registerRunHooks(hooks, logger, console, cfg.InsecureSkipVerify)

	runner, err := swarm.NewRunner(swarm.Config{
		Host:           cfg.Host,
		Users:          cfg.Users,
		SpawnRate:      cfg.SpawnRate,
		RunTime:        cfg.RunDuration,
		RequestTimeout: cfg.RequestTimeout.Std(),
	}, profiles, engine, hooks, logger)
	if err != nil {
		return fmt.Errorf("error creating runner: %w", err)
	}

	console.PrintHeader(runner.Info())

	var (
		result *swarm.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = runner.Run(ctx)
	}()

	interval := lineUpdateInterval
	if console.Interactive() {
		interval = liveUpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

progressLoop:
	for {
		select {
		case <-done:
			break progressLoop
		case <-ticker.C:
			if runner.IsRunning() && ctx.Err() == nil {
				stats := output.StatsFromSummary(engine.Summary(), runner.Progress(), cfg.RunDuration, cfg.Users)
				console.Report(stats)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("error running test: %w", runErr)
	}

	console.PrintSummary(result)

	if cfg.OutputFile != "" {
		if err := output.WriteResultFile(cfg.OutputFile, cfg.Host, result); err != nil {
			return err
		}
		logger.Info("Result written", zap.String("path", cfg.OutputFile))
	}
	return nil
}

// serveMetrics exposes the Prometheus registry on addr and returns the bound
// address with a func that shuts the server down.
func serveMetrics(addr string, engine *metrics.Engine, logger *zap.Logger) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on metrics address: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.NewPrometheusObserver(reg)
	if err != nil {
		ln.Close()
		return nil, nil, err
	}
	engine.AddObserver(observer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("Serving Prometheus metrics", zap.String("addr", ln.Addr().String()))

	return ln.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
