package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
	"github.com/wesleyorama2/taskswarm/internal/output"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

// probeTimeout bounds the start-of-run connectivity probe.
const probeTimeout = 5 * time.Second

// registerRunHooks wires the run-level observers: a start log plus health
// probe, printed totals on stop and a log line per failed request.
func registerRunHooks(hooks *swarm.Hooks, logger *zap.Logger, console *output.ConsoleOutput, insecure bool) {
	probe := newProbeClient(insecure)

	hooks.OnTestStart(func(ctx context.Context, info *swarm.RunInfo) {
		logger.Info("Load test starting",
			zap.String("host", info.Host),
			zap.Int("users", info.Users),
			zap.Float64("spawnRate", info.SpawnRate),
			zap.Strings("profiles", info.Profiles))
		probeHealth(ctx, probe, info.Host, logger)
	})

	hooks.OnTestStop(func(ctx context.Context, info *swarm.RunInfo, summary metrics.Summary) {
		console.Println(stopTotals(summary)...)
	})

	hooks.OnRequestFailure(func(f swarm.RequestFailure) {
		logger.Warn("Request failed",
			zap.String("method", f.Method),
			zap.String("name", f.Name),
			zap.Int("status", f.StatusCode),
			zap.Duration("duration", f.Duration),
			zap.String("error", f.Message))
	})
}

// newProbeClient returns a client independent of the users' sessions that
// keeps the default proxy and dial settings.
func newProbeClient(insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure}
	return &http.Client{Timeout: probeTimeout, Transport: transport}
}

// probeHealth issues one GET /health outside the recorded statistics and
// logs the outcome. It never affects the run.
func probeHealth(ctx context.Context, client *http.Client, host string, logger *zap.Logger) {
	url := strings.TrimRight(host, "/") + taskapi.PathHealth
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Warn("Health probe failed", zap.String("url", url), zap.Error(err))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("Health probe failed", zap.String("url", url), zap.Error(err))
		return
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		logger.Info("Health probe passed", zap.String("url", url))
		return
	}
	logger.Warn("Health probe returned unexpected status", zap.String("url", url), zap.Int("status", resp.StatusCode))
}

// stopTotals renders the aggregate counters printed when a run stops.
func stopTotals(s metrics.Summary) []string {
	return []string{
		"",
		"Load test finished",
		fmt.Sprintf("  Total requests:     %d", s.TotalRequests),
		fmt.Sprintf("  Total failures:     %d", s.TotalFailures),
		fmt.Sprintf("  Avg response time:  %.2f ms", s.AvgResponseTime),
		fmt.Sprintf("  Max response time:  %.2f ms", s.MaxResponseTime),
		fmt.Sprintf("  Current RPS:        %.2f", s.CurrentRPS),
	}
}
