package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

// Cursor control
const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"
)

// Box drawing characters
const (
	boxHorizontal  = "━"
	boxVertical    = "│"
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"

	progressFilled = "█"
	progressEmpty  = "░"
)

// maxFailureRows caps the failures table in the summary.
const maxFailureRows = 10

// LiveStats contains real-time statistics for display.
type LiveStats struct {
	Progress  float64 // 0.0 to 1.0, zero when the run has no time limit
	Elapsed   time.Duration
	Remaining time.Duration

	ActiveUsers int
	TargetUsers int

	CurrentRPS    float64
	TotalRequests int64
	Failures      int64
	FailureRatio  float64

	// Response times in milliseconds
	P95 float64
	Avg float64
}

// ConsoleOutput manages live console output during a run.
type ConsoleOutput struct {
	host     string
	runTime  time.Duration
	writer   io.Writer
	isTTY    bool
	headless bool
	quiet    bool
	colors   *ColorScheme

	mu          sync.Mutex
	linesOutput int
}

// ConsoleOutputConfig contains configuration for ConsoleOutput.
type ConsoleOutputConfig struct {
	Host        string
	RunTime     time.Duration
	Writer      io.Writer
	Headless    bool
	Quiet       bool
	ForceColors bool
	ForceTTY    bool
}

// NewConsoleOutput creates a new console output handler.
func NewConsoleOutput(config ConsoleOutputConfig) *ConsoleOutput {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	isTTY := config.ForceTTY || isTerminal(config.Writer)
	colors := NoColorScheme()
	if config.ForceColors || (isTTY && supportsColors()) {
		colors = ForcedColorScheme()
	}

	return &ConsoleOutput{
		host:     config.Host,
		runTime:  config.RunTime,
		writer:   config.Writer,
		isTTY:    isTTY,
		headless: config.Headless,
		quiet:    config.Quiet,
		colors:   colors,
	}
}

// Interactive reports whether the live view redraws in place.
func (c *ConsoleOutput) Interactive() bool {
	return c.isTTY && !c.headless
}

// IsTTY returns whether the output is a terminal.
func (c *ConsoleOutput) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run header.
func (c *ConsoleOutput) PrintHeader(info *swarm.RunInfo) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(boxHorizontal, 56)
	runTime := "until stopped"
	if info.RunTime > 0 {
		runTime = formatDuration(info.RunTime)
	}

	c.writeln(c.colors.Border.Sprint(line))
	c.writeln(c.colors.Title.Sprintf("taskswarm - Running against %s", info.Host))
	c.writeln(c.colors.Border.Sprint(line))
	c.writeln(fmt.Sprintf("Users:      %s (spawn rate %.1f/s)", c.colors.Value.Sprint(info.Users), info.SpawnRate))
	c.writeln(fmt.Sprintf("Run time:   %s", c.colors.Value.Sprint(runTime)))
	c.writeln(fmt.Sprintf("Profiles:   %s", c.colors.Accent.Sprint(strings.Join(info.Profiles, ", "))))
	c.writeln("")
}

// Update redraws the live display in place. It does nothing unless the
// console is interactive.
func (c *ConsoleOutput) Update(stats *LiveStats) {
	if c.quiet || !c.Interactive() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()
	lines := c.renderLiveStats(stats)
	c.linesOutput = len(lines)
	for _, line := range lines {
		c.writeln(line)
	}
}

// Report shows stats the way the console is configured to: redrawn in place
// when interactive, one line otherwise.
func (c *ConsoleOutput) Report(stats *LiveStats) {
	if c.Interactive() {
		c.Update(stats)
		return
	}
	c.PrintNonInteractiveUpdate(stats)
}

// Println writes lines below the output, removing the live display first
// so it is redrawn underneath on the next update.
func (c *ConsoleOutput) Println(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isTTY {
		c.clearLive()
	}
	for _, line := range lines {
		c.writeln(line)
	}
}

func (c *ConsoleOutput) clearLive() {
	if c.linesOutput == 0 {
		return
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	for i := 0; i < c.linesOutput; i++ {
		c.write(clearLine + "\n")
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	c.linesOutput = 0
}

// renderLiveStats renders the live statistics display.
func (c *ConsoleOutput) renderLiveStats(stats *LiveStats) []string {
	var lines []string

	if c.runTime > 0 {
		bar := renderProgressBar(stats.Progress, 40)
		percent := fmt.Sprintf("%.0f%%", stats.Progress*100)
		timeInfo := fmt.Sprintf("%s / %s", formatDuration(stats.Elapsed), formatDuration(stats.Elapsed+stats.Remaining))
		lines = append(lines, fmt.Sprintf("Progress: %s %s | %s",
			c.colors.Success.Sprint(bar),
			c.colors.Title.Sprint(percent),
			c.colors.Dim.Sprint(timeInfo)))
	} else {
		lines = append(lines, fmt.Sprintf("Elapsed:  %s %s",
			c.colors.Title.Sprint(formatDuration(stats.Elapsed)),
			c.colors.Dim.Sprint("(Ctrl+C to stop)")))
	}
	lines = append(lines, "")

	boxWidth := 55
	lines = append(lines, c.colors.Dim.Sprint(boxTopLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxTopRight))

	usersStr := fmt.Sprintf("Users:   %s / %d", c.colors.Value.Sprint(stats.ActiveUsers), stats.TargetUsers)
	reqsStr := fmt.Sprintf("Requests:    %s", c.colors.Value.Sprint(formatNumber(stats.TotalRequests)))
	lines = append(lines, c.formatBoxRow(usersStr, reqsStr, boxWidth))

	ratio := c.colors.ratioColor(stats.FailureRatio)
	rpsStr := fmt.Sprintf("RPS:     %s", c.colors.Success.Sprintf("%.1f", stats.CurrentRPS))
	failStr := fmt.Sprintf("Failures:    %s (%s)",
		ratio.Sprint(stats.Failures),
		ratio.Sprintf("%.1f%%", stats.FailureRatio*100))
	lines = append(lines, c.formatBoxRow(rpsStr, failStr, boxWidth))

	p95Str := fmt.Sprintf("P95:     %s", c.colors.Latency.Sprint(formatMillis(stats.P95)))
	avgStr := fmt.Sprintf("Avg:         %s", c.colors.Latency.Sprint(formatMillis(stats.Avg)))
	lines = append(lines, c.formatBoxRow(p95Str, avgStr, boxWidth))

	lines = append(lines, c.colors.Dim.Sprint(boxBottomLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxBottomRight))
	return lines
}

// formatBoxRow formats a row inside the stats box with two columns.
func (c *ConsoleOutput) formatBoxRow(left, right string, boxWidth int) string {
	colWidth := (boxWidth - 4) / 2
	border := c.colors.Dim.Sprint(boxVertical)
	return fmt.Sprintf("%s %s%s %s%s",
		border, padRight(left, colWidth),
		border, padRight(right, colWidth),
		" "+border)
}

func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// PrintNonInteractiveUpdate prints a one-line status update.
// Used when headless or when output is not a TTY.
func (c *ConsoleOutput) PrintNonInteractiveUpdate(stats *LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Users: %d/%d | Reqs: %d | RPS: %.1f | Failures: %d (%.1f%%) | Avg: %s | P95: %s",
		formatDuration(stats.Elapsed),
		stats.ActiveUsers,
		stats.TargetUsers,
		stats.TotalRequests,
		stats.CurrentRPS,
		stats.Failures,
		stats.FailureRatio*100,
		formatMillis(stats.Avg),
		formatMillis(stats.P95)))
}

// PrintSummary prints the final results with per-endpoint and failure tables.
func (c *ConsoleOutput) PrintSummary(result *swarm.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isTTY {
		c.clearLive()
	}

	s := result.Summary
	if c.quiet {
		c.writeln(fmt.Sprintf("%d requests, %d failures", s.TotalRequests, s.TotalFailures))
		return
	}

	line := strings.Repeat(boxHorizontal, 56)
	status := c.colors.Success.Sprint("Completed ✓")
	switch {
	case result.ForcedStop:
		status = c.colors.Warning.Sprint("Stopped (grace period exceeded) ⚠")
	case result.Interrupted:
		status = c.colors.Warning.Sprint("Interrupted ⚠")
	}

	c.writeln("")
	c.writeln(c.colors.Border.Sprint(line))
	c.writeln(fmt.Sprintf("%s - %s", c.colors.Title.Sprint("taskswarm"), status))
	c.writeln(c.colors.Border.Sprint(line))
	c.writeln("")

	c.writeln(fmt.Sprintf("Duration:      %s", c.colors.Value.Sprint(formatDuration(result.Duration))))
	c.writeln(fmt.Sprintf("Users:         %s", c.colors.Value.Sprint(formatProfileCounts(result.Profiles))))
	c.writeln(fmt.Sprintf("Total Reqs:    %s", c.colors.Value.Sprint(formatNumber(s.TotalRequests))))
	ratio := c.colors.ratioColor(s.FailureRatio)
	c.writeln(fmt.Sprintf("Failures:      %s", ratio.Sprintf("%s (%.2f%%)", formatNumber(s.TotalFailures), s.FailureRatio*100)))
	c.writeln(fmt.Sprintf("Throughput:    %s", c.colors.Value.Sprintf("%.2f req/s", s.OverallRPS)))
	c.writeln("")

	c.writeln(c.colors.Label.Sprint("Response Times:"))
	c.writeln(fmt.Sprintf("  Avg:       %s", formatMillis(s.AvgResponseTime)))
	c.writeln(fmt.Sprintf("  Min:       %s", formatMillis(s.MinResponseTime)))
	c.writeln(fmt.Sprintf("  P50:       %s", formatMillis(s.P50ResponseTime)))
	c.writeln(fmt.Sprintf("  P95:       %s", formatMillis(s.P95ResponseTime)))
	c.writeln(fmt.Sprintf("  P99:       %s", formatMillis(s.P99ResponseTime)))
	c.writeln(fmt.Sprintf("  Max:       %s", formatMillis(s.MaxResponseTime)))
	c.writeln("")

	if len(s.Endpoints) > 0 {
		c.printEndpoints(s.Endpoints)
	}
	if len(s.Failures) > 0 {
		c.printFailures(s.Failures)
	}
}

func (c *ConsoleOutput) printEndpoints(endpoints []metrics.EndpointStats) {
	c.writeln(c.colors.Label.Sprint("Endpoints:"))
	c.writeln(c.colors.Dim.Sprint(fmt.Sprintf("  %-7s %-28s %9s %8s %9s %9s %9s %8s",
		"Method", "Name", "Reqs", "Fails", "Avg", "P95", "Max", "RPS")))
	for _, e := range endpoints {
		fails := fmt.Sprintf("%d", e.Failures)
		if e.Failures > 0 {
			fails = c.colors.Error.Sprint(fails)
		}
		c.writeln(fmt.Sprintf("  %s %s %s %s %s %s %s %s",
			padRight(c.colors.Accent.Sprint(e.Method), 7),
			padRight(truncate(e.Name, 28), 28),
			padLeft(formatNumber(e.Requests), 9),
			padLeft(fails, 8),
			padLeft(formatMillis(e.AvgResponseTime), 9),
			padLeft(formatMillis(e.P95ResponseTime), 9),
			padLeft(formatMillis(e.MaxResponseTime), 9),
			padLeft(fmt.Sprintf("%.2f", e.RPS), 8)))
	}
	c.writeln("")
}

func (c *ConsoleOutput) printFailures(failures []metrics.FailureStats) {
	c.writeln(c.colors.Label.Sprint("Failures:"))
	c.writeln(c.colors.Dim.Sprint(fmt.Sprintf("  %8s  %-7s %-28s %s", "Count", "Method", "Name", "Message")))
	for i, f := range failures {
		if i == maxFailureRows {
			c.writeln(c.colors.Dim.Sprintf("  ... and %d more", len(failures)-maxFailureRows))
			break
		}
		c.writeln(fmt.Sprintf("  %s  %s %s %s",
			padLeft(c.colors.Error.Sprint(formatNumber(f.Occurrences)), 8),
			padRight(f.Method, 7),
			padRight(truncate(f.Name, 28), 28),
			f.Message))
	}
	c.writeln("")
}

// formatProfileCounts renders "admin=1 read-only=3" in name order.
func formatProfileCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
	}
	return strings.Join(parts, " ")
}

// write writes to the output without a newline.
func (c *ConsoleOutput) write(s string) {
	fmt.Fprint(c.writer, s)
}

// writeln writes to the output with a newline.
func (c *ConsoleOutput) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// StatsFromSummary creates LiveStats from a metrics summary.
func StatsFromSummary(s metrics.Summary, progress float64, runTime time.Duration, targetUsers int) *LiveStats {
	remaining := time.Duration(0)
	if runTime > 0 {
		remaining = runTime - s.Elapsed
		if remaining < 0 {
			remaining = 0
		}
	}

	return &LiveStats{
		Progress:      progress,
		Elapsed:       s.Elapsed,
		Remaining:     remaining,
		ActiveUsers:   s.ActiveUsers,
		TargetUsers:   targetUsers,
		CurrentRPS:    s.CurrentRPS,
		TotalRequests: s.TotalRequests,
		Failures:      s.TotalFailures,
		FailureRatio:  s.FailureRatio,
		P95:           s.P95ResponseTime,
		Avg:           s.AvgResponseTime,
	}
}
