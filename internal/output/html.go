package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

// htmlReport contains all data needed to render the HTML report.
type htmlReport struct {
	Host string
	*swarm.Result
}

var reportTemplate = template.Must(template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate))

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": formatDuration,
		"formatNumber":   formatNumber,
		"formatMillis":   formatMillis,
		"formatBytes":    formatBytes,
		"percent":        func(ratio float64) string { return fmt.Sprintf("%.2f%%", ratio*100) },
		"profileCounts":  formatProfileCounts,
		"rps":            func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}
}

func writeHTML(w io.Writer, host string, result *swarm.Result) error {
	if err := reportTemplate.Execute(w, htmlReport{Host: host, Result: result}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
