package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/taskswarm/internal/swarm"
)

// Format represents the available result file formats
type Format string

const (
	// FormatJSON outputs in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs in YAML format
	FormatYAML Format = "yaml"
	// FormatJUnit outputs in JUnit XML format (for CI/CD integration)
	FormatJUnit Format = "junit"
	// FormatHTML outputs a standalone HTML page
	FormatHTML Format = "html"
)

// FormatForPath picks a format from the file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatJUnit
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatJSON
	}
}

// resultDocument is the serialized shape of a run result.
type resultDocument struct {
	Host            string           `json:"host" yaml:"host"`
	StartTime       string           `json:"startTime" yaml:"startTime"`
	EndTime         string           `json:"endTime" yaml:"endTime"`
	DurationSeconds float64          `json:"durationSeconds" yaml:"durationSeconds"`
	UsersSpawned    int              `json:"usersSpawned" yaml:"usersSpawned"`
	Profiles        map[string]int   `json:"profiles" yaml:"profiles"`
	Interrupted     bool             `json:"interrupted" yaml:"interrupted"`
	ForcedStop      bool             `json:"forcedStop" yaml:"forcedStop"`
	Totals          totalsDocument   `json:"totals" yaml:"totals"`
	Endpoints       []endpointRecord `json:"endpoints" yaml:"endpoints"`
	Failures        []failureRecord  `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type totalsDocument struct {
	Requests      int64   `json:"requests" yaml:"requests"`
	Failures      int64   `json:"failures" yaml:"failures"`
	FailureRatio  float64 `json:"failureRatio" yaml:"failureRatio"`
	Bytes         int64   `json:"bytes" yaml:"bytes"`
	RPS           float64 `json:"rps" yaml:"rps"`
	AvgResponseMs float64 `json:"avgResponseMs" yaml:"avgResponseMs"`
	MinResponseMs float64 `json:"minResponseMs" yaml:"minResponseMs"`
	MaxResponseMs float64 `json:"maxResponseMs" yaml:"maxResponseMs"`
	P50ResponseMs float64 `json:"p50ResponseMs" yaml:"p50ResponseMs"`
	P95ResponseMs float64 `json:"p95ResponseMs" yaml:"p95ResponseMs"`
	P99ResponseMs float64 `json:"p99ResponseMs" yaml:"p99ResponseMs"`
}

type endpointRecord struct {
	Method        string  `json:"method" yaml:"method"`
	Name          string  `json:"name" yaml:"name"`
	Requests      int64   `json:"requests" yaml:"requests"`
	Failures      int64   `json:"failures" yaml:"failures"`
	AvgResponseMs float64 `json:"avgResponseMs" yaml:"avgResponseMs"`
	MinResponseMs float64 `json:"minResponseMs" yaml:"minResponseMs"`
	MaxResponseMs float64 `json:"maxResponseMs" yaml:"maxResponseMs"`
	P50ResponseMs float64 `json:"p50ResponseMs" yaml:"p50ResponseMs"`
	P95ResponseMs float64 `json:"p95ResponseMs" yaml:"p95ResponseMs"`
	RPS           float64 `json:"rps" yaml:"rps"`
	Bytes         int64   `json:"bytes" yaml:"bytes"`
}

type failureRecord struct {
	Method      string `json:"method" yaml:"method"`
	Name        string `json:"name" yaml:"name"`
	Message     string `json:"message" yaml:"message"`
	Occurrences int64  `json:"occurrences" yaml:"occurrences"`
}

func newResultDocument(host string, result *swarm.Result) resultDocument {
	s := result.Summary
	doc := resultDocument{
		Host:            host,
		StartTime:       result.StartTime.Format(time.RFC3339),
		EndTime:         result.EndTime.Format(time.RFC3339),
		DurationSeconds: result.Duration.Seconds(),
		UsersSpawned:    result.UsersSpawned,
		Profiles:        result.Profiles,
		Interrupted:     result.Interrupted,
		ForcedStop:      result.ForcedStop,
		Totals: totalsDocument{
			Requests:      s.TotalRequests,
			Failures:      s.TotalFailures,
			FailureRatio:  s.FailureRatio,
			Bytes:         s.TotalBytes,
			RPS:           s.OverallRPS,
			AvgResponseMs: s.AvgResponseTime,
			MinResponseMs: s.MinResponseTime,
			MaxResponseMs: s.MaxResponseTime,
			P50ResponseMs: s.P50ResponseTime,
			P95ResponseMs: s.P95ResponseTime,
			P99ResponseMs: s.P99ResponseTime,
		},
		Endpoints: make([]endpointRecord, 0, len(s.Endpoints)),
	}
	for _, e := range s.Endpoints {
		doc.Endpoints = append(doc.Endpoints, endpointRecord{
			Method:        e.Method,
			Name:          e.Name,
			Requests:      e.Requests,
			Failures:      e.Failures,
			AvgResponseMs: e.AvgResponseTime,
			MinResponseMs: e.MinResponseTime,
			MaxResponseMs: e.MaxResponseTime,
			P50ResponseMs: e.P50ResponseTime,
			P95ResponseMs: e.P95ResponseTime,
			RPS:           e.RPS,
			Bytes:         e.Bytes,
		})
	}
	for _, f := range s.Failures {
		doc.Failures = append(doc.Failures, failureRecord(f))
	}
	return doc
}

// JUnitTestSuites represents the root element containing all test suites
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a JUnit test suite
type JUnitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitProperty is a name/value pair attached to a suite
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase represents a JUnit test case
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a JUnit test failure
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// newJUnitSuites maps each endpoint to a test case; an endpoint with any
// failed request is a failed case listing its failure messages.
func newJUnitSuites(host string, result *swarm.Result) JUnitTestSuites {
	s := result.Summary
	suite := JUnitTestSuite{
		Name:      "taskswarm",
		Tests:     len(s.Endpoints),
		Time:      result.Duration.Seconds(),
		Timestamp: result.StartTime.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "host", Value: host},
			{Name: "users", Value: fmt.Sprintf("%d", result.UsersSpawned)},
			{Name: "totalRequests", Value: fmt.Sprintf("%d", s.TotalRequests)},
			{Name: "rps", Value: fmt.Sprintf("%.2f", s.OverallRPS)},
		},
	}

	for _, e := range s.Endpoints {
		tc := JUnitTestCase{
			Name:      e.Name,
			Classname: e.Method,
			Time:      e.AvgResponseTime / 1000,
			SystemOut: fmt.Sprintf("requests=%d failures=%d avg=%.2fms p95=%.2fms max=%.2fms rps=%.2f",
				e.Requests, e.Failures, e.AvgResponseTime, e.P95ResponseTime, e.MaxResponseTime, e.RPS),
		}
		if e.Failures > 0 {
			var messages []string
			for _, f := range s.Failures {
				if f.Method == e.Method && f.Name == e.Name {
					messages = append(messages, fmt.Sprintf("%dx %s", f.Occurrences, f.Message))
				}
			}
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%d of %d requests failed", e.Failures, e.Requests),
				Type:    "RequestFailure",
				Content: strings.Join(messages, "\n"),
			}
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return JUnitTestSuites{TestSuites: []JUnitTestSuite{suite}}
}

// WriteResult serializes result to w in the given format.
func WriteResult(w io.Writer, format Format, host string, result *swarm.Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newResultDocument(host, result)); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newResultDocument(host, result)); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	case FormatJUnit:
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(newJUnitSuites(host, result)); err != nil {
			return fmt.Errorf("failed to encode JUnit XML: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	case FormatHTML:
		return writeHTML(w, host, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

// WriteResultFile writes result to path, choosing the format by extension.
func WriteResultFile(path, host string, result *swarm.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteResult(f, FormatForPath(path), host, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
