package metrics

import "time"

// Summary is a point-in-time view of the run statistics.
//
// Response times are in milliseconds.
type Summary struct {
	// TotalRequests is the number of requests recorded
	TotalRequests int64 `json:"totalRequests"`

	// TotalFailures is the number of requests classified as failures
	TotalFailures int64 `json:"totalFailures"`

	// FailureRatio is TotalFailures / TotalRequests (0.0 to 1.0)
	FailureRatio float64 `json:"failureRatio"`

	// TotalBytes is the total response body bytes received
	TotalBytes int64 `json:"totalBytes"`

	AvgResponseTime float64 `json:"avgResponseTime"`
	MinResponseTime float64 `json:"minResponseTime"`
	MaxResponseTime float64 `json:"maxResponseTime"`
	P50ResponseTime float64 `json:"p50ResponseTime"`
	P95ResponseTime float64 `json:"p95ResponseTime"`
	P99ResponseTime float64 `json:"p99ResponseTime"`

	// CurrentRPS is the mean rate over the most recent complete seconds
	CurrentRPS float64 `json:"currentRps"`

	// OverallRPS is TotalRequests divided by elapsed time
	OverallRPS float64 `json:"overallRps"`

	ActiveUsers int           `json:"activeUsers"`
	Elapsed     time.Duration `json:"elapsed"`
	StartTime   time.Time     `json:"startTime"`
	Timestamp   time.Time     `json:"timestamp"`

	Endpoints []EndpointStats `json:"endpoints"`
	Failures  []FailureStats  `json:"failures,omitempty"`
}

// EndpointStats is the breakdown for one method and logical request name.
type EndpointStats struct {
	Method          string  `json:"method"`
	Name            string  `json:"name"`
	Requests        int64   `json:"requests"`
	Failures        int64   `json:"failures"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	MinResponseTime float64 `json:"minResponseTime"`
	MaxResponseTime float64 `json:"maxResponseTime"`
	P50ResponseTime float64 `json:"p50ResponseTime"`
	P95ResponseTime float64 `json:"p95ResponseTime"`
	RPS             float64 `json:"rps"`
	Bytes           int64   `json:"bytes"`
}

// FailureStats groups identical failures.
type FailureStats struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	Occurrences int64  `json:"occurrences"`
}
