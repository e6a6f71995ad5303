// Package config resolves the run configuration from defaults, environment
// variables and command-line flags, and loads profile-mix files.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by FromEnv.
const (
	EnvHost           = "TASKSWARM_HOST"
	EnvUsers          = "TASKSWARM_USERS"
	EnvSpawnRate      = "TASKSWARM_SPAWN_RATE"
	EnvRunTime        = "TASKSWARM_RUN_TIME"
	EnvHeadless       = "TASKSWARM_HEADLESS"
	EnvRequestTimeout = "TASKSWARM_REQUEST_TIMEOUT"
	EnvInsecure       = "TASKSWARM_INSECURE"
	EnvProfiles       = "TASKSWARM_PROFILES"
	EnvMetricsAddr    = "TASKSWARM_METRICS_ADDR"
	EnvOutput         = "TASKSWARM_OUTPUT"
	EnvLogLevel       = "TASKSWARM_LOG_LEVEL"
)

// legacyEnv maps variables to the Locust names they fall back to when unset.
var legacyEnv = map[string]string{
	EnvHost:      "LOCUST_HOST",
	EnvUsers:     "LOCUST_USERS",
	EnvSpawnRate: "LOCUST_SPAWN_RATE",
	EnvRunTime:   "LOCUST_RUN_TIME",
	EnvHeadless:  "LOCUST_HEADLESS",
}

// Defaults.
const (
	DefaultHost           = "http://localhost:3000"
	DefaultUsers          = 10
	DefaultSpawnRate      = 2
	DefaultRunTime        = "5m"
	DefaultRequestTimeout = 10 * time.Second
	DefaultLogLevel       = "info"
)

// LogLevels accepted by the logger.
var LogLevels = []string{"debug", "info", "warn", "error"}

// RunConfig is the resolved configuration of one run. It is built once at
// start-up and not modified afterwards.
type RunConfig struct {
	// Host is the base URL of the task API
	Host string `json:"host"`

	// Users is the total number of virtual users
	Users int `json:"users"`

	// SpawnRate is how many users start per second
	SpawnRate float64 `json:"spawnRate"`

	// RunTime is the run duration as given; RunDuration is its parsed form.
	// Zero runs until interrupted.
	RunTime     string        `json:"runTime"`
	RunDuration time.Duration `json:"-"`

	// Headless disables the interactive live view
	Headless bool `json:"headless"`

	RequestTimeout     Duration `json:"requestTimeout"`
	InsecureSkipVerify bool     `json:"insecureSkipVerify"`

	// ProfileFile is an optional YAML profile mix
	ProfileFile string `json:"profileFile,omitempty"`

	// MetricsAddr enables the Prometheus exporter when set
	MetricsAddr string `json:"metricsAddr,omitempty"`

	// OutputFile receives the JSON result when set
	OutputFile string `json:"outputFile,omitempty"`

	LogLevel string `json:"logLevel"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() RunConfig {
	d, _ := ParseRunTime(DefaultRunTime)
	return RunConfig{
		Host:               DefaultHost,
		Users:              DefaultUsers,
		SpawnRate:          DefaultSpawnRate,
		RunTime:            DefaultRunTime,
		RunDuration:        d,
		RequestTimeout:     Duration(DefaultRequestTimeout),
		InsecureSkipVerify: true,
		LogLevel:           DefaultLogLevel,
	}
}

// LookupFunc reads one environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// FromOSEnv resolves the configuration from the process environment.
func FromOSEnv() (RunConfig, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv applies environment overrides on top of Defaults.
//
// Values that fail to parse are reported together as *ValidationErrors
// rather than silently falling back to the default.
func FromEnv(lookup LookupFunc) (RunConfig, error) {
	lookup = withLegacyNames(lookup)
	cfg := Defaults()
	errs := &ValidationErrors{}

	if v, ok := lookup(EnvHost); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := lookup(EnvUsers); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs.Add(EnvUsers, "must be an integer, got "+strconv.Quote(v))
		} else {
			cfg.Users = n
		}
	}
	if v, ok := lookup(EnvSpawnRate); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs.Add(EnvSpawnRate, "must be a number, got "+strconv.Quote(v))
		} else {
			cfg.SpawnRate = f
		}
	}
	if v, ok := lookup(EnvRunTime); ok && v != "" {
		if err := cfg.SetRunTime(v); err != nil {
			errs.Add(EnvRunTime, err.Error())
		}
	}
	if v, ok := lookup(EnvHeadless); ok {
		cfg.Headless = ParseFlag(v)
	}
	if v, ok := lookup(EnvRequestTimeout); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			errs.Add(EnvRequestTimeout, err.Error())
		} else {
			cfg.RequestTimeout = Duration(d)
		}
	}
	if v, ok := lookup(EnvInsecure); ok && v != "" {
		cfg.InsecureSkipVerify = ParseFlag(v)
	}
	if v, ok := lookup(EnvProfiles); ok {
		cfg.ProfileFile = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookup(EnvOutput); ok {
		cfg.OutputFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}

	if errs.HasErrors() {
		return cfg, errs
	}
	return cfg, nil
}

// withLegacyNames consults the LOCUST_* name for a variable that is unset.
func withLegacyNames(lookup LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		if legacy, ok := legacyEnv[key]; ok {
			return lookup(legacy)
		}
		return "", false
	}
}

// ParseFlag reports whether v is the literal "true", ignoring case and
// surrounding whitespace. Anything else is false.
func ParseFlag(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// SetRunTime parses and stores a run time.
func (c *RunConfig) SetRunTime(s string) error {
	d, err := ParseRunTime(s)
	if err != nil {
		return err
	}
	c.RunTime = strings.TrimSpace(s)
	c.RunDuration = d
	return nil
}

// ParseRunTime parses a run time: a Go duration such as "90s" or "1h30m",
// or a bare integer number of seconds.
func ParseRunTime(s string) (time.Duration, error) {
	return parseDuration(s)
}

// Validate checks the configuration and returns *ValidationErrors listing
// every problem, or nil.
func (c *RunConfig) Validate() error {
	errs := &ValidationErrors{}

	if c.Host == "" {
		errs.Add("host", "host is required")
	} else if u, err := url.Parse(c.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("host", "must be an http or https URL, got "+strconv.Quote(c.Host))
	}

	if c.Users <= 0 {
		errs.Add("users", "must be positive, got "+strconv.Itoa(c.Users))
	}
	if c.SpawnRate <= 0 {
		errs.Add("spawnRate", "must be positive, got "+strconv.FormatFloat(c.SpawnRate, 'g', -1, 64))
	}
	if c.RunDuration < 0 {
		errs.Add("runTime", "must not be negative")
	}
	if c.RequestTimeout <= 0 {
		errs.Add("requestTimeout", "must be positive")
	}

	validLevel := false
	for _, l := range LogLevels {
		if c.LogLevel == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		errs.Add("logLevel", "must be one of "+strings.Join(LogLevels, ", ")+", got "+strconv.Quote(c.LogLevel))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
