package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wesleyorama2/taskswarm/internal/config"
)

// addConfigFlags registers the flags that override the environment.
func addConfigFlags(cmd *cobra.Command) {
	d := config.Defaults()
	flags := cmd.Flags()

	flags.String("host", d.Host, "Base URL of the task API (env "+config.EnvHost+")")
	flags.IntP("users", "u", d.Users, "Number of virtual users (env "+config.EnvUsers+")")
	flags.Float64P("spawn-rate", "r", d.SpawnRate, "Users started per second (env "+config.EnvSpawnRate+")")
	flags.StringP("run-time", "t", d.RunTime, "Run duration, e.g. 90s, 5m or 300; 0 runs until interrupted (env "+config.EnvRunTime+")")
	flags.Bool("headless", d.Headless, "Disable the live view and print periodic lines (env "+config.EnvHeadless+")")
	flags.Duration("timeout", d.RequestTimeout.Std(), "Per-request timeout (env "+config.EnvRequestTimeout+")")
	flags.Bool("insecure", d.InsecureSkipVerify, "Skip TLS certificate verification (env "+config.EnvInsecure+")")
	flags.StringP("profiles", "p", "", "YAML file selecting profiles and overriding weights (env "+config.EnvProfiles+")")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090 (env "+config.EnvMetricsAddr+")")
	flags.StringP("output", "o", "", "Write the result to this file; .json, .yaml, .xml (JUnit) or .html (env "+config.EnvOutput+")")
	flags.String("log-level", d.LogLevel, "Log level: debug, info, warn or error (env "+config.EnvLogLevel+")")
}

// resolveConfig builds the run configuration: defaults, then environment,
// then flags the user actually set.
func resolveConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg, err := config.FromOSEnv()
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(cmd.Flags(), &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, cfg *config.RunConfig) error {
	errs := &config.ValidationErrors{}

	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("users") {
		cfg.Users, _ = flags.GetInt("users")
	}
	if flags.Changed("spawn-rate") {
		cfg.SpawnRate, _ = flags.GetFloat64("spawn-rate")
	}
	if flags.Changed("run-time") {
		v, _ := flags.GetString("run-time")
		if err := cfg.SetRunTime(v); err != nil {
			errs.Add("run-time", err.Error())
		}
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.RequestTimeout = config.Duration(d)
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify, _ = flags.GetBool("insecure")
	}
	if flags.Changed("profiles") {
		cfg.ProfileFile, _ = flags.GetString("profiles")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("output") {
		cfg.OutputFile, _ = flags.GetString("output")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
