package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"profiled/internal/common/fsutil"
	"profiled/internal/config"
)

// options collects flag values; cfg and log are resolved in PersistentPreRunE.
type options struct {
	configPath  string
	addr        string
	profiles    string
	backend     string
	endpoint    string
	logLevel    string
	logPretty   bool
	corsOrigins string

	cfg config.Config
	log zerolog.Logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&options{}) }

// buildRootCmdWith constructs the command tree bound to o.
func buildRootCmdWith(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "profiled",
		Short:         "Manage which inference workload profile runs on this GPU host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", os.Getenv("PROFILED_CONFIG"), "Config file (.yaml/.yml/.json/.toml)")
	pf.StringVar(&o.profiles, "profiles", envOr("PROFILED_PROFILES", config.DefaultProfilesPath), "Profile document (defaults PROFILED_PROFILES)")
	pf.StringVar(&o.endpoint, "endpoint", "", "Workload base URL (default "+config.DefaultEndpointURL+")")
	pf.StringVar(&o.logLevel, "log-level", envOr("PROFILED_LOG_LEVEL", "info"), "Log level: trace|debug|info|warn|error")
	pf.BoolVar(&o.logPretty, "log-pretty", false, "Human readable console logs instead of JSON")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd, o)
		if err != nil {
			return err
		}
		o.cfg = cfg
		o.log = newLogger(cmd.ErrOrStderr(), o.logLevel, o.logPretty)
		return nil
	}

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API and orchestrator",
		Example: "  profiled serve --addr :8080 --profiles config/model_profiles.yaml",
		Args:    cobra.NoArgs,
		RunE:    func(cmd *cobra.Command, args []string) error { return runServe(cmd, o) },
	}
	serve.Flags().StringVar(&o.addr, "addr", envOr("PROFILED_ADDR", config.DefaultAddr), "HTTP listen address (defaults PROFILED_ADDR)")
	serve.Flags().StringVar(&o.backend, "backend", "", "Workload backend: compose|process")
	serve.Flags().StringVar(&o.corsOrigins, "cors-origins", "", "Comma separated origins; enables CORS when set")

	probe := &cobra.Command{
		Use:   "probe",
		Short: "Probe the GPU inventory and print it as JSON",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runProbe(cmd, o) },
	}
	check := &cobra.Command{
		Use:     "check <profile-id>",
		Short:   "Check whether a profile fits the current hardware",
		Example: "  profiled check qwen-14b",
		Args:    cobra.ExactArgs(1),
		RunE:    func(cmd *cobra.Command, args []string) error { return runCheck(cmd, o, args[0]) },
	}
	profiles := &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles in the profile document",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runProfiles(cmd, o) },
	}
	root.AddCommand(serve, probe, check, profiles)
	return root
}

// resolveConfig layers explicitly set flags over the config file over defaults.
func resolveConfig(cmd *cobra.Command, o *options) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		p, err := fsutil.ResolvePath(o.configPath)
		if err != nil {
			return cfg, err
		}
		if cfg, err = config.Load(p); err != nil {
			return cfg, err
		}
	}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("addr") || (cfg.Addr == "" && o.addr != "") {
		cfg.Addr = o.addr
	}
	if changed("profiles") || cfg.ProfilesPath == "" {
		cfg.ProfilesPath = o.profiles
	}
	if changed("backend") {
		cfg.Backend = o.backend
	}
	if changed("endpoint") {
		cfg.EndpointURL = o.endpoint
	}
	if origins := splitCSV(o.corsOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = origins
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	p, err := fsutil.ResolvePath(cfg.ProfilesPath)
	if err != nil {
		return cfg, err
	}
	cfg.ProfilesPath = p
	return cfg, nil
}

func newLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
